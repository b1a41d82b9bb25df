package reconciler

import (
	workloadv1beta1 "github.com/BuoyantIO/kubecon-controller/api/v1beta1"
	"github.com/BuoyantIO/kubecon-controller/internal/filter"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
)

// ConditionsChangedPredicate allows generation changes and status changes that
// affect the set of condition (type, status) pairs. Metadata-only updates and
// timestamp refreshes are dropped.
func ConditionsChangedPredicate() predicate.Predicate {
	return predicate.Funcs{
		CreateFunc: func(e event.CreateEvent) bool { return true },
		// Nothing to write for a deleted workload
		DeleteFunc:  func(e event.DeleteEvent) bool { return false },
		GenericFunc: func(e event.GenericEvent) bool { return true },
		UpdateFunc: func(e event.UpdateEvent) bool {
			oldObj, okOld := e.ObjectOld.(*workloadv1beta1.ExternalWorkload)
			newObj, okNew := e.ObjectNew.(*workloadv1beta1.ExternalWorkload)
			if !okOld || !okNew {
				return true
			}
			if oldObj.Generation != newObj.Generation {
				return true
			}
			return conditionsChanged(oldObj, newObj)
		},
	}
}

// conditionsChanged returns true if any condition was added, removed or
// changed status.
func conditionsChanged(oldObj, newObj *workloadv1beta1.ExternalWorkload) bool {
	oldConditions := oldObj.Conditions()
	newConditions := newObj.Conditions()

	if len(oldConditions) != len(newConditions) {
		return true
	}
	oldByType := make(map[workloadv1beta1.WorkloadConditionType]workloadv1beta1.WorkloadConditionStatus, len(oldConditions))
	for _, c := range oldConditions {
		oldByType[c.Type] = c.Status
	}
	for _, c := range newConditions {
		status, exists := oldByType[c.Type]
		if !exists || status != c.Status {
			return true
		}
	}

	return false
}

// FilterPredicate drops events for objects excluded by the namespace and label
// filter. A nil filter admits everything.
func FilterPredicate(f *filter.ResourceFilter) predicate.Predicate {
	return predicate.NewPredicateFuncs(func(obj client.Object) bool {
		return f.Matches(obj)
	})
}
