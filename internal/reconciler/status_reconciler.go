package reconciler

import (
	"context"
	"errors"
	"fmt"
	"slices"

	workloadv1beta1 "github.com/BuoyantIO/kubecon-controller/api/v1beta1"
	"github.com/BuoyantIO/kubecon-controller/internal/filter"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// EventReasonWorkloadReady is the reason of the Event recorded after the
// Ready condition is written
const EventReasonWorkloadReady = "WorkloadReady"

// StatusReconciler marks ExternalWorkloads ready by appending a Ready/True
// condition the first time it sees them. A workload that already carries a
// Ready condition of any status is left alone.
type StatusReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Writer   StatusWriter
	Clock    clock.PassiveClock
	Filter   *filter.ResourceFilter
}

func NewStatusReconciler(client client.Client, scheme *runtime.Scheme, recorder record.EventRecorder, resourceFilter *filter.ResourceFilter) *StatusReconciler {
	registerMetrics()

	return &StatusReconciler{
		Client:   client,
		Scheme:   scheme,
		Recorder: recorder,
		Writer:   NewClientStatusWriter(client),
		Clock:    clock.RealClock{},
		Filter:   resourceFilter,
	}
}

// +kubebuilder:rbac:groups=workload.linkerd.io,resources=externalworkloads,verbs=get;list;watch
// +kubebuilder:rbac:groups=workload.linkerd.io,resources=externalworkloads/status,verbs=get;patch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch

func (r *StatusReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	workload := &workloadv1beta1.ExternalWorkload{}
	if err := r.Get(ctx, req.NamespacedName, workload); err != nil {
		if apierrors.IsNotFound(err) {
			// Deleted, nothing left to mark
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	action, err := r.ReconcileWorkload(ctx, workload)
	return r.resultFor(ctx, action, err)
}

// resultFor maps a reconcile outcome to what the driver sees. Structural
// defects are terminal; failed writes requeue after the fixed backoff.
func (r *StatusReconciler) resultFor(ctx context.Context, action Action, err error) (ctrl.Result, error) {
	log := ctrl.LoggerFrom(ctx)

	switch {
	case errors.Is(err, ErrMissingField):
		reconcileTotal.WithLabelValues(resultInvalid).Inc()
		log.Error(err, "ExternalWorkload cannot be patched")
		return ctrl.Result{}, reconcile.TerminalError(err)
	case err != nil:
		reconcileTotal.WithLabelValues(resultWriteFailed).Inc()
		log.Error(err, "Failed to mark ExternalWorkload ready", "retryAfter", action.After)
		// Returning the error would hand the retry to the rate limiter;
		// the backoff here is fixed.
		return action.Result(), nil
	}

	return action.Result(), nil
}

// ReconcileWorkload decides whether the workload needs a Ready condition and
// writes it if so. It never retries internally; a failed write is reported as
// a *WriteFailedError together with a RetryBackoff requeue.
func (r *StatusReconciler) ReconcileWorkload(ctx context.Context, workload *workloadv1beta1.ExternalWorkload) (Action, error) {
	log := ctrl.LoggerFrom(ctx)

	if cond, found := workload.FindCondition(workloadv1beta1.WorkloadReady); found {
		reconcileTotal.WithLabelValues(resultNoop).Inc()
		log.V(1).Info("Ready condition already present", "status", cond.Status)
		return Action{Kind: AwaitChange}, nil
	}

	conditions := append(slices.Clone(workload.Conditions()),
		workloadv1beta1.NewReadyCondition(r.Clock.Now()))
	patch := StatusPatch{
		Status: workloadv1beta1.ExternalWorkloadStatus{Conditions: conditions},
	}

	if workload.Namespace == "" {
		return Action{Kind: NoRequeue}, fmt.Errorf("%w: .metadata.namespace", ErrMissingField)
	}

	if err := r.Writer.PatchStatus(ctx, workload.Namespace, workload.Name, patch); err != nil {
		return RequeueAfter(RetryBackoff), &WriteFailedError{
			Namespace: workload.Namespace,
			Name:      workload.Name,
			Err:       err,
		}
	}

	reconcileTotal.WithLabelValues(resultPatched).Inc()
	log.Info("Marked ExternalWorkload ready", "namespace", workload.Namespace, "name", workload.Name)
	if r.Recorder != nil {
		r.Recorder.Event(workload, corev1.EventTypeNormal, EventReasonWorkloadReady, "Ready condition set")
	}

	return Action{Kind: AwaitChange}, nil
}

// SetupWithManager sets up the controller with the Manager.
func (r *StatusReconciler) SetupWithManager(mgr ctrl.Manager, maxConcurrentReconciles int) error {
	if maxConcurrentReconciles < 1 {
		maxConcurrentReconciles = 1
	}
	return ctrl.NewControllerManagedBy(mgr).
		For(&workloadv1beta1.ExternalWorkload{},
			builder.WithPredicates(FilterPredicate(r.Filter), ConditionsChangedPredicate())).
		WithOptions(controller.Options{MaxConcurrentReconciles: maxConcurrentReconciles}).
		Named("externalworkload-status").
		Complete(r)
}
