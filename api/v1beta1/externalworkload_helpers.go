/*
Copyright 2024.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1beta1

import (
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// ReasonWorkloadCreated is set on the Ready condition written by the status controller
	ReasonWorkloadCreated = "WorkloadCreated"

	defaultWorkloadIP = "192.0.2.0"
)

// IsReady returns true for a Ready condition whose status is True.
func IsReady(cond WorkloadCondition) bool {
	return cond.Type == WorkloadReady && cond.Status == ConditionTrue
}

// Conditions returns the status conditions, or nil when no status has been written.
func (w *ExternalWorkload) Conditions() []WorkloadCondition {
	if w.Status == nil {
		return nil
	}
	return w.Status.Conditions
}

// FindCondition returns the condition of the given type, if present.
func (w *ExternalWorkload) FindCondition(t WorkloadConditionType) (WorkloadCondition, bool) {
	for _, cond := range w.Conditions() {
		if cond.Type == t {
			return cond, true
		}
	}
	return WorkloadCondition{}, false
}

// HasReadyCondition reports whether the workload carries a Ready/True condition.
func (w *ExternalWorkload) HasReadyCondition() bool {
	for _, cond := range w.Conditions() {
		if IsReady(cond) {
			return true
		}
	}
	return false
}

// NewReadyCondition builds a Ready/True condition probed and transitioned at now.
func NewReadyCondition(now time.Time) WorkloadCondition {
	ts := metav1.NewTime(now)
	return WorkloadCondition{
		Type:               WorkloadReady,
		Status:             ConditionTrue,
		LastProbeTime:      ts,
		LastTransitionTime: ts,
		Reason:             ReasonWorkloadCreated,
		Message:            "Workload created",
	}
}

// NewExternalWorkload builds an ExternalWorkload with a mesh identity derived
// from its name and namespace, one unnamed port per entry, and a single
// documentation-range workload IP.
func NewExternalWorkload(name, namespace string, ports ...int32) *ExternalWorkload {
	specPorts := make([]PortSpec, 0, len(ports))
	for _, p := range ports {
		specPorts = append(specPorts, PortSpec{Port: p})
	}

	return &ExternalWorkload{
		TypeMeta: metav1.TypeMeta{
			APIVersion: GroupVersion.String(),
			Kind:       "ExternalWorkload",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Spec: ExternalWorkloadSpec{
			MeshTLS: MeshTLS{
				Identity:   fmt.Sprintf("%s.%s.serviceaccount.identity.linkerd.cluster.local", name, namespace),
				ServerName: fmt.Sprintf("%s.%s.cluster.local", name, namespace),
			},
			Ports:       specPorts,
			WorkloadIPs: []WorkloadIP{{IP: defaultWorkloadIP}},
		},
	}
}
