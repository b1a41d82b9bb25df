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
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ExternalWorkloadSpec represents the desired state of an external workload
type ExternalWorkloadSpec struct {
	// MeshTLS describes TLS settings associated with an external workload
	// +required
	MeshTLS MeshTLS `json:"meshTLS"`

	// Ports describes a set of ports exposed by the workload
	// +optional
	// +kubebuilder:validation:XValidation:rule="self.all(p, !has(p.name) || self.exists_one(q, has(q.name) && q.name == p.name))",message="port names must be unique"
	Ports []PortSpec `json:"ports,omitempty"`

	// WorkloadIPs is the list of IP addresses that can be used to send traffic
	// to an external workload
	// +optional
	WorkloadIPs []WorkloadIP `json:"workloadIPs,omitempty"`
}

// MeshTLS describes TLS settings associated with an external workload
type MeshTLS struct {
	// Identity associated with the workload. Used by peers to perform
	// verification in the mTLS handshake
	// +required
	// +kubebuilder:validation:XValidation:rule="self == oldSelf",message="identity is immutable"
	Identity string `json:"identity"`

	// ServerName is the DNS formatted name associated with the workload. Used
	// to terminate TLS using the SNI extension.
	// +required
	// +kubebuilder:validation:XValidation:rule="self == oldSelf",message="serverName is immutable"
	ServerName string `json:"serverName"`
}

// PortSpec represents a network port in a single workload.
type PortSpec struct {
	// Name must be an IANA_SVC_NAME if specified, and unique within the
	// exposed ports set.
	// +optional
	Name string `json:"name,omitempty"`

	// Port is the number of the port exposed on the workload's IP address.
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=65535
	Port int32 `json:"port"`

	// Protocol is one of UDP, TCP, or SCTP. Defaults to "TCP" if unspecified.
	// +optional
	// +kubebuilder:default=TCP
	Protocol corev1.Protocol `json:"protocol,omitempty"`
}

// WorkloadIP is a single IP address exposed by an ExternalWorkload
type WorkloadIP struct {
	IP string `json:"ip"`
}

// ExternalWorkloadStatus holds the observed service state of an external workload
type ExternalWorkloadStatus struct {
	// Conditions is keyed by type; at most one condition exists per type.
	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []WorkloadCondition `json:"conditions,omitempty"`
}

// WorkloadCondition represents the service state of an ExternalWorkload
type WorkloadCondition struct {
	// Type of the condition
	Type WorkloadConditionType `json:"type"`

	// Status of the condition. Can be True, False, Unknown
	// +kubebuilder:validation:Enum=True;False;Unknown
	Status WorkloadConditionStatus `json:"status"`

	// LastProbeTime is the last time an ExternalWorkload was probed for a condition.
	// +optional
	LastProbeTime metav1.Time `json:"lastProbeTime,omitempty"`

	// LastTransitionTime is the last time a condition transitioned from one status to another.
	// +optional
	LastTransitionTime metav1.Time `json:"lastTransitionTime,omitempty"`

	// Reason is a unique one word reason in CamelCase that describes the reason for a
	// transition.
	// +optional
	Reason string `json:"reason,omitempty"`

	// Message is a human readable message that describes details about last transition.
	// +optional
	Message string `json:"message,omitempty"`
}

// WorkloadConditionType is a value for the type of a condition in an
// ExternalWorkload's status
type WorkloadConditionType string

const (
	// WorkloadReady means the workload is ready to serve traffic
	WorkloadReady WorkloadConditionType = "Ready"
)

// WorkloadConditionStatus is the status of a WorkloadCondition
type WorkloadConditionStatus string

const (
	ConditionTrue    WorkloadConditionStatus = "True"
	ConditionFalse   WorkloadConditionStatus = "False"
	ConditionUnknown WorkloadConditionStatus = "Unknown"
)

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=extwl

// ExternalWorkload describes a single workload (i.e. a deployable unit,
// conceptually similar to a Kubernetes Pod) that is running outside of a
// Kubernetes cluster. An ExternalWorkload should be enrolled in the mesh and
// typically represents a virtual machine.
type ExternalWorkload struct {
	metav1.TypeMeta `json:",inline"`

	// metadata is a standard object metadata
	// +optional
	metav1.ObjectMeta `json:"metadata,omitzero"`

	// spec defines the desired state of ExternalWorkload
	// +required
	Spec ExternalWorkloadSpec `json:"spec"`

	// status is absent until the status controller writes it
	// +optional
	Status *ExternalWorkloadStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ExternalWorkloadList contains a list of ExternalWorkload
type ExternalWorkloadList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitzero"`
	Items           []ExternalWorkload `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ExternalWorkload{}, &ExternalWorkloadList{})
}
