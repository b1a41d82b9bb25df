package model

import (
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/types"
)

// MessageTypeReadiness identifies readiness records on the wire
const MessageTypeReadiness = "READINESS"

// SourceMetadata identifies the controller instance that produced a record
type SourceMetadata struct {
	ClusterID         string `json:"clusterId"`
	ControllerVersion string `json:"controllerVersion"`
}

// WorkloadRef identifies an ExternalWorkload
type WorkloadRef struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// ReadinessRecord is one observation of a workload's readiness, emitted by
// the periodic reporter for every key listed in the index.
type ReadinessRecord struct {
	EventID     string         `json:"eventId"`
	OccurredAt  time.Time      `json:"occurredAt"`
	Source      SourceMetadata `json:"source"`
	MessageType string         `json:"messageType"`
	Workload    WorkloadRef    `json:"workload"`
	Ready       bool           `json:"ready"`
}

// ReadinessBatchPayload is the body sent to the control plane
type ReadinessBatchPayload struct {
	Records []ReadinessRecord `json:"records"`
}

// NewReadinessRecord creates a readiness record for the given workload key
func NewReadinessRecord(key types.NamespacedName, ready bool, clusterID, controllerVersion string) ReadinessRecord {
	return ReadinessRecord{
		EventID:    uuid.New().String(),
		OccurredAt: time.Now().UTC(),
		Source: SourceMetadata{
			ClusterID:         clusterID,
			ControllerVersion: controllerVersion,
		},
		MessageType: MessageTypeReadiness,
		Workload: WorkloadRef{
			Namespace: key.Namespace,
			Name:      key.Name,
		},
		Ready: ready,
	}
}
