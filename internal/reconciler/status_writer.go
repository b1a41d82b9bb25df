package reconciler

import (
	"context"
	"encoding/json"
	"fmt"

	workloadv1beta1 "github.com/BuoyantIO/kubecon-controller/api/v1beta1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// FieldManager is the field owner recorded on status patches
const FieldManager = "kubecon-controller"

// StatusPatch is the merge-patch document for the status subresource. Only
// the status stanza is serialized, so metadata and spec are left untouched.
type StatusPatch struct {
	Status workloadv1beta1.ExternalWorkloadStatus `json:"status"`
}

// StatusWriter issues status writes against the store
type StatusWriter interface {
	PatchStatus(ctx context.Context, namespace, name string, patch StatusPatch) error
}

// ClientStatusWriter writes status through a controller-runtime client
type ClientStatusWriter struct {
	client client.Client
}

var _ StatusWriter = (*ClientStatusWriter)(nil)

// NewClientStatusWriter creates a StatusWriter backed by c
func NewClientStatusWriter(c client.Client) *ClientStatusWriter {
	return &ClientStatusWriter{client: c}
}

// PatchStatus merge-patches the status subresource of namespace/name
func (w *ClientStatusWriter) PatchStatus(ctx context.Context, namespace, name string, patch StatusPatch) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshaling status patch: %w", err)
	}

	target := &workloadv1beta1.ExternalWorkload{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
	}
	return w.client.Status().Patch(ctx, target,
		client.RawPatch(types.MergePatchType, data),
		client.FieldOwner(FieldManager))
}
