package index

import (
	"sort"
	"sync"

	workloadv1beta1 "github.com/BuoyantIO/kubecon-controller/api/v1beta1"
	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
)

// Indexer is implemented by anything that can fold watch events for
// resources of type T into its own state.
type Indexer[T any] interface {
	Apply(obj T)
	Delete(key types.NamespacedName)
}

// state is the mapping shared between the single writer and all readers.
// A key is present iff the last applied object for it was ready.
type state struct {
	mu    sync.RWMutex
	byKey map[types.NamespacedName]bool
}

// Index holds ExternalWorkload readiness by namespaced name. It is owned and
// updated by a single task that processes watch events; every other task
// observes it through a Reader.
type Index struct {
	state *state
	log   logr.Logger
}

var _ Indexer[*workloadv1beta1.ExternalWorkload] = (*Index)(nil)

// New creates an empty readiness index
func New() *Index {
	return &Index{
		state: &state{byKey: make(map[types.NamespacedName]bool)},
		log:   ctrl.Log.WithName("index"),
	}
}

// Reader returns a read-only handle over the index. Readers may be shared
// across goroutines.
func (i *Index) Reader() *Reader {
	return &Reader{state: i.state}
}

// Apply records whether the workload currently carries a Ready/True condition.
// Unready workloads are removed rather than stored as false.
func (i *Index) Apply(workload *workloadv1beta1.ExternalWorkload) {
	if workload == nil {
		return
	}
	key := types.NamespacedName{Namespace: workload.Namespace, Name: workload.Name}
	ready := workload.HasReadyCondition()

	i.state.mu.Lock()
	if ready {
		i.state.byKey[key] = true
	} else {
		delete(i.state.byKey, key)
	}
	i.state.mu.Unlock()

	if ready {
		i.log.V(1).Info("Found ready workload", "namespace", key.Namespace, "name", key.Name)
	} else {
		i.log.V(1).Info("Found unready workload", "namespace", key.Namespace, "name", key.Name)
	}
}

// Delete drops the key from the index. Deleting an absent key is a no-op.
func (i *Index) Delete(key types.NamespacedName) {
	i.state.mu.Lock()
	delete(i.state.byKey, key)
	i.state.mu.Unlock()

	i.log.V(1).Info("Removed workload", "namespace", key.Namespace, "name", key.Name)
}

// Reader is a read-only view of an Index. Each call observes a consistent
// snapshot; two calls are not consistent with each other across a write.
type Reader struct {
	state *state
}

// IsReady returns (true, true) for a workload last seen ready. found is false
// both for workloads known to be unready and for workloads never observed.
func (r *Reader) IsReady(key types.NamespacedName) (ready bool, found bool) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	ready, found = r.state.byKey[key]
	return ready, found
}

// List returns the keys of all ready workloads, sorted by namespace and name.
func (r *Reader) List() []types.NamespacedName {
	r.state.mu.RLock()
	keys := make([]types.NamespacedName, 0, len(r.state.byKey))
	for key := range r.state.byKey {
		keys = append(keys, key)
	}
	r.state.mu.RUnlock()

	sort.Slice(keys, func(a, b int) bool {
		if keys[a].Namespace != keys[b].Namespace {
			return keys[a].Namespace < keys[b].Namespace
		}
		return keys[a].Name < keys[b].Name
	})
	return keys
}

// Len returns the number of ready workloads
func (r *Reader) Len() int {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	return len(r.state.byKey)
}
