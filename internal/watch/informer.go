package watch

import (
	"context"
	"fmt"
	"sync"

	"github.com/BuoyantIO/kubecon-controller/internal/filter"
	"k8s.io/apimachinery/pkg/types"
	toolscache "k8s.io/client-go/tools/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// DefaultBufferSize is the capacity of the event channel returned by Start
const DefaultBufferSize = 100

// EventHandlerRegistrar is the part of a controller-runtime cache.Informer
// needed to subscribe to watch events.
type EventHandlerRegistrar interface {
	AddEventHandler(handler toolscache.ResourceEventHandler) (toolscache.ResourceEventHandlerRegistration, error)
	RemoveEventHandler(handle toolscache.ResourceEventHandlerRegistration) error
}

// Informer turns informer callbacks for objects of type T into a channel of
// Events. Events for a single key are delivered in the order the informer
// observed them.
type Informer[T client.Object] struct {
	informer EventHandlerRegistrar
	filter   *filter.ResourceFilter
	events   chan Event[T]

	mu      sync.RWMutex
	closed  bool
	started bool
}

// NewInformer creates an event source over informer. Objects rejected by f
// never reach the channel; a nil filter accepts everything.
func NewInformer[T client.Object](informer EventHandlerRegistrar, f *filter.ResourceFilter, bufferSize int) *Informer[T] {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Informer[T]{
		informer: informer,
		filter:   f,
		events:   make(chan Event[T], bufferSize),
	}
}

// Start registers the event handler and returns the event channel. The
// channel is closed once ctx is cancelled and the handler is removed. Start
// may only be called once.
func (i *Informer[T]) Start(ctx context.Context) (<-chan Event[T], error) {
	logger := log.FromContext(ctx).WithName("watch")

	i.mu.Lock()
	if i.started {
		i.mu.Unlock()
		return nil, fmt.Errorf("event source already started")
	}
	i.started = true
	i.mu.Unlock()

	registration, err := i.informer.AddEventHandler(&eventHandler[T]{ctx: ctx, source: i})
	if err != nil {
		return nil, fmt.Errorf("failed to add event handler: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := i.informer.RemoveEventHandler(registration); err != nil {
			logger.Error(err, "Failed to remove event handler")
		}

		// Senders hold the read lock, so no send can race with close.
		i.mu.Lock()
		i.closed = true
		close(i.events)
		i.mu.Unlock()
		logger.Info("Event source stopped")
	}()

	return i.events, nil
}

func (i *Informer[T]) send(ctx context.Context, ev Event[T]) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return
	}
	select {
	case i.events <- ev:
	case <-ctx.Done():
	}
}

// eventHandler implements toolscache.ResourceEventHandler
type eventHandler[T client.Object] struct {
	ctx    context.Context
	source *Informer[T]
}

func (h *eventHandler[T]) OnAdd(obj any, _ bool) {
	h.applied(obj)
}

func (h *eventHandler[T]) OnUpdate(_, newObj any) {
	h.applied(newObj)
}

func (h *eventHandler[T]) OnDelete(obj any) {
	if tombstone, ok := obj.(toolscache.DeletedFinalStateUnknown); ok {
		if typed, ok := tombstone.Obj.(T); ok {
			obj = typed
		} else {
			namespace, name, err := toolscache.SplitMetaNamespaceKey(tombstone.Key)
			if err != nil {
				log.FromContext(h.ctx).Error(err, "Ignoring tombstone with invalid key", "key", tombstone.Key)
				return
			}
			h.source.send(h.ctx, Event[T]{
				Type: Deleted,
				Key:  types.NamespacedName{Namespace: namespace, Name: name},
			})
			return
		}
	}

	typed, ok := obj.(T)
	if !ok {
		return
	}
	// Deletes are not filtered; a missed relabel would otherwise leave the key indexed.
	h.source.send(h.ctx, Event[T]{Type: Deleted, Key: client.ObjectKeyFromObject(typed)})
}

func (h *eventHandler[T]) applied(obj any) {
	typed, ok := obj.(T)
	if !ok {
		return
	}
	key := client.ObjectKeyFromObject(typed)
	if !h.source.filter.Matches(typed) {
		// An object relabelled out of scope must not linger in the index.
		h.source.send(h.ctx, Event[T]{Type: Deleted, Key: key})
		return
	}
	h.source.send(h.ctx, Event[T]{Type: Applied, Key: key, Object: typed})
}
