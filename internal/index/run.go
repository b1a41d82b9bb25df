package index

import (
	"context"

	"github.com/BuoyantIO/kubecon-controller/internal/watch"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Run folds events into idx, one call per event, in delivery order. It
// returns when the channel is closed or ctx is cancelled. Run must be the
// only caller of idx's write methods.
func Run[T any](ctx context.Context, idx Indexer[T], events <-chan watch.Event[T]) {
	logger := log.FromContext(ctx).WithName("index")
	logger.Info("Indexing started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Indexing stopped")
			return
		case ev, ok := <-events:
			if !ok {
				logger.Info("Event stream closed, indexing stopped")
				return
			}
			switch ev.Type {
			case watch.Applied:
				idx.Apply(ev.Object)
			case watch.Deleted:
				idx.Delete(ev.Key)
			default:
				logger.V(1).Info("Ignoring unknown event", "type", ev.Type, "key", ev.Key)
			}
		}
	}
}
