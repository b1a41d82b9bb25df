package hooks

import (
	"context"
	"sync"
	"time"

	"github.com/BuoyantIO/kubecon-controller/internal/model"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// shutdownFlushTimeout bounds the final flush once the queue's context is done
const shutdownFlushTimeout = 10 * time.Second

// BatchConfig holds configuration for record batching
type BatchConfig struct {
	FlushWindow  time.Duration // Time window for batching records
	MaxBatchSize int           // Maximum records per batch
}

// DefaultBatchConfig returns the default batching configuration
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		FlushWindow:  2 * time.Second,
		MaxBatchSize: 100,
	}
}

// ReadinessPublisher is the interface for publishing readiness records (batched)
type ReadinessPublisher interface {
	PublishBatch(ctx context.Context, records []model.ReadinessRecord) error
}

// ReadinessPublisherQueue batches readiness records and fans them out to
// every publisher.
type ReadinessPublisherQueue struct {
	recordChan <-chan model.ReadinessRecord
	publishers []ReadinessPublisher
	config     BatchConfig

	mu     sync.Mutex
	buffer []model.ReadinessRecord
	timer  *time.Timer
}

// NewReadinessPublisherQueue creates a new batching readiness publisher queue
func NewReadinessPublisherQueue(
	recordChan <-chan model.ReadinessRecord,
	publishers []ReadinessPublisher,
	config BatchConfig,
) *ReadinessPublisherQueue {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = DefaultBatchConfig().MaxBatchSize
	}
	return &ReadinessPublisherQueue{
		recordChan: recordChan,
		publishers: publishers,
		config:     config,
		buffer:     make([]model.ReadinessRecord, 0, config.MaxBatchSize),
	}
}

// Start runs the processing loop until ctx is cancelled or the record
// channel is closed, then flushes whatever is buffered. It satisfies
// manager.Runnable.
func (q *ReadinessPublisherQueue) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("readiness-publisher")

	logger.Info("Readiness publisher queue started",
		"publishers", len(q.publishers),
		"flushWindow", q.config.FlushWindow,
		"maxBatchSize", q.config.MaxBatchSize,
	)

	for {
		select {
		case record, ok := <-q.recordChan:
			if !ok {
				q.shutdownFlush(ctx)
				return nil
			}
			q.addRecord(ctx, record)

		case <-ctx.Done():
			q.shutdownFlush(ctx)
			logger.Info("Readiness publisher queue stopped")
			return nil
		}
	}
}

func (q *ReadinessPublisherQueue) shutdownFlush(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
	defer cancel()
	q.flush(flushCtx)
}

func (q *ReadinessPublisherQueue) addRecord(ctx context.Context, record model.ReadinessRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.buffer = append(q.buffer, record)

	// Start timer on first record
	if len(q.buffer) == 1 {
		q.timer = time.AfterFunc(q.config.FlushWindow, func() {
			q.flush(ctx)
		})
	}

	if len(q.buffer) >= q.config.MaxBatchSize {
		q.flushLocked(ctx)
	}
}

func (q *ReadinessPublisherQueue) flush(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flushLocked(ctx)
}

func (q *ReadinessPublisherQueue) flushLocked(ctx context.Context) {
	if len(q.buffer) == 0 {
		return
	}

	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}

	logger := log.FromContext(ctx)

	records := make([]model.ReadinessRecord, len(q.buffer))
	copy(records, q.buffer)
	q.buffer = q.buffer[:0]

	logger.Info("Flushing readiness record batch",
		"recordCount", len(records),
		"publishers", len(q.publishers),
	)

	for _, publisher := range q.publishers {
		if err := publisher.PublishBatch(ctx, records); err != nil {
			logger.Error(err, "Failed to publish readiness record batch")
		}
	}
}
