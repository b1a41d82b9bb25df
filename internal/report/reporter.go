package report

import (
	"context"
	"time"

	"github.com/BuoyantIO/kubecon-controller/internal/model"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Config holds configuration for the readiness reporter
type Config struct {
	Interval          time.Duration
	ClusterID         string
	ControllerVersion string
}

// DefaultConfig returns the default reporter configuration
func DefaultConfig() Config {
	return Config{
		Interval: 3 * time.Second,
	}
}

// ReadinessReader is the read side of the readiness index
type ReadinessReader interface {
	List() []types.NamespacedName
	IsReady(key types.NamespacedName) (ready bool, found bool)
}

// Reporter periodically walks the readiness index and emits one record per
// listed workload.
type Reporter struct {
	config  Config
	reader  ReadinessReader
	records chan<- model.ReadinessRecord

	// reported holds the keys exported as gauge series by the last report
	reported map[types.NamespacedName]struct{}
}

// NewReporter creates a new readiness reporter. records may be nil when no
// publishers are configured.
func NewReporter(config Config, reader ReadinessReader, records chan<- model.ReadinessRecord) *Reporter {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	registerMetrics()

	return &Reporter{
		config:   config,
		reader:   reader,
		records:  records,
		reported: make(map[types.NamespacedName]struct{}),
	}
}

// Start runs the reporting loop until ctx is cancelled. It satisfies
// manager.Runnable.
func (r *Reporter) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("readiness-reporter")

	logger.Info("Starting readiness reporter", "interval", r.config.Interval)

	r.report(ctx)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.report(ctx)
		case <-ctx.Done():
			logger.Info("Readiness reporter stopped")
			return nil
		}
	}
}

func (r *Reporter) report(ctx context.Context) {
	logger := log.FromContext(ctx).WithName("readiness-reporter")

	keys := r.reader.List()
	current := make(map[types.NamespacedName]struct{}, len(keys))
	dropped := 0

	for _, key := range keys {
		// The key may have been removed since List; that reads as not ready.
		ready, _ := r.reader.IsReady(key)
		logger.Info("Checking for readiness", "namespace", key.Namespace, "name", key.Name, "ready", ready)

		current[key] = struct{}{}
		workloadReadyGauge.WithLabelValues(key.Namespace, key.Name).Set(boolToFloat(ready))
		if !r.emit(ctx, key, ready) {
			dropped++
		}
	}

	if dropped > 0 {
		logger.Error(nil, "Record channel full, dropped readiness records",
			"dropped", dropped, "listed", len(keys))
	}

	for key := range r.reported {
		if _, ok := current[key]; !ok {
			workloadReadyGauge.DeleteLabelValues(key.Namespace, key.Name)
		}
	}
	r.reported = current
	readyWorkloadsGauge.Set(float64(len(keys)))
}

// emit queues a record without blocking. It returns false if the record was
// dropped because the channel is full.
func (r *Reporter) emit(ctx context.Context, key types.NamespacedName, ready bool) bool {
	if r.records == nil {
		return true
	}
	record := model.NewReadinessRecord(key, ready, r.config.ClusterID, r.config.ControllerVersion)
	select {
	case r.records <- record:
		return true
	default:
		log.FromContext(ctx).V(1).Info("Dropping readiness record",
			"namespace", key.Namespace, "name", key.Name)
		return false
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
