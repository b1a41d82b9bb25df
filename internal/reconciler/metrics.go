package reconciler

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	resultNoop        = "noop"
	resultPatched     = "patched"
	resultWriteFailed = "write_failed"
	resultInvalid     = "invalid"
)

var (
	reconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "externalworkload_reconcile_total",
		Help: "ExternalWorkload status reconciliations by outcome",
	}, []string{"result"})

	registerOnce sync.Once
)

func registerMetrics() {
	registerOnce.Do(func() {
		metrics.Registry.MustRegister(reconcileTotal)
	})
}
