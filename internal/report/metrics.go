package report

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	workloadReadyGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "externalworkload_ready",
		Help: "Readiness of an ExternalWorkload as last observed by the index (1 ready, 0 not ready)",
	}, []string{
		"namespace",
		"name",
	})

	readyWorkloadsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "externalworkload_ready_workloads",
		Help: "Number of ExternalWorkloads listed as ready in the index at the last report",
	})

	registerOnce sync.Once
)

func registerMetrics() {
	registerOnce.Do(func() {
		metrics.Registry.MustRegister(workloadReadyGauge, readyWorkloadsGauge)
	})
}
