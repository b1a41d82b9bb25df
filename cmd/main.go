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

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BuoyantIO/kubecon-controller/internal/buildinfo"
	"github.com/BuoyantIO/kubecon-controller/internal/cluster"
	"github.com/BuoyantIO/kubecon-controller/internal/filter"
	"github.com/BuoyantIO/kubecon-controller/internal/hooks"
	"github.com/BuoyantIO/kubecon-controller/internal/hooks/controlplane"
	"github.com/BuoyantIO/kubecon-controller/internal/hooks/pubsub"
	"github.com/BuoyantIO/kubecon-controller/internal/index"
	"github.com/BuoyantIO/kubecon-controller/internal/model"
	"github.com/BuoyantIO/kubecon-controller/internal/reconciler"
	"github.com/BuoyantIO/kubecon-controller/internal/report"
	"github.com/BuoyantIO/kubecon-controller/internal/watch"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	"sigs.k8s.io/controller-runtime/pkg/metrics/filters"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	workloadv1beta1 "github.com/BuoyantIO/kubecon-controller/api/v1beta1"
	// +kubebuilder:scaffold:imports
)

const eventRecorderName = "kubecon-controller"

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

// config holds all command-line configuration
type config struct {
	metricsAddr             string
	enableLeaderElection    bool
	probeAddr               string
	secureMetrics           bool
	enableHTTP2             bool
	enableStatusController  bool
	enableIndex             bool
	reportInterval          time.Duration
	maxConcurrentReconciles int
	controlPlaneURL         string
	clusterID               string
	pubsubTopic             string
	watchNamespaces         string
	excludeNamespaces       string
	requireLabels           string
	excludeLabels           string
}

// closer is implemented by publishers holding network clients
type closer interface {
	Close() error
}

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(workloadv1beta1.AddToScheme(scheme))
	// +kubebuilder:scaffold:scheme
}

func main() {
	cfg := parseFlags()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zap.Options{Development: true})))

	mgr := setupManager(cfg)
	controllerVersion := buildinfo.ControllerVersion()
	resourceFilter := setupFilter(cfg)

	if cfg.enableIndex {
		publishers, closers := setupPublishers(&cfg)
		defer closeAll(closers)

		records := startPublisherQueue(mgr, publishers)
		idx := setupIndex(mgr, resourceFilter)
		setupReporter(mgr, cfg, idx, records, controllerVersion)
	}

	if cfg.enableStatusController {
		setupStatusReconciler(mgr, cfg, resourceFilter)
	}

	// +kubebuilder:scaffold:builder

	setupHealthChecks(mgr)

	setupLog.Info("starting manager", "version", controllerVersion)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}

func parseFlags() config {
	var cfg config

	flag.StringVar(&cfg.metricsAddr, "metrics-bind-address", ":8080", "The address the metrics endpoint binds to. "+
		"Use :8443 for HTTPS or :8080 for HTTP, or leave as 0 to disable the metrics service.")
	flag.StringVar(&cfg.probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.BoolVar(&cfg.enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	flag.BoolVar(&cfg.secureMetrics, "metrics-secure", false,
		"If set, the metrics endpoint is served securely via HTTPS. Use --metrics-secure=false to use HTTP instead.")
	flag.BoolVar(&cfg.enableHTTP2, "enable-http2", false,
		"If set, HTTP/2 will be enabled for the metrics and webhook servers")

	flag.BoolVar(&cfg.enableStatusController, "enable-status-controller", true,
		"Run the controller that marks new ExternalWorkloads ready")
	flag.BoolVar(&cfg.enableIndex, "enable-index", true,
		"Maintain the in-memory readiness index and report it periodically")
	flag.DurationVar(&cfg.reportInterval, "report-interval", report.DefaultConfig().Interval,
		"How often the readiness index is walked and reported")
	flag.IntVar(&cfg.maxConcurrentReconciles, "max-concurrent-reconciles", 2,
		"Maximum number of ExternalWorkloads reconciled in parallel")

	flag.StringVar(&cfg.controlPlaneURL, "controlplane-url", "",
		"The URL readiness records are posted to (e.g., http://controlplane:3000/ingest/v1/readiness)")
	flag.StringVar(&cfg.clusterID, "cluster-id", os.Getenv("CLUSTER_ID"),
		"Unique identifier for this cluster (e.g., staging.stg01). Resolved from GKE metadata when unset")
	flag.StringVar(&cfg.pubsubTopic, "pubsub-topic", os.Getenv("PUBSUB_TOPIC"),
		"Google Cloud Pub/Sub topic path (projects/<project>/topics/<topic>)")

	flag.StringVar(&cfg.watchNamespaces, "watch-namespaces", "",
		"Comma-separated list of namespace patterns to watch (e.g., 'production-*,staging-*')")
	flag.StringVar(&cfg.excludeNamespaces, "exclude-namespaces", strings.Join(filter.DefaultExcludedNamespaces(), ","),
		"Comma-separated list of namespace patterns to exclude")
	flag.StringVar(&cfg.requireLabels, "require-labels", "",
		"Comma-separated list of label keys that must be present (e.g., 'app.kubernetes.io/managed-by')")
	flag.StringVar(&cfg.excludeLabels, "exclude-labels", "",
		"Comma-separated list of label key=value pairs that cause exclusion (e.g., 'workload.linkerd.io/ignore=true')")

	opts := zap.Options{Development: true}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	return cfg
}

func setupManager(cfg config) ctrl.Manager {
	var tlsOpts []func(*tls.Config)

	if !cfg.enableHTTP2 {
		disableHTTP2 := func(c *tls.Config) {
			setupLog.Info("disabling http/2")
			c.NextProtos = []string{"http/1.1"}
		}
		tlsOpts = append(tlsOpts, disableHTTP2)
	}

	webhookServer := webhook.NewServer(webhook.Options{
		TLSOpts: tlsOpts,
	})

	metricsServerOptions := metricsserver.Options{
		BindAddress:   cfg.metricsAddr,
		SecureServing: cfg.secureMetrics,
		TLSOpts:       tlsOpts,
	}

	if cfg.secureMetrics {
		metricsServerOptions.FilterProvider = filters.WithAuthenticationAndAuthorization
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsServerOptions,
		WebhookServer:          webhookServer,
		HealthProbeBindAddress: cfg.probeAddr,
		LeaderElection:         cfg.enableLeaderElection,
		LeaderElectionID:       "7d3e5a21.workload.linkerd.io",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	return mgr
}

func setupFilter(cfg config) *filter.ResourceFilter {
	filterConfig := filter.ResourceFilterConfig{
		WatchNamespaces:   splitAndTrim(cfg.watchNamespaces),
		ExcludeNamespaces: splitAndTrim(cfg.excludeNamespaces),
		RequireLabels:     splitAndTrim(cfg.requireLabels),
		ExcludeLabels:     splitAndTrim(cfg.excludeLabels),
	}
	resourceFilter, err := filter.NewResourceFilter(filterConfig)
	if err != nil {
		setupLog.Error(err, "invalid resource filter")
		os.Exit(1)
	}
	setupLog.Info("Resource filter configured",
		"watchNamespaces", filterConfig.WatchNamespaces,
		"excludeNamespaces", filterConfig.ExcludeNamespaces,
		"labelSelector", resourceFilter.Selector().String(),
	)
	return resourceFilter
}

func setupPublishers(cfg *config) ([]hooks.ReadinessPublisher, []closer) {
	var publishers []hooks.ReadinessPublisher
	var closers []closer

	if cfg.controlPlaneURL == "" && cfg.pubsubTopic == "" {
		setupLog.Info("No readiness publishers configured, readiness will only be exported as metrics")
		return nil, nil
	}

	if cfg.clusterID == "" {
		cfg.clusterID = resolveClusterID()
	}

	if cfg.controlPlaneURL != "" {
		cpPublisher := controlplane.NewHTTPPublisher(cfg.controlPlaneURL)
		publishers = append(publishers, cpPublisher)
		closers = append(closers, cpPublisher)
		setupLog.Info("Control Plane publisher enabled",
			"endpoint", cfg.controlPlaneURL,
			"clusterID", cfg.clusterID)
	}

	if cfg.pubsubTopic != "" {
		ctx := context.Background()
		pubsubPublisher, err := pubsub.NewPubSubPublisher(ctx, cfg.pubsubTopic, cfg.clusterID)
		if err != nil {
			setupLog.Error(err, "unable to create Pub/Sub publisher",
				"hint", "Ensure valid credentials via Workload Identity, GOOGLE_APPLICATION_CREDENTIALS, or gcloud auth")
			os.Exit(1)
		}
		publishers = append(publishers, pubsubPublisher)
		closers = append(closers, pubsubPublisher)
		setupLog.Info("Google Pub/Sub publisher enabled",
			"topic", cfg.pubsubTopic,
			"clusterID", cfg.clusterID)
	}

	return publishers, closers
}

func resolveClusterID() string {
	resolverConfig := cluster.DefaultConfig()
	resolver := cluster.NewResolver(resolverConfig)
	defer func() { _ = resolver.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 4*resolverConfig.Timeout)
	defer cancel()

	info, err := resolver.Resolve(ctx)
	if err != nil {
		setupLog.Error(err, "cluster-id is required when a readiness publisher is enabled")
		os.Exit(1)
	}
	setupLog.Info("Resolved cluster ID from metadata server", "clusterID", info.ClusterID)
	return info.ClusterID
}

func startPublisherQueue(mgr ctrl.Manager, publishers []hooks.ReadinessPublisher) chan model.ReadinessRecord {
	if len(publishers) == 0 {
		return nil
	}

	records := make(chan model.ReadinessRecord, 1000)
	queue := hooks.NewReadinessPublisherQueue(records, publishers, hooks.DefaultBatchConfig())
	if err := mgr.Add(queue); err != nil {
		setupLog.Error(err, "unable to add readiness publisher queue")
		os.Exit(1)
	}
	setupLog.Info("Readiness publisher queue enabled", "publishers", len(publishers))
	return records
}

func setupIndex(mgr ctrl.Manager, resourceFilter *filter.ResourceFilter) *index.Index {
	idx := index.New()

	err := mgr.Add(manager.RunnableFunc(func(ctx context.Context) error {
		informer, err := mgr.GetCache().GetInformer(ctx, &workloadv1beta1.ExternalWorkload{})
		if err != nil {
			return fmt.Errorf("getting ExternalWorkload informer: %w", err)
		}

		source := watch.NewInformer[*workloadv1beta1.ExternalWorkload](informer, resourceFilter, watch.DefaultBufferSize)
		events, err := source.Start(ctx)
		if err != nil {
			return err
		}

		index.Run(ctx, idx, events)
		return nil
	}))
	if err != nil {
		setupLog.Error(err, "unable to add readiness index")
		os.Exit(1)
	}

	return idx
}

func setupReporter(mgr ctrl.Manager, cfg config, idx *index.Index, records chan<- model.ReadinessRecord, controllerVersion string) {
	reporter := report.NewReporter(report.Config{
		Interval:          cfg.reportInterval,
		ClusterID:         cfg.clusterID,
		ControllerVersion: controllerVersion,
	}, idx.Reader(), records)

	if err := mgr.Add(reporter); err != nil {
		setupLog.Error(err, "unable to add readiness reporter")
		os.Exit(1)
	}
	setupLog.Info("Readiness reporter enabled", "interval", cfg.reportInterval)
}

func setupStatusReconciler(mgr ctrl.Manager, cfg config, resourceFilter *filter.ResourceFilter) {
	statusReconciler := reconciler.NewStatusReconciler(
		mgr.GetClient(),
		mgr.GetScheme(),
		mgr.GetEventRecorderFor(eventRecorderName),
		resourceFilter)

	if err := statusReconciler.SetupWithManager(mgr, cfg.maxConcurrentReconciles); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "ExternalWorkloadStatus")
		os.Exit(1)
	}
	setupLog.Info("Status controller enabled", "maxConcurrentReconciles", cfg.maxConcurrentReconciles)
}

func setupHealthChecks(mgr ctrl.Manager) {
	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}
}

func closeAll(closers []closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			setupLog.Error(err, "failed to close publisher")
		}
	}
}

// splitAndTrim splits a comma-separated string and trims whitespace from each element
func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
