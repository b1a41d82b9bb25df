package cluster

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"resty.dev/v3"
)

const (
	gkeMetadataURL    = "http://metadata.google.internal/computeMetadata/v1"
	gkeMetadataFlavor = "Google"
)

// ErrNotOnGKE is returned when the GCP metadata server cannot be reached
var ErrNotOnGKE = errors.New("GCP metadata server not detected")

// Info identifies the cluster the controller runs in
type Info struct {
	ClusterID   string
	ClusterName string
	ProjectID   string
	Region      string
}

// Config holds configuration for the metadata resolver
type Config struct {
	// Timeout for each metadata request
	Timeout     time.Duration
	MetadataURL string
}

// DefaultConfig returns the default resolver configuration
func DefaultConfig() Config {
	return Config{
		Timeout:     3 * time.Second,
		MetadataURL: gkeMetadataURL,
	}
}

// Resolver derives a cluster ID from the GKE metadata server. It is used when
// no cluster ID is configured and a publisher needs one.
type Resolver struct {
	client *resty.Client
}

// NewResolver creates a resolver for the configured metadata endpoint
func NewResolver(cfg Config) *Resolver {
	if cfg.MetadataURL == "" {
		cfg.MetadataURL = gkeMetadataURL
	}
	client := resty.New().
		SetBaseURL(cfg.MetadataURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Metadata-Flavor", gkeMetadataFlavor)

	return &Resolver{client: client}
}

// Resolve returns cluster information in the form gcp/<project>/<region>/<cluster>
func (r *Resolver) Resolve(ctx context.Context) (*Info, error) {
	if !r.detect(ctx) {
		return nil, ErrNotOnGKE
	}

	clusterName, err := r.get(ctx, "/instance/attributes/cluster-name")
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster-name: %w", err)
	}
	projectID, err := r.get(ctx, "/project/project-id")
	if err != nil {
		return nil, fmt.Errorf("failed to get project-id: %w", err)
	}
	// projects/<project-number>/zones/<zone>
	zone, err := r.get(ctx, "/instance/zone")
	if err != nil {
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}
	region := regionFromZone(path.Base(zone))

	return &Info{
		ClusterID:   fmt.Sprintf("gcp/%s/%s/%s", projectID, region, clusterName),
		ClusterName: clusterName,
		ProjectID:   projectID,
		Region:      region,
	}, nil
}

// Close releases the underlying HTTP client
func (r *Resolver) Close() error {
	return r.client.Close()
}

func (r *Resolver) detect(ctx context.Context) bool {
	resp, err := r.client.R().SetContext(ctx).Get("/")
	if err != nil {
		return false
	}
	return resp.IsSuccess() && resp.Header().Get("Metadata-Flavor") == gkeMetadataFlavor
}

func (r *Resolver) get(ctx context.Context, p string) (string, error) {
	resp, err := r.client.R().SetContext(ctx).Get(p)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("metadata request failed with status %d", resp.StatusCode())
	}
	return strings.TrimSpace(resp.String()), nil
}

// regionFromZone strips the zone suffix (us-central1-a -> us-central1)
func regionFromZone(zone string) string {
	lastDash := strings.LastIndex(zone, "-")
	if lastDash == -1 {
		return zone
	}
	return zone[:lastDash]
}
