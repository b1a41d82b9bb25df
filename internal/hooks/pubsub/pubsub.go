package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/pubsub/v2"
	"github.com/BuoyantIO/kubecon-controller/internal/model"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// PubSubPublisher sends readiness records to Google Cloud Pub/Sub
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicPath string
	clusterID string
}

// ParseTopicPath parses a full Pub/Sub topic path and returns projectID and topicID.
// Expected format: projects/<project>/topics/<topic>
func ParseTopicPath(topicPath string) (projectID, topicID string, err error) {
	parts := strings.Split(topicPath, "/")
	if len(parts) != 4 || parts[0] != "projects" || parts[2] != "topics" || parts[1] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("invalid topic path %q: expected format projects/<project>/topics/<topic>", topicPath)
	}
	return parts[1], parts[3], nil
}

// NewPubSubPublisher creates a new Google Cloud Pub/Sub publisher.
//
// Authentication is handled via Application Default Credentials (ADC):
//   - Workload Identity (GKE): Auto-detected from metadata server (recommended)
//   - Service Account JSON key: Set GOOGLE_APPLICATION_CREDENTIALS env var
//   - Default credentials: gcloud auth application-default login
func NewPubSubPublisher(ctx context.Context, topicPath, clusterID string) (*PubSubPublisher, error) {
	projectID, topicID, err := ParseTopicPath(topicPath)
	if err != nil {
		return nil, err
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	// Records for the same workload must be delivered in the order they were
	// published. The subscription must also have message ordering enabled.
	publisher := client.Publisher(topicID)
	publisher.EnableMessageOrdering = true

	return &PubSubPublisher{
		client:    client,
		publisher: publisher,
		topicPath: topicPath,
		clusterID: clusterID,
	}, nil
}

// orderingKey has the format cluster/namespace/workload_name
func orderingKey(clusterID string, ref model.WorkloadRef) string {
	return fmt.Sprintf("%s/%s/%s", clusterID, ref.Namespace, ref.Name)
}

func attributes(record model.ReadinessRecord) map[string]string {
	return map[string]string{
		"cluster_name":  record.Source.ClusterID,
		"namespace":     record.Workload.Namespace,
		"workload_name": record.Workload.Name,
		"message_type":  record.MessageType,
		"ready":         strconv.FormatBool(record.Ready),
	}
}

// PublishBatch publishes each record as its own message and waits for all of
// them to be acknowledged by the server.
func (p *PubSubPublisher) PublishBatch(ctx context.Context, records []model.ReadinessRecord) error {
	logger := log.FromContext(ctx)

	type pending struct {
		key    string
		result *pubsub.PublishResult
	}
	results := make([]pending, 0, len(records))

	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal readiness record %s: %w", record.EventID, err)
		}

		key := orderingKey(p.clusterID, record.Workload)
		results = append(results, pending{
			key: key,
			result: p.publisher.Publish(ctx, &pubsub.Message{
				Data:        data,
				Attributes:  attributes(record),
				OrderingKey: key,
			}),
		})
	}

	var errs []error
	for _, r := range results {
		if _, err := r.result.Get(ctx); err != nil {
			// A failed ordering key stays paused until resumed.
			p.publisher.ResumePublish(r.key)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to publish %d of %d readiness records to pubsub: %w",
			len(errs), len(records), errors.Join(errs...))
	}

	logger.V(1).Info("Readiness records published to Google Pub/Sub",
		"topic", p.topicPath,
		"recordCount", len(records),
	)
	return nil
}

// Close flushes pending messages, stops the publisher and closes the client
func (p *PubSubPublisher) Close() error {
	if p.publisher != nil {
		p.publisher.Stop()
	}
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
