package controlplane

import (
	"context"
	"fmt"
	"time"

	"github.com/BuoyantIO/kubecon-controller/internal/model"
	"resty.dev/v3"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// HTTPPublisher sends readiness records to a control plane via HTTP
type HTTPPublisher struct {
	client   *resty.Client
	endpoint string
}

// NewHTTPPublisher creates a new HTTP publisher for the control plane
func NewHTTPPublisher(endpoint string) *HTTPPublisher {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &HTTPPublisher{
		client:   client,
		endpoint: endpoint,
	}
}

// PublishBatch sends a batch of readiness records to the control plane
func (p *HTTPPublisher) PublishBatch(ctx context.Context, records []model.ReadinessRecord) error {
	logger := log.FromContext(ctx)

	if len(records) == 0 {
		return nil
	}

	logger.V(1).Info("Publishing readiness records to control plane",
		"endpoint", p.endpoint,
		"recordCount", len(records),
	)

	var errorResponse map[string]any
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(model.ReadinessBatchPayload{Records: records}).
		SetError(&errorResponse).
		Post(p.endpoint)

	if err != nil {
		return fmt.Errorf("failed to send readiness records to control plane: %w", err)
	}

	if !resp.IsSuccess() {
		logger.Error(nil, "Control plane returned error",
			"statusCode", resp.StatusCode(),
			"status", resp.Status(),
			"error", errorResponse,
			"endpoint", p.endpoint,
		)
		return fmt.Errorf("control plane returned error status %d: %s", resp.StatusCode(), resp.String())
	}

	logger.V(1).Info("Readiness records published to control plane",
		"endpoint", p.endpoint,
		"statusCode", resp.StatusCode(),
		"recordCount", len(records),
	)

	return nil
}

// Close releases the underlying HTTP client
func (p *HTTPPublisher) Close() error {
	return p.client.Close()
}
