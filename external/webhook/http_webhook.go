package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/voxqueue/external/httpform"
	"github.com/foxseedlab/voxqueue/internal/webhook"
)

const defaultWebhookTimeout = 30 * time.Second

var ErrWebhookRejected = errors.New("webhook rejected run report")

// HTTPSender posts run reports as JSON. An empty URL disables it.
type HTTPSender struct {
	url    string
	client *http.Client
}

func NewHTTPSender(url string) *HTTPSender {
	return &HTTPSender{
		url:    url,
		client: &http.Client{Timeout: defaultWebhookTimeout},
	}
}

func (s *HTTPSender) SendRunReport(ctx context.Context, report webhook.RunReport) error {
	if s.url == "" {
		slog.Debug("run report webhook disabled", "run_id", report.RunID)
		return nil
	}
	if report.SchemaVersion == "" {
		report.SchemaVersion = webhook.RunReportSchemaVersion
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post run report: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !httpform.IsSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("%w: status %d: %s", ErrWebhookRejected, resp.StatusCode, httpform.ErrorDetail(resp))
	}
	slog.Info("run report delivered", "run_id", report.RunID, "job_count", report.JobCount)
	return nil
}
