package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/foxseedlab/voxqueue/external/httpform"
)

func doJSON(ctx context.Context, client *http.Client, method, url, contentType string, body io.Reader, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !httpform.IsSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("%s %s returned status %d: %s", method, url, resp.StatusCode, httpform.ErrorDetail(resp))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
