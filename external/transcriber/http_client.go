package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/voxqueue/external/httpform"
	"github.com/foxseedlab/voxqueue/internal/audio"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
)

const (
	transcribePath    = "/api/transcribe"
	saveRecordingPath = "/api/save-recording"
)

type HTTPClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{},
	}
}

type transcribeResponse struct {
	Text     *string               `json:"text"`
	Segments []transcriber.Segment `json:"segments"`
}

type saveRecordingResponse struct {
	FileName string `json:"filename"`
}

func (c *HTTPClient) Transcribe(ctx context.Context, req transcriber.Request) (transcriber.Result, error) {
	fields := []httpform.Field{{Name: "model", Value: req.Model.String()}}
	if req.Prompt != "" {
		fields = append(fields, httpform.Field{Name: "prompt", Value: req.Prompt})
	}
	body := httpform.Body{
		Fields: fields,
		Files:  []httpform.File{audioPart(req.Audio, req.FileName)},
	}

	var res transcribeResponse
	if err := c.post(ctx, transcribePath, body, &res); err != nil {
		return transcriber.Result{}, err
	}
	if res.Text == nil {
		return transcriber.Result{}, fmt.Errorf("%w: response has no text", transcriber.ErrTranscriptionFailed)
	}
	slog.Debug("transcription response received", "file_name", req.FileName, "model", req.Model, "segments", len(res.Segments))
	return transcriber.Result{Text: *res.Text, Segments: res.Segments}, nil
}

func (c *HTTPClient) SaveRecording(ctx context.Context, blob audio.Blob, filename string) (string, error) {
	body := httpform.Body{
		Fields: []httpform.Field{{Name: "filename", Value: filename}},
		Files:  []httpform.File{audioPart(blob, filename)},
	}

	var res saveRecordingResponse
	if err := c.post(ctx, saveRecordingPath, body, &res); err != nil {
		return "", err
	}
	if strings.TrimSpace(res.FileName) == "" {
		return "", fmt.Errorf("%w: response has no filename", transcriber.ErrTranscriptionFailed)
	}
	return res.FileName, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body httpform.Body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, contentType, err := body.Encode()
	if err != nil {
		return fmt.Errorf("%w: failed to encode request: %w", transcriber.ErrTranscriptionFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %w", transcriber.ErrTranscriptionFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request to %s failed: %w", transcriber.ErrTranscriptionFailed, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !httpform.IsSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("%w: %s returned status %d: %s", transcriber.ErrTranscriptionFailed, path, resp.StatusCode, httpform.ErrorDetail(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response from %s: %w", transcriber.ErrTranscriptionFailed, path, err)
	}
	return nil
}

func audioPart(blob audio.Blob, fileName string) httpform.File {
	return httpform.File{
		FieldName:   "audio",
		FileName:    fileName,
		ContentType: blob.MediaType,
		Data:        blob.Data,
	}
}
