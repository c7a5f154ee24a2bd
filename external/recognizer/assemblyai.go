package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/voxqueue/internal/recognizer"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
)

const (
	assemblyAIRequestTimeout = 2 * time.Minute
	assemblyAIStatusDone     = "completed"
	assemblyAIStatusError    = "error"
)

// AssemblyAIEngine uploads the audio, creates a transcript and polls it
// until AssemblyAI reports completed or error.
type AssemblyAIEngine struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	client       *http.Client
}

func NewAssemblyAIEngine(baseURL, apiKey string, pollInterval time.Duration) *AssemblyAIEngine {
	return &AssemblyAIEngine{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		pollInterval: pollInterval,
		client:       &http.Client{Timeout: assemblyAIRequestTimeout},
	}
}

type assemblyAIUploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type assemblyAITranscriptRequest struct {
	AudioURL string `json:"audio_url"`
	Prompt   string `json:"prompt,omitempty"`
}

type assemblyAITranscript struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

type assemblyAISentences struct {
	Sentences []struct {
		Text  string `json:"text"`
		Start int64  `json:"start"`
		End   int64  `json:"end"`
	} `json:"sentences"`
}

func (e *AssemblyAIEngine) Model() transcriber.Model {
	return transcriber.ModelAssemblyAI
}

func (e *AssemblyAIEngine) Recognize(ctx context.Context, in recognizer.Input) (transcriber.Result, error) {
	var upload assemblyAIUploadResponse
	if err := doJSON(ctx, e.client, http.MethodPost, e.baseURL+"/v2/upload", "application/octet-stream", bytes.NewReader(in.Audio.Data), e.headers(), &upload); err != nil {
		return transcriber.Result{}, fmt.Errorf("assemblyai upload: %w", err)
	}

	payload, err := json.Marshal(assemblyAITranscriptRequest{AudioURL: upload.UploadURL, Prompt: in.Prompt})
	if err != nil {
		return transcriber.Result{}, err
	}
	var created assemblyAITranscript
	if err := doJSON(ctx, e.client, http.MethodPost, e.baseURL+"/v2/transcript", "application/json", bytes.NewReader(payload), e.headers(), &created); err != nil {
		return transcriber.Result{}, fmt.Errorf("assemblyai create transcript: %w", err)
	}
	slog.Debug("assemblyai transcript created", "transcript_id", created.ID, "file_name", in.FileName)

	done, err := e.waitForTranscript(ctx, created)
	if err != nil {
		return transcriber.Result{}, err
	}

	var sentences assemblyAISentences
	if err := doJSON(ctx, e.client, http.MethodGet, e.baseURL+"/v2/transcript/"+done.ID+"/sentences", "", nil, e.headers(), &sentences); err != nil {
		return transcriber.Result{}, fmt.Errorf("assemblyai sentences: %w", err)
	}
	var segments []transcriber.Segment
	for _, s := range sentences.Sentences {
		segments = append(segments, transcriber.Segment{
			Text:  strings.TrimSpace(s.Text),
			Start: float64(s.Start) / 1000,
			End:   float64(s.End) / 1000,
		})
	}
	return transcriber.Result{Text: strings.TrimSpace(done.Text), Segments: segments}, nil
}

func (e *AssemblyAIEngine) waitForTranscript(ctx context.Context, t assemblyAITranscript) (assemblyAITranscript, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		switch t.Status {
		case assemblyAIStatusDone:
			return t, nil
		case assemblyAIStatusError:
			return t, fmt.Errorf("assemblyai transcript %s failed: %s", t.ID, t.Error)
		}
		select {
		case <-ctx.Done():
			return t, ctx.Err()
		case <-ticker.C:
		}
		var next assemblyAITranscript
		if err := doJSON(ctx, e.client, http.MethodGet, e.baseURL+"/v2/transcript/"+t.ID, "", nil, e.headers(), &next); err != nil {
			return t, fmt.Errorf("assemblyai poll: %w", err)
		}
		t = next
	}
}

func (e *AssemblyAIEngine) headers() map[string]string {
	return map[string]string{"Authorization": e.apiKey}
}
