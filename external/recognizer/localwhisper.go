package recognizer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/voxqueue/external/httpform"
	"github.com/foxseedlab/voxqueue/internal/recognizer"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
)

const (
	localWhisperModel   = "base"
	localWhisperTimeout = 10 * time.Minute
)

// LocalWhisperEngine talks to a faster-whisper HTTP sidecar.
type LocalWhisperEngine struct {
	baseURL string
	client  *http.Client
}

func NewLocalWhisperEngine(baseURL string) *LocalWhisperEngine {
	return &LocalWhisperEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: localWhisperTimeout},
	}
}

type localWhisperResponse struct {
	Text     string                `json:"text"`
	Segments []transcriber.Segment `json:"segments"`
	Language string                `json:"language"`
}

func (e *LocalWhisperEngine) Model() transcriber.Model {
	return transcriber.ModelLocalWhisper
}

func (e *LocalWhisperEngine) Recognize(ctx context.Context, in recognizer.Input) (transcriber.Result, error) {
	fields := []httpform.Field{{Name: "model", Value: localWhisperModel}}
	if in.Prompt != "" {
		fields = append(fields, httpform.Field{Name: "initial_prompt", Value: in.Prompt})
	}
	body, contentType, err := httpform.Body{
		Fields: fields,
		Files:  []httpform.File{{FieldName: "audio", FileName: in.FileName, ContentType: in.Audio.MediaType, Data: in.Audio.Data}},
	}.Encode()
	if err != nil {
		return transcriber.Result{}, fmt.Errorf("encode whisper request: %w", err)
	}

	var res localWhisperResponse
	if err := doJSON(ctx, e.client, http.MethodPost, e.baseURL+"/transcribe", contentType, body, nil, &res); err != nil {
		return transcriber.Result{}, fmt.Errorf("whisper request: %w", err)
	}
	return transcriber.Result{Text: strings.TrimSpace(res.Text), Segments: trimSegments(res.Segments)}, nil
}
