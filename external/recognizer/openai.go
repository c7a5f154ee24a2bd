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
	openAITranscriptionsPath = "/v1/audio/transcriptions"
	openAITimeout            = 10 * time.Minute
)

// OpenAIEngine calls the OpenAI audio transcription API with verbose_json so
// segment timings are returned.
type OpenAIEngine struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewOpenAIEngine(baseURL, apiKey, model string) *OpenAIEngine {
	return &OpenAIEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: openAITimeout},
	}
}

type openAIResponse struct {
	Text     string                `json:"text"`
	Segments []transcriber.Segment `json:"segments"`
}

func (e *OpenAIEngine) Model() transcriber.Model {
	return transcriber.ModelWhisper
}

func (e *OpenAIEngine) Recognize(ctx context.Context, in recognizer.Input) (transcriber.Result, error) {
	fields := []httpform.Field{
		{Name: "model", Value: e.model},
		{Name: "response_format", Value: "verbose_json"},
	}
	if in.Prompt != "" {
		fields = append(fields, httpform.Field{Name: "prompt", Value: in.Prompt})
	}
	body, contentType, err := httpform.Body{
		Fields: fields,
		Files:  []httpform.File{{FieldName: "file", FileName: in.FileName, ContentType: in.Audio.MediaType, Data: in.Audio.Data}},
	}.Encode()
	if err != nil {
		return transcriber.Result{}, fmt.Errorf("encode openai request: %w", err)
	}

	var res openAIResponse
	headers := map[string]string{"Authorization": "Bearer " + e.apiKey}
	if err := doJSON(ctx, e.client, http.MethodPost, e.baseURL+openAITranscriptionsPath, contentType, body, headers, &res); err != nil {
		return transcriber.Result{}, fmt.Errorf("openai transcription: %w", err)
	}
	return transcriber.Result{Text: strings.TrimSpace(res.Text), Segments: trimSegments(res.Segments)}, nil
}

func trimSegments(segments []transcriber.Segment) []transcriber.Segment {
	if len(segments) == 0 {
		return nil
	}
	out := make([]transcriber.Segment, 0, len(segments))
	for _, s := range segments {
		s.Text = strings.TrimSpace(s.Text)
		out = append(out, s)
	}
	return out
}
