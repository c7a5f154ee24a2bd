package transcriber

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/foxseedlab/voxqueue/internal/audio"
)

type Model string

const (
	ModelWhisper      Model = "whisper"
	ModelAssemblyAI   Model = "assemblyai"
	ModelLocalWhisper Model = "local-whisper"
)

var (
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrUnknownModel        = errors.New("unknown transcription model")
)

func Models() []Model {
	return []Model{ModelWhisper, ModelAssemblyAI, ModelLocalWhisper}
}

func ParseModel(s string) (Model, error) {
	m := Model(strings.TrimSpace(s))
	for _, known := range Models() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

func (m Model) String() string {
	return string(m)
}

// Segment offsets are seconds from the start of the audio.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Request struct {
	FileName string
	Audio    audio.Blob
	Model    Model
	Prompt   string
}

type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}

type Client interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
	SaveRecording(ctx context.Context, blob audio.Blob, filename string) (string, error)
}
