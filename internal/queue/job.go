package queue

import (
	"github.com/foxseedlab/voxqueue/internal/audio"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusError:
		return 2
	default:
		return -1
	}
}

// Job is one file awaiting or carrying a transcription. Transcript and
// Segments are only set once Status is StatusCompleted.
type Job struct {
	FileName   string
	Source     audio.Blob
	Status     Status
	Transcript *string
	Segments   []transcriber.Segment
}

type Spec struct {
	FileName string
	Source   audio.Blob
}

// JobState is the read-only view handed to the presentation layer. It
// carries no audio bytes.
type JobState struct {
	Index      int                   `json:"index"`
	FileName   string                `json:"file_name"`
	MediaType  string                `json:"media_type"`
	Size       int                   `json:"size"`
	Status     Status                `json:"status"`
	Transcript *string               `json:"transcript,omitempty"`
	Segments   []transcriber.Segment `json:"segments,omitempty"`
}
