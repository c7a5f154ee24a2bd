package repository

import (
	"context"
	"errors"

	"github.com/foxseedlab/voxqueue/internal/transcriber"
)

var ErrDuplicateFileName = errors.New("recording file name already exists")

type SaveRecordingInput struct {
	FileName     string
	OriginalName string
	MediaType    string
	Data         []byte
}

type InsertTranscriptionInput struct {
	FileName string
	Model    string
	Text     string
	Segments []transcriber.Segment
}

type RecordingRepository interface {
	SaveRecording(ctx context.Context, input SaveRecordingInput) (*Recording, error)
}

type TranscriptionRepository interface {
	InsertTranscription(ctx context.Context, input InsertTranscriptionInput) error
	ListTranscriptionsByFileName(ctx context.Context, fileName string) ([]Transcription, error)
}

type Repository interface {
	RecordingRepository
	TranscriptionRepository
}
