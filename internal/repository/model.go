package repository

import (
	"time"

	"github.com/foxseedlab/voxqueue/internal/transcriber"
)

type Recording struct {
	ID           string
	FileName     string
	OriginalName string
	MediaType    string
	SizeBytes    int64
	CreatedAt    time.Time
}

type Transcription struct {
	ID        string
	FileName  string
	Model     string
	Text      string
	Segments  []transcriber.Segment
	CreatedAt time.Time
}
