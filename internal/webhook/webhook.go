package webhook

import (
	"context"

	"github.com/foxseedlab/voxqueue/internal/transcriber"
)

const RunReportSchemaVersion = "1"

type Sender interface {
	SendRunReport(ctx context.Context, report RunReport) error
}

type RunReport struct {
	SchemaVersion   string         `json:"schema_version"`
	RunID           string         `json:"run_id"`
	Model           string         `json:"model"`
	StartAt         string         `json:"start_at"`
	EndAt           string         `json:"end_at"`
	DurationSeconds int64          `json:"duration_seconds"`
	JobCount        int            `json:"job_count"`
	CompletedCount  int            `json:"completed_count"`
	ErrorCount      int            `json:"error_count"`
	Jobs            []RunReportJob `json:"jobs"`
}

type RunReportJob struct {
	Index      int                   `json:"index"`
	FileName   string                `json:"file_name"`
	Status     string                `json:"status"`
	Transcript string                `json:"transcript,omitempty"`
	Segments   []transcriber.Segment `json:"segments,omitempty"`
}
