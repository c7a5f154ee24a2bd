package orchestrator

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/foxseedlab/voxqueue/internal/queue"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
	"github.com/foxseedlab/voxqueue/internal/webhook"
)

const previewWordLimit = 100

// FormatReport renders job states as a plain-text table followed by the
// timestamped segments of every completed job.
func FormatReport(states []queue.JobState) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tFILE\tSTATUS\tTRANSCRIPT")
	for _, s := range states {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Index+1, s.FileName, s.Status, transcriptCell(s))
	}
	_ = tw.Flush()

	for _, s := range states {
		if s.Status != queue.StatusCompleted || len(s.Segments) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", s.FileName)
		for _, seg := range s.Segments {
			b.WriteString(formatSegment(seg))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func transcriptCell(s queue.JobState) string {
	switch s.Status {
	case queue.StatusPending:
		return "Waiting..."
	case queue.StatusProcessing:
		return "Transcribing..."
	case queue.StatusError:
		return "Error occurred"
	}
	if s.Transcript == nil {
		return ""
	}
	return previewWords(*s.Transcript, previewWordLimit)
}

func previewWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) <= limit {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:limit], " ") + "..."
}

func formatSegment(seg transcriber.Segment) string {
	return fmt.Sprintf("[%s - %s] %s", formatElapsedHMS(secondsToDuration(seg.Start)), formatElapsedHMS(secondsToDuration(seg.End)), strings.TrimSpace(seg.Text))
}

func secondsToDuration(sec float64) time.Duration {
	if sec < 0 {
		return 0
	}
	return time.Duration(sec * float64(time.Second))
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func buildRunReport(summary RunSummary, model transcriber.Model, states []queue.JobState) webhook.RunReport {
	durationSeconds := int64(summary.EndedAt.Sub(summary.StartedAt).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	jobs := make([]webhook.RunReportJob, 0, len(states))
	for _, s := range states {
		j := webhook.RunReportJob{
			Index:    s.Index,
			FileName: s.FileName,
			Status:   string(s.Status),
			Segments: s.Segments,
		}
		if s.Transcript != nil {
			j.Transcript = *s.Transcript
		}
		jobs = append(jobs, j)
	}
	return webhook.RunReport{
		SchemaVersion:   webhook.RunReportSchemaVersion,
		RunID:           summary.RunID,
		Model:           model.String(),
		StartAt:         summary.StartedAt.UTC().Format(time.RFC3339),
		EndAt:           summary.EndedAt.UTC().Format(time.RFC3339),
		DurationSeconds: durationSeconds,
		JobCount:        len(states),
		CompletedCount:  summary.Completed,
		ErrorCount:      summary.Failed,
		Jobs:            jobs,
	}
}
