package orchestrator

import (
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/voxqueue/internal/queue"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
)

func strPtr(s string) *string { return &s }

func TestFormatReport(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 120))
	states := []queue.JobState{
		{Index: 0, FileName: "a.mp3", Status: queue.StatusCompleted, Transcript: strPtr("hello there"), Segments: []transcriber.Segment{
			{Text: " hello ", Start: 0, End: 1.2},
			{Text: "there", Start: 3661.5, End: 3663},
		}},
		{Index: 1, FileName: "b.mp3", Status: queue.StatusError},
		{Index: 2, FileName: "c.mp3", Status: queue.StatusProcessing},
		{Index: 3, FileName: "d.mp3", Status: queue.StatusPending},
		{Index: 4, FileName: "e.mp3", Status: queue.StatusCompleted, Transcript: strPtr(long)},
	}

	body := FormatReport(states)
	for _, want := range []string{
		"Error occurred",
		"Transcribing...",
		"Waiting...",
		"[00:00:00 - 00:00:01] hello",
		"[01:01:01 - 01:01:03] there",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("%q not found in report:\n%s", want, body)
		}
	}
	if strings.Contains(body, "\ne.mp3\n") {
		t.Fatalf("job without segments must not get a segment block:\n%s", body)
	}
}

func TestPreviewWords(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("w ", 101))
	got := previewWords(text, 100)
	if !strings.HasSuffix(got, "...") || len(strings.Fields(strings.TrimSuffix(got, "..."))) != 100 {
		t.Fatalf("unexpected preview: %q", got)
	}
	if got := previewWords("short  text", 100); got != "short text" {
		t.Fatalf("unexpected preview: %q", got)
	}
}

func TestBuildRunReport(t *testing.T) {
	startedAt := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	summary := RunSummary{RunID: "run-1", StartedAt: startedAt, EndedAt: startedAt.Add(90 * time.Second), Completed: 1, Failed: 1}
	states := []queue.JobState{
		{Index: 0, FileName: "a.mp3", Status: queue.StatusCompleted, Transcript: strPtr("hello")},
		{Index: 1, FileName: "b.mp3", Status: queue.StatusError},
	}

	report := buildRunReport(summary, transcriber.ModelAssemblyAI, states)
	if report.DurationSeconds != 90 || report.StartAt != "2026-02-28T12:00:00Z" || report.Model != "assemblyai" {
		t.Fatalf("unexpected report header: %+v", report)
	}
	if report.Jobs[0].Transcript != "hello" || report.Jobs[1].Transcript != "" || report.Jobs[1].Status != "error" {
		t.Fatalf("unexpected report jobs: %+v", report.Jobs)
	}
}
