package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/voxqueue/internal/audio"
	"github.com/foxseedlab/voxqueue/internal/queue"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
	"github.com/foxseedlab/voxqueue/internal/webhook"
	"github.com/google/uuid"
)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

var (
	ErrRunInProgress = queue.ErrRunInProgress
	ErrEmptyFileName = errors.New("file name is required")
)

type Options struct {
	Model  transcriber.Model
	Prompt string
}

type RunSummary struct {
	RunID     string
	StartedAt time.Time
	EndedAt   time.Time
	Completed int
	Failed    int
	// Jobs holds the final state of every job this run processed.
	Jobs []queue.JobState
}

// Orchestrator owns the job queue and drives runs one job at a time.
type Orchestrator struct {
	queue      *queue.Queue
	client     transcriber.Client
	webhook    webhook.Sender
	opts       Options
	bus        *EventBus
	publishers []Publisher
	now        func() time.Time

	mu    sync.Mutex
	state State
}

func New(q *queue.Queue, client transcriber.Client, wh webhook.Sender, opts Options, publishers ...Publisher) *Orchestrator {
	return &Orchestrator{
		queue:      q,
		client:     client,
		webhook:    wh,
		opts:       opts,
		bus:        NewEventBus(defaultMaxEvents),
		publishers: publishers,
		now:        time.Now,
		state:      StateIdle,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Events() *EventBus {
	return o.bus
}

func (o *Orchestrator) Snapshot() []queue.JobState {
	return o.queue.Snapshot()
}

// Load replaces the queue with the given files, all pending.
func (o *Orchestrator) Load(specs []queue.Spec) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateRunning {
		return ErrRunInProgress
	}
	if err := o.queue.Reset(specs); err != nil {
		return err
	}
	slog.Info("queue loaded", "job_count", len(specs))
	o.publish(context.Background(), Event{Type: EventQueueLoaded, JobCount: len(specs)})
	return nil
}

// EnqueueRecording replaces the queue with a single job for a finished
// recording.
func (o *Orchestrator) EnqueueRecording(blob audio.Blob, fileName string) error {
	name := strings.TrimSpace(fileName)
	if name == "" {
		return ErrEmptyFileName
	}
	if blob.Size() == 0 {
		return audio.ErrEmptyAudio
	}
	return o.Load([]queue.Spec{{FileName: name, Source: blob}})
}

// SaveAndEnqueue stores the recording on the server and enqueues it under
// the canonical name the server assigned. Nothing is enqueued when saving fails.
func (o *Orchestrator) SaveAndEnqueue(ctx context.Context, blob audio.Blob, fileName string) (string, error) {
	name := strings.TrimSpace(fileName)
	if name == "" {
		return "", ErrEmptyFileName
	}
	if o.State() == StateRunning {
		return "", ErrRunInProgress
	}
	canonical, err := o.client.SaveRecording(ctx, blob, name)
	if err != nil {
		slog.Error("failed to save recording", "file_name", name, "error", err)
		return "", err
	}
	if err := o.EnqueueRecording(blob, canonical); err != nil {
		return "", err
	}
	return canonical, nil
}

// StartRun transcribes every queued job in order and returns once the last
// one is resolved. A failed job never stops the run.
func (o *Orchestrator) StartRun(ctx context.Context) (RunSummary, error) {
	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return RunSummary{}, ErrRunInProgress
	}
	o.state = StateRunning
	o.mu.Unlock()

	summary := RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: o.now(),
	}
	total := o.queue.Len()
	slog.Info("transcription run started", "run_id", summary.RunID, "job_count", total, "model", o.opts.Model)
	o.publish(ctx, Event{Type: EventRunStarted, RunID: summary.RunID, JobCount: total})

	for i := 0; i < total; i++ {
		if o.runJob(ctx, summary.RunID, i) {
			summary.Completed++
		} else {
			summary.Failed++
		}
	}
	summary.EndedAt = o.now()
	// Snapshot before returning to Idle; a later Load must not change this run's results.
	summary.Jobs = o.queue.Snapshot()

	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()

	slog.Info("transcription run finished", "run_id", summary.RunID, "completed", summary.Completed, "failed", summary.Failed)
	o.publish(ctx, Event{Type: EventRunFinished, RunID: summary.RunID, JobCount: total})

	if o.webhook != nil {
		if err := o.webhook.SendRunReport(ctx, buildRunReport(summary, o.opts.Model, summary.Jobs)); err != nil {
			slog.Error("failed to send run report webhook", "run_id", summary.RunID, "error", err)
		}
	}
	return summary, nil
}

func (o *Orchestrator) runJob(ctx context.Context, runID string, index int) bool {
	job, err := o.queue.Job(index)
	if err != nil {
		slog.Error("queued job disappeared", "run_id", runID, "job_index", index, "error", err)
		return false
	}
	if err := o.queue.MarkProcessing(index); err != nil {
		slog.Error("failed to mark job processing", "run_id", runID, "job_index", index, "error", err)
		return false
	}
	o.publish(ctx, Event{Type: EventJobStatus, RunID: runID, JobIndex: index, FileName: job.FileName, Status: queue.StatusProcessing})

	res, err := o.client.Transcribe(ctx, transcriber.Request{
		FileName: job.FileName,
		Audio:    job.Source,
		Model:    o.opts.Model,
		Prompt:   o.opts.Prompt,
	})
	if err != nil {
		slog.Error("transcription failed", "run_id", runID, "job_index", index, "file_name", job.FileName, "error", err)
		if markErr := o.queue.MarkError(index); markErr != nil {
			slog.Error("failed to mark job error", "run_id", runID, "job_index", index, "error", markErr)
		}
		o.publish(ctx, Event{Type: EventJobStatus, RunID: runID, JobIndex: index, FileName: job.FileName, Status: queue.StatusError, Error: err.Error()})
		return false
	}

	if err := o.queue.MarkCompleted(index, res.Text, res.Segments); err != nil {
		slog.Error("failed to mark job completed", "run_id", runID, "job_index", index, "error", err)
		return false
	}
	slog.Info("transcription completed", "run_id", runID, "job_index", index, "file_name", job.FileName, "segments", len(res.Segments))
	o.publish(ctx, Event{Type: EventJobStatus, RunID: runID, JobIndex: index, FileName: job.FileName, Status: queue.StatusCompleted, Transcript: res.Text})
	return true
}

func (o *Orchestrator) publish(ctx context.Context, event Event) {
	event = o.bus.Publish(event)
	for _, p := range o.publishers {
		if err := p.Publish(ctx, event); err != nil {
			slog.Warn("failed to publish event", "event_type", event.Type, "seq", event.Seq, "error", err)
		}
	}
}
