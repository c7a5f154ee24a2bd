package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/foxseedlab/voxqueue/internal/transcriber"
)

var (
	ErrRunInProgress    = errors.New("a transcription run is in progress")
	ErrJobNotFound      = errors.New("job not found")
	ErrStatusRegression = errors.New("job status cannot move backwards")
)

type Queue struct {
	mu        sync.RWMutex
	jobs      []Job
	anomalies int
}

func New() *Queue {
	return &Queue{}
}

// Reset replaces the whole queue with new pending jobs.
func (q *Queue) Reset(specs []Spec) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.hasProcessingLocked() {
		return ErrRunInProgress
	}
	jobs := make([]Job, 0, len(specs))
	for _, s := range specs {
		jobs = append(jobs, Job{
			FileName: s.FileName,
			Source:   s.Source,
			Status:   StatusPending,
		})
	}
	q.jobs = jobs
	q.anomalies = 0
	return nil
}

func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.jobs)
}

// Job returns a copy of the job at index. The audio payload is shared.
func (q *Queue) Job(index int) (Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if index < 0 || index >= len(q.jobs) {
		return Job{}, fmt.Errorf("%w: index %d", ErrJobNotFound, index)
	}
	j := q.jobs[index]
	j.Transcript = cloneString(j.Transcript)
	j.Segments = cloneSegments(j.Segments)
	return j, nil
}

func (q *Queue) MarkProcessing(index int) error {
	return q.transition(index, StatusProcessing, nil, nil)
}

func (q *Queue) MarkCompleted(index int, transcript string, segments []transcriber.Segment) error {
	return q.transition(index, StatusCompleted, &transcript, segments)
}

func (q *Queue) MarkError(index int) error {
	return q.transition(index, StatusError, nil, nil)
}

func (q *Queue) transition(index int, to Status, transcript *string, segments []transcriber.Segment) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.jobs) {
		return fmt.Errorf("%w: index %d", ErrJobNotFound, index)
	}
	job := &q.jobs[index]
	from := job.Status
	if from == to {
		return nil
	}
	if to.rank() <= from.rank() {
		slog.Warn("rejected job status regression", "job_index", index, "file_name", job.FileName, "from", from, "to", to)
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, from, to)
	}
	if to.rank()-from.rank() > 1 {
		q.anomalies++
		slog.Warn("job skipped processing state", "job_index", index, "file_name", job.FileName, "from", from, "to", to)
	}

	job.Status = to
	if to == StatusCompleted {
		job.Transcript = cloneString(transcript)
		job.Segments = cloneSegments(segments)
	}
	return nil
}

// Snapshot returns an independent copy of every job state.
func (q *Queue) Snapshot() []JobState {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]JobState, 0, len(q.jobs))
	for i, j := range q.jobs {
		out = append(out, JobState{
			Index:      i,
			FileName:   j.FileName,
			MediaType:  j.Source.MediaType,
			Size:       j.Source.Size(),
			Status:     j.Status,
			Transcript: cloneString(j.Transcript),
			Segments:   cloneSegments(j.Segments),
		})
	}
	return out
}

// Anomalies counts transitions that skipped the processing state since the
// last Reset.
func (q *Queue) Anomalies() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.anomalies
}

func (q *Queue) hasProcessingLocked() bool {
	for _, j := range q.jobs {
		if j.Status == StatusProcessing {
			return true
		}
	}
	return false
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneSegments(segments []transcriber.Segment) []transcriber.Segment {
	if segments == nil {
		return nil
	}
	return append([]transcriber.Segment(nil), segments...)
}
