package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/voxqueue/internal/audio"
	"github.com/google/uuid"
)

const (
	DefaultMaxDuration = 30 * time.Second
	chunkBufferSize    = 64
)

type stopTimer interface {
	Stop() bool
}

// Recorder owns the microphone. At most one session is active at a time.
type Recorder struct {
	device      Device
	maxDuration time.Duration

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) stopTimer

	mu     sync.Mutex
	active *Session
}

func NewRecorder(device Device, maxDuration time.Duration) *Recorder {
	return &Recorder{
		device:      device,
		maxDuration: maxDuration,
		now:         time.Now,
		afterFunc: func(d time.Duration, f func()) stopTimer {
			return time.AfterFunc(d, f)
		},
	}
}

func (r *Recorder) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Recorder) Start(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	if r.active != nil {
		active := r.active
		r.mu.Unlock()
		slog.Warn("recording already active; start rejected", "session_id", active.ID)
		return nil, ErrSessionAlreadyActive
	}
	s := &Session{
		ID:       uuid.NewString(),
		recorder: r,
		now:      r.now,
		state:    StateIdle,
		drained:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.active = s
	r.mu.Unlock()

	stream, err := r.device.Open(ctx)
	if err != nil {
		r.release(s)
		err = classifyOpenError(err)
		slog.Error("failed to open capture device", "session_id", s.ID, "error", err)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	chunks := make(chan []byte, chunkBufferSize)

	s.mu.Lock()
	s.stream = stream
	s.format = stream.Format()
	s.cancel = cancel
	s.state = StateRecording
	s.StartedAt = r.now()
	if r.maxDuration > 0 {
		s.timer = r.afterFunc(r.maxDuration, func() {
			slog.Info("maximum recording duration reached", "session_id", s.ID, "max_duration", r.maxDuration.String())
			r.finish(s, StopReasonMaxDuration, nil)
		})
	}
	s.mu.Unlock()

	go func() {
		defer close(s.drained)
		for chunk := range chunks {
			s.append(chunk)
		}
	}()

	go func() {
		runErr := stream.Run(runCtx, chunks)
		close(chunks)
		if runCtx.Err() != nil {
			return
		}
		if runErr != nil {
			r.finish(s, StopReasonCaptureFailed, runErr)
			return
		}
		r.finish(s, StopReasonSourceEnded, nil)
	}()

	slog.Info("recording started", "session_id", s.ID, "container", s.format.Container, "sample_rate", s.format.SampleRate)
	return s, nil
}

// Stop finishes s and returns its blob. Stopping an already stopped session
// returns the same result again.
func (r *Recorder) Stop(ctx context.Context, s *Session) (audio.Blob, error) {
	if s == nil || s.recorder != r {
		return audio.Blob{}, ErrUnknownSession
	}
	go r.finish(s, StopReasonManual, nil)
	select {
	case <-s.done:
		return s.Result()
	case <-ctx.Done():
		return audio.Blob{}, ctx.Err()
	}
}

func (r *Recorder) finish(s *Session, reason string, cause error) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		timer := s.timer
		stream := s.stream
		cancel := s.cancel
		s.mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		cancel()
		if err := stream.Close(); err != nil {
			slog.Warn("failed to close capture stream", "session_id", s.ID, "error", err)
		}
		<-s.drained

		s.mu.Lock()
		s.state = StateStopped
		s.stoppedAt = r.now()
		s.reason = reason
		chunks := s.chunks
		format := s.format
		s.mu.Unlock()

		var blob audio.Blob
		var err error
		if cause != nil {
			err = fmt.Errorf("capture stream failed: %w", cause)
		} else {
			blob, err = audio.Finalize(audio.TrimPCM(chunks, format, r.maxDuration), format)
		}

		s.mu.Lock()
		s.blob = blob
		s.err = err
		s.mu.Unlock()

		r.release(s)
		close(s.done)

		if err != nil {
			slog.Error("recording finished with error", "session_id", s.ID, "reason", stopReasonDetail(reason), "error", err)
			return
		}
		slog.Info("recording finished", "session_id", s.ID, "reason", stopReasonDetail(reason), "chunks", len(chunks), "bytes", blob.Size(), "media_type", blob.MediaType)
	})
}

func (r *Recorder) release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == s {
		r.active = nil
	}
}
