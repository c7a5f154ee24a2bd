package session

import (
	"context"
	"sync"
	"time"

	"github.com/foxseedlab/voxqueue/internal/audio"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Session is one microphone recording. It is created by Recorder.Start and
// finished exactly once, by Recorder.Stop, by the duration cap or by the
// input stream ending.
type Session struct {
	ID        string
	StartedAt time.Time

	recorder *Recorder
	now      func() time.Time

	mu        sync.Mutex
	state     State
	format    audio.Format
	chunks    [][]byte
	stream    Stream
	cancel    context.CancelFunc
	timer     stopTimer
	stoppedAt time.Time
	reason    string
	blob      audio.Blob
	err       error

	stopOnce sync.Once
	drained  chan struct{}
	done     chan struct{}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateRecording:
		return s.now().Sub(s.StartedAt)
	case StateStopped:
		return s.stoppedAt.Sub(s.StartedAt)
	default:
		return 0
	}
}

// ElapsedSeconds is the whole-second counter shown while recording.
func (s *Session) ElapsedSeconds() int {
	return int(s.Elapsed() / time.Second)
}

func (s *Session) ChunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Done is closed once the session has stopped and its result is final.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result returns the finalized blob. It is only meaningful after Done is closed.
func (s *Session) Result() (audio.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blob, s.err
}

func (s *Session) StopReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Session) append(chunk []byte) bool {
	if len(chunk) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return false
	}
	s.chunks = append(s.chunks, append([]byte(nil), chunk...))
	return true
}
