package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/foxseedlab/voxqueue/internal/queue"
)

type EventType string

const (
	EventQueueLoaded EventType = "queue_loaded"
	EventRunStarted  EventType = "run_started"
	EventJobStatus   EventType = "job_status"
	EventRunFinished EventType = "run_finished"
)

const defaultMaxEvents = 500

type Event struct {
	Seq        int64        `json:"seq"`
	Timestamp  time.Time    `json:"timestamp"`
	Type       EventType    `json:"type"`
	RunID      string       `json:"run_id,omitempty"`
	JobIndex   int          `json:"job_index"`
	JobCount   int          `json:"job_count,omitempty"`
	FileName   string       `json:"file_name,omitempty"`
	Status     queue.Status `json:"status,omitempty"`
	Transcript string       `json:"transcript,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Publisher forwards sequenced events to an outside sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Publishers []Publisher

// EventBus keeps a bounded history of events for incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}
	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish assigns the sequence number and timestamp and stores the event.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
	return event
}

// Since returns events with a sequence number strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

func (b *EventBus) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}
