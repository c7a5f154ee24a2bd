package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/foxseedlab/voxqueue/internal/orchestrator"
	"github.com/foxseedlab/voxqueue/internal/queue"
)

const renderInterval = 100 * time.Millisecond

// renderer prints orchestrator events as progress lines while a run is in
// flight.
type renderer struct {
	w       io.Writer
	bus     *orchestrator.EventBus
	lastSeq int64
	done    chan struct{}
	stopped chan struct{}
}

func newRenderer(w io.Writer, bus *orchestrator.EventBus) *renderer {
	return &renderer{
		w:       w,
		bus:     bus,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (r *renderer) Run(ctx context.Context) {
	defer close(r.stopped)
	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.flush()
		case <-r.done:
			r.flush()
			return
		case <-ctx.Done():
			r.flush()
			return
		}
	}
}

// Close prints any pending events and waits for Run to return.
func (r *renderer) Close() {
	close(r.done)
	<-r.stopped
}

func (r *renderer) flush() {
	for _, e := range r.bus.Since(r.lastSeq) {
		r.lastSeq = e.Seq
		if line := formatEvent(e); line != "" {
			fmt.Fprintln(r.w, line)
		}
	}
}

func formatEvent(e orchestrator.Event) string {
	switch e.Type {
	case orchestrator.EventQueueLoaded:
		return fmt.Sprintf("Queued %d file(s).", e.JobCount)
	case orchestrator.EventRunStarted:
		return fmt.Sprintf("Transcribing %d file(s)...", e.JobCount)
	case orchestrator.EventJobStatus:
		switch e.Status {
		case queue.StatusProcessing:
			return fmt.Sprintf("[%d] %s: Transcribing...", e.JobIndex+1, e.FileName)
		case queue.StatusCompleted:
			return fmt.Sprintf("[%d] %s: Completed", e.JobIndex+1, e.FileName)
		case queue.StatusError:
			return fmt.Sprintf("[%d] %s: Error occurred (%s)", e.JobIndex+1, e.FileName, e.Error)
		}
	}
	return ""
}
