package session

import (
	"context"

	"github.com/foxseedlab/voxqueue/internal/audio"
)

// Device opens capture streams on an input device. Open blocks while the
// platform asks for permission and fails with ErrPermissionDenied or
// ErrDeviceUnavailable.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is one open hardware capture.
type Stream interface {
	Format() audio.Format
	// Run pushes captured chunks into out until ctx is cancelled or the
	// source ends. It never closes out.
	Run(ctx context.Context, out chan<- []byte) error
	// Close releases the hardware. The recorder calls it exactly once.
	Close() error
}
