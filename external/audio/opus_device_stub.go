//go:build !opus

package audio

import (
	"context"
	"fmt"

	"github.com/foxseedlab/voxqueue/internal/session"
)

type OpusUDPDevice struct {
	addr string
}

func NewOpusUDPDevice(addr string) *OpusUDPDevice {
	return &OpusUDPDevice{addr: addr}
}

func (d *OpusUDPDevice) Open(_ context.Context) (session.Stream, error) {
	return nil, fmt.Errorf("%w: built without opus support (rebuild with -tags opus)", session.ErrDeviceUnavailable)
}
