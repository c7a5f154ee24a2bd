package audio

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/foxseedlab/voxqueue/internal/audio"
)

// pcmStream reads fixed-size chunks from a pipe until it ends or the
// capture is cancelled.
type pcmStream struct {
	r         io.Reader
	format    audio.Format
	first     []byte
	chunkSize int
	closeFn   func() error
	closeOnce sync.Once
	closeErr  error
}

func (s *pcmStream) Format() audio.Format {
	return s.format
}

func (s *pcmStream) Run(ctx context.Context, out chan<- []byte) error {
	if len(s.first) > 0 {
		if !send(ctx, out, s.first) {
			return nil
		}
	}
	buf := make([]byte, s.chunkSize)
	for {
		n, err := io.ReadFull(s.r, buf)
		if n > 0 {
			if !send(ctx, out, append([]byte(nil), buf[:n]...)) {
				return nil
			}
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
	}
}

func (s *pcmStream) Close() error {
	s.closeOnce.Do(func() {
		if s.closeFn != nil {
			s.closeErr = s.closeFn()
		}
	})
	return s.closeErr
}

func send(ctx context.Context, out chan<- []byte, chunk []byte) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
