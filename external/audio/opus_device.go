//go:build opus

package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/foxseedlab/voxqueue/internal/audio"
	"github.com/foxseedlab/voxqueue/internal/session"
	"github.com/hraban/opus"
)

const (
	opusSampleRate = 48000
	opusChannels   = 1
	// 120ms is the longest opus frame
	opusMaxFrameSamples = opusSampleRate * 120 / 1000 * opusChannels
	maxDatagramBytes    = 1500
)

// OpusUDPDevice receives one opus packet per datagram from a network
// microphone and decodes it to 48kHz mono PCM.
type OpusUDPDevice struct {
	addr string
}

func NewOpusUDPDevice(addr string) *OpusUDPDevice {
	return &OpusUDPDevice{addr: addr}
}

func (d *OpusUDPDevice) Open(ctx context.Context) (session.Stream, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", d.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %s: %w", session.ErrDeviceUnavailable, d.addr, err)
	}
	dec, err := opus.NewDecoder(opusSampleRate, opusChannels)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: failed to create opus decoder: %w", session.ErrDeviceUnavailable, err)
	}
	slog.Info("listening for opus packets", "addr", conn.LocalAddr().String())
	return &opusStream{conn: conn, dec: dec}, nil
}

type opusStream struct {
	conn      net.PacketConn
	dec       *opus.Decoder
	closeOnce sync.Once
	closeErr  error
}

func (s *opusStream) Format() audio.Format {
	return audio.Format{SampleRate: opusSampleRate, Channels: opusChannels, BitsPerSample: 16}
}

func (s *opusStream) Run(ctx context.Context, out chan<- []byte) error {
	packet := make([]byte, maxDatagramBytes)
	pcm := make([]int16, opusMaxFrameSamples)
	for {
		n, _, err := s.conn.ReadFrom(packet)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if n == 0 {
			continue
		}
		samples, err := s.dec.Decode(packet[:n], pcm)
		if err != nil {
			slog.Warn("dropping undecodable opus packet", "bytes", n, "error", err)
			continue
		}
		if !send(ctx, out, audio.PCM16Bytes(pcm[:samples*opusChannels])) {
			return nil
		}
	}
}

func (s *opusStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
