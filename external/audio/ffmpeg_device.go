package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/foxseedlab/voxqueue/internal/audio"
	"github.com/foxseedlab/voxqueue/internal/session"
)

const (
	ffmpegSampleRate = 16000
	ffmpegChannels   = 1
	ffmpegBits       = 16
	// 100ms of 16kHz mono s16le
	ffmpegChunkBytes = ffmpegSampleRate * ffmpegChannels * ffmpegBits / 8 / 10
	stderrTailBytes  = 2048
)

var permissionMarkers = []string{
	"permission denied",
	"operation not permitted",
	"not authorized",
	"access is denied",
}

type FFmpegDevice struct {
	ffmpegPath string
	input      string
	goos       string
	lookPath   func(string) (string, error)
}

func NewFFmpegDevice(input string) *FFmpegDevice {
	return &FFmpegDevice{
		ffmpegPath: "ffmpeg",
		input:      input,
		goos:       runtime.GOOS,
		lookPath:   exec.LookPath,
	}
}

func (d *FFmpegDevice) Format() audio.Format {
	return audio.Format{SampleRate: ffmpegSampleRate, Channels: ffmpegChannels, BitsPerSample: ffmpegBits}
}

func (d *FFmpegDevice) Open(ctx context.Context) (session.Stream, error) {
	path, err := d.lookPath(d.ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found: %w", session.ErrDeviceUnavailable, err)
	}
	args, err := d.captureArgs()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrDeviceUnavailable, err)
	}
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %w", session.ErrDeviceUnavailable, err)
	}
	slog.Debug("ffmpeg capture started", "args", strings.Join(args, " "))

	stop := func() error {
		_ = cmd.Process.Kill()
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	}

	// The first chunk only arrives once the OS has granted microphone access.
	first, err := readFirstChunk(ctx, stdout)
	if err != nil {
		_ = stop()
		return nil, classifyCaptureFailure(err, stderr.String())
	}

	return &pcmStream{
		r:         stdout,
		format:    d.Format(),
		first:     first,
		chunkSize: ffmpegChunkBytes,
		closeFn:   stop,
	}, nil
}

func (d *FFmpegDevice) captureArgs() ([]string, error) {
	var inputArgs []string
	switch d.goos {
	case "linux":
		inputArgs = []string{"-f", "pulse", "-i", orDefault(d.input, "default")}
	case "darwin":
		inputArgs = []string{"-f", "avfoundation", "-i", orDefault(d.input, ":0")}
	case "windows":
		if d.input == "" {
			return nil, fmt.Errorf("%w: CAPTURE_INPUT is required on windows (e.g. audio=Microphone)", session.ErrDeviceUnavailable)
		}
		inputArgs = []string{"-f", "dshow", "-i", d.input}
	default:
		return nil, fmt.Errorf("%w: unsupported platform %s", session.ErrDeviceUnavailable, d.goos)
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	args = append(args, inputArgs...)
	args = append(args,
		"-ac", fmt.Sprint(ffmpegChannels),
		"-ar", fmt.Sprint(ffmpegSampleRate),
		"-f", "s16le",
		"pipe:1",
	)
	return args, nil
}

func readFirstChunk(ctx context.Context, r io.Reader) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		buf := make([]byte, ffmpegChunkBytes)
		n, err := io.ReadAtLeast(r, buf, 1)
		ch <- result{data: buf[:n], err: err}
	}()
	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func classifyCaptureFailure(err error, stderr string) error {
	detail := tail(strings.TrimSpace(stderr), stderrTailBytes)
	lower := strings.ToLower(detail)
	for _, marker := range permissionMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", session.ErrPermissionDenied, detail)
		}
	}
	if detail == "" {
		return fmt.Errorf("%w: %w", session.ErrDeviceUnavailable, err)
	}
	return fmt.Errorf("%w: %s", session.ErrDeviceUnavailable, detail)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
