package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foxseedlab/voxqueue/internal/audio"
)

var pcmFormat = audio.Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}

type fakeStream struct {
	format           audio.Format
	chunks           [][]byte
	runErr           error
	blockUntilCancel bool

	sent   chan struct{}
	closed atomic.Int32
}

func newFakeStream(chunks [][]byte) *fakeStream {
	return &fakeStream{format: pcmFormat, chunks: chunks, sent: make(chan struct{})}
}

func (f *fakeStream) Format() audio.Format { return f.format }

func (f *fakeStream) Run(ctx context.Context, out chan<- []byte) error {
	for _, c := range f.chunks {
		select {
		case out <- c:
		case <-ctx.Done():
			close(f.sent)
			return nil
		}
	}
	close(f.sent)
	if f.runErr != nil {
		return f.runErr
	}
	if f.blockUntilCancel {
		<-ctx.Done()
	}
	return nil
}

func (f *fakeStream) Close() error {
	f.closed.Add(1)
	return nil
}

type fakeDevice struct {
	mu      sync.Mutex
	streams []*fakeStream
	errs    []error
	opens   int
}

func (d *fakeDevice) Open(context.Context) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.opens
	d.opens++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	return d.streams[i], nil
}

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	fire    func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return true
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func newTestRecorder(device Device, timer *fakeTimer) *Recorder {
	r := NewRecorder(device, DefaultMaxDuration)
	r.afterFunc = func(d time.Duration, f func()) stopTimer {
		timer.mu.Lock()
		defer timer.mu.Unlock()
		timer.d = d
		timer.fire = f
		return timer
	}
	return r
}

func chunkOf(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session %s did not finish", s.ID)
	}
}

func TestRecorderStopFinalizesChunksInOrder(t *testing.T) {
	stream := newFakeStream([][]byte{chunkOf(1, 4), chunkOf(2, 4), chunkOf(3, 2)})
	stream.blockUntilCancel = true
	timer := &fakeTimer{}
	r := newTestRecorder(&fakeDevice{streams: []*fakeStream{stream}}, timer)

	s, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if s.State() != StateRecording {
		t.Fatalf("unexpected state after start: %s", s.State())
	}
	<-stream.sent

	blob, err := r.Stop(context.Background(), s)
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if blob.MediaType != audio.MediaTypeWAV {
		t.Fatalf("unexpected media type: %s", blob.MediaType)
	}
	want := append(append(chunkOf(1, 4), chunkOf(2, 4)...), chunkOf(3, 2)...)
	if !bytes.Equal(blob.Data[44:], want) {
		t.Fatalf("unexpected payload: %v", blob.Data[44:])
	}
	if s.State() != StateStopped {
		t.Fatalf("unexpected state after stop: %s", s.State())
	}
	if s.StopReason() != StopReasonManual {
		t.Fatalf("unexpected stop reason: %s", s.StopReason())
	}
	if got := stream.closed.Load(); got != 1 {
		t.Fatalf("expected stream closed once, got %d", got)
	}
	if !timer.isStopped() {
		t.Fatalf("expected auto-stop timer to be cancelled by manual stop")
	}
	if r.Active() != nil {
		t.Fatalf("expected no active session after stop")
	}
}

func TestRecorderRejectsSecondStart(t *testing.T) {
	stream := newFakeStream(nil)
	stream.blockUntilCancel = true
	device := &fakeDevice{streams: []*fakeStream{stream}}
	r := newTestRecorder(device, &fakeTimer{})

	first, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if _, err := r.Start(context.Background()); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("expected ErrSessionAlreadyActive, got %v", err)
	}
	if device.opens != 1 {
		t.Fatalf("second start must not open the device, opens=%d", device.opens)
	}
	if r.Active() != first || first.State() != StateRecording {
		t.Fatalf("active session must be untouched")
	}
	if _, err := r.Stop(context.Background(), first); !errors.Is(err, audio.ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio for silent session, got %v", err)
	}
}

func TestRecorderOpenFailureReleasesSlot(t *testing.T) {
	stream := newFakeStream([][]byte{chunkOf(9, 2)})
	device := &fakeDevice{
		streams: []*fakeStream{nil, nil, stream},
		errs:    []error{ErrPermissionDenied, errors.New("boom"), nil},
	}
	r := newTestRecorder(device, &fakeTimer{})

	if _, err := r.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if r.Active() != nil {
		t.Fatalf("failed start must not hold the device")
	}
	if _, err := r.Start(context.Background()); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected unknown open error to map to ErrDeviceUnavailable, got %v", err)
	}
	s, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("expected start after failures to succeed: %v", err)
	}
	waitDone(t, s)
}

func TestRecorderAutoStopsAtMaxDuration(t *testing.T) {
	chunks := make([][]byte, 30)
	for i := range chunks {
		chunks[i] = chunkOf(byte(i), 2)
	}
	stream := newFakeStream(chunks)
	stream.blockUntilCancel = true
	timer := &fakeTimer{}
	r := newTestRecorder(&fakeDevice{streams: []*fakeStream{stream}}, timer)

	s, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if timer.d != DefaultMaxDuration {
		t.Fatalf("unexpected timer duration: %s", timer.d)
	}
	<-stream.sent
	timer.fire()
	waitDone(t, s)

	if s.StopReason() != StopReasonMaxDuration {
		t.Fatalf("unexpected stop reason: %s", s.StopReason())
	}
	if got := s.ChunkCount(); got != 30 {
		t.Fatalf("expected 30 chunks, got %d", got)
	}
	if s.append(chunkOf(0xff, 2)) {
		t.Fatalf("chunk accepted after stop")
	}

	first, err := s.Result()
	if err != nil {
		t.Fatalf("auto-stopped session returned error: %v", err)
	}
	again, err := r.Stop(context.Background(), s)
	if err != nil {
		t.Fatalf("Stop after auto-stop returned error: %v", err)
	}
	if !bytes.Equal(first.Data, again.Data) {
		t.Fatalf("Stop after auto-stop must return the same blob")
	}
	if got := stream.closed.Load(); got != 1 {
		t.Fatalf("expected stream closed once, got %d", got)
	}
}

// A capture that overran the cap before the timer fired keeps only the first 30 seconds.
func TestRecorderAutoStopTrimsOverrun(t *testing.T) {
	// 2 bytes per second, one chunk per second, 35 seconds captured.
	slow := audio.Format{SampleRate: 1, Channels: 1, BitsPerSample: 16}
	chunks := make([][]byte, 35)
	for i := range chunks {
		chunks[i] = chunkOf(byte(i), 2)
	}
	stream := newFakeStream(chunks)
	stream.format = slow
	stream.blockUntilCancel = true
	timer := &fakeTimer{}
	r := newTestRecorder(&fakeDevice{streams: []*fakeStream{stream}}, timer)

	s, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	<-stream.sent
	timer.fire()
	waitDone(t, s)

	blob, err := s.Result()
	if err != nil {
		t.Fatalf("Result returned error: %v", err)
	}
	want := audio.EncodeWAV(bytes.Join(chunks[:30], nil), slow)
	if !bytes.Equal(blob.Data, want) {
		t.Fatalf("expected 30 seconds of audio (%d bytes), got %d bytes", len(want), len(blob.Data))
	}
}

func TestRecorderCaptureFailureReleasesStream(t *testing.T) {
	stream := newFakeStream([][]byte{chunkOf(1, 2)})
	stream.runErr = errors.New("device unplugged")
	r := newTestRecorder(&fakeDevice{streams: []*fakeStream{stream}}, &fakeTimer{})

	s, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, s)

	if s.StopReason() != StopReasonCaptureFailed {
		t.Fatalf("unexpected stop reason: %s", s.StopReason())
	}
	if _, err := s.Result(); err == nil {
		t.Fatalf("expected capture error")
	}
	if stream.closed.Load() != 1 || r.Active() != nil {
		t.Fatalf("capture failure must release the stream and the device slot")
	}
}

func TestRecorderSourceEndedFinalizes(t *testing.T) {
	stream := newFakeStream([][]byte{[]byte("webm-a"), []byte("webm-b")})
	stream.format = audio.Format{Container: audio.MediaTypeWebM}
	r := newTestRecorder(&fakeDevice{streams: []*fakeStream{stream}}, &fakeTimer{})

	s, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, s)

	blob, err := s.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blob.MediaType != audio.MediaTypeWebM || string(blob.Data) != "webm-awebm-b" {
		t.Fatalf("unexpected blob: %s %q", blob.MediaType, blob.Data)
	}
	if s.StopReason() != StopReasonSourceEnded {
		t.Fatalf("unexpected stop reason: %s", s.StopReason())
	}
}

func TestRecorderStopRejectsForeignSession(t *testing.T) {
	r := NewRecorder(&fakeDevice{}, DefaultMaxDuration)
	if _, err := r.Stop(context.Background(), &Session{}); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestSessionElapsed(t *testing.T) {
	stream := newFakeStream(nil)
	stream.blockUntilCancel = true
	r := newTestRecorder(&fakeDevice{streams: []*fakeStream{stream}}, &fakeTimer{})
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	current := base
	r.now = func() time.Time { return current }

	s, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	current = base.Add(12500 * time.Millisecond)
	if got := s.ElapsedSeconds(); got != 12 {
		t.Fatalf("expected 12 elapsed seconds, got %d", got)
	}
	_, _ = r.Stop(context.Background(), s)
	current = base.Add(time.Minute)
	if got := s.ElapsedSeconds(); got != 12 {
		t.Fatalf("elapsed must freeze at stop, got %d", got)
	}
}
