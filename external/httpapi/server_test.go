package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/foxseedlab/voxqueue/external/httpform"
	"github.com/foxseedlab/voxqueue/internal/audio"
	"github.com/foxseedlab/voxqueue/internal/config"
	"github.com/foxseedlab/voxqueue/internal/recognizer"
	"github.com/foxseedlab/voxqueue/internal/repository"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
	"github.com/gin-gonic/gin"
)

type fakeEngine struct {
	model  transcriber.Model
	result transcriber.Result
	err    error
	inputs []recognizer.Input
}

func (e *fakeEngine) Model() transcriber.Model { return e.model }

func (e *fakeEngine) Recognize(_ context.Context, in recognizer.Input) (transcriber.Result, error) {
	e.inputs = append(e.inputs, in)
	return e.result, e.err
}

type fakeRepository struct {
	saved          []repository.SaveRecordingInput
	transcriptions []repository.InsertTranscriptionInput
	saveErr        error
	insertErr      error
}

func (r *fakeRepository) SaveRecording(_ context.Context, in repository.SaveRecordingInput) (*repository.Recording, error) {
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	r.saved = append(r.saved, in)
	return &repository.Recording{FileName: in.FileName, MediaType: in.MediaType, SizeBytes: int64(len(in.Data))}, nil
}

func (r *fakeRepository) InsertTranscription(_ context.Context, in repository.InsertTranscriptionInput) error {
	r.transcriptions = append(r.transcriptions, in)
	return r.insertErr
}

func (r *fakeRepository) ListTranscriptionsByFileName(context.Context, string) ([]repository.Transcription, error) {
	return nil, nil
}

func newTestServer(t *testing.T, repo *fakeRepository, engines ...recognizer.Engine) *Server {
	t.Helper()
	cfg := &config.ServerConfig{
		Env:                "test",
		ListenAddr:         "127.0.0.1:0",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		MaxUploadBytes:     1 << 20,
	}
	s := NewServer(cfg, recognizer.NewRegistry(engines...), repo)
	gin.SetMode(gin.TestMode)
	return s
}

func wavBytes() []byte {
	return audio.EncodeWAV(make([]byte, 320), audio.Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16})
}

func multipartRequest(t *testing.T, path string, body httpform.Body) *http.Request {
	t.Helper()
	r, contentType, err := body.Encode()
	if err != nil {
		t.Fatalf("failed to encode form: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, r)
	req.Header.Set("Content-Type", contentType)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeDetail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v (%s)", err, rr.Body.String())
	}
	return body.Detail
}

func audioFile(name, contentType string, data []byte) httpform.File {
	return httpform.File{FieldName: "audio", FileName: name, ContentType: contentType, Data: data}
}

// Transcribe dispatches to the engine for the requested model and stores the result.
func TestTranscribe_Success(t *testing.T) {
	engine := &fakeEngine{
		model: transcriber.ModelWhisper,
		result: transcriber.Result{
			Text:     "hello world",
			Segments: []transcriber.Segment{{Text: "hello world", Start: 0, End: 1.5}},
		},
	}
	repo := &fakeRepository{}
	s := newTestServer(t, repo, engine)

	rr := serve(s, multipartRequest(t, "/api/transcribe", httpform.Body{
		Fields: []httpform.Field{{Name: "model", Value: "whisper"}, {Name: "prompt", Value: " names: Ada "}},
		Files:  []httpform.File{audioFile("a.wav", "audio/wav", wavBytes())},
	}))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body transcribeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Text != "hello world" || len(body.Segments) != 1 || body.Segments[0].End != 1.5 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if len(engine.inputs) != 1 || engine.inputs[0].Prompt != "names: Ada" || engine.inputs[0].Audio.MediaType != audio.MediaTypeWAV {
		t.Fatalf("unexpected engine input: %+v", engine.inputs)
	}
	if len(repo.transcriptions) != 1 || repo.transcriptions[0].FileName != "a.wav" || repo.transcriptions[0].Model != "whisper" {
		t.Fatalf("unexpected stored transcription: %+v", repo.transcriptions)
	}
}

// A storage failure does not fail an otherwise successful transcription.
func TestTranscribe_StoreFailureStillResponds(t *testing.T) {
	engine := &fakeEngine{model: transcriber.ModelLocalWhisper, result: transcriber.Result{Text: "ok"}}
	s := newTestServer(t, &fakeRepository{insertErr: errors.New("db down")}, engine)

	rr := serve(s, multipartRequest(t, "/api/transcribe", httpform.Body{
		Fields: []httpform.Field{{Name: "model", Value: "local-whisper"}},
		Files:  []httpform.File{audioFile("a.webm", "audio/webm", []byte("webm"))},
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestTranscribe_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       httpform.Body
		wantStatus int
	}{
		{
			name: "unknown model",
			body: httpform.Body{
				Fields: []httpform.Field{{Name: "model", Value: "gpt"}},
				Files:  []httpform.File{audioFile("a.wav", "audio/wav", wavBytes())},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing audio",
			body:       httpform.Body{Fields: []httpform.Field{{Name: "model", Value: "whisper"}}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "not audio",
			body: httpform.Body{
				Fields: []httpform.Field{{Name: "model", Value: "whisper"}},
				Files:  []httpform.File{audioFile("notes.txt", "text/plain", []byte("just some notes"))},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "engine not configured",
			body: httpform.Body{
				Fields: []httpform.Field{{Name: "model", Value: "assemblyai"}},
				Files:  []httpform.File{audioFile("a.wav", "audio/wav", wavBytes())},
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{model: transcriber.ModelWhisper}
			s := newTestServer(t, &fakeRepository{}, engine)

			rr := serve(s, multipartRequest(t, "/api/transcribe", tt.body))
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if decodeDetail(t, rr) == "" {
				t.Fatal("expected a detail message")
			}
			if len(engine.inputs) != 0 {
				t.Fatalf("engine should not be called, got %d calls", len(engine.inputs))
			}
		})
	}
}

// Engine failures surface as 500 with the cause in detail.
func TestTranscribe_EngineFailure(t *testing.T) {
	engine := &fakeEngine{model: transcriber.ModelWhisper, err: errors.New("upstream returned 502")}
	repo := &fakeRepository{}
	s := newTestServer(t, repo, engine)

	rr := serve(s, multipartRequest(t, "/api/transcribe", httpform.Body{
		Fields: []httpform.Field{{Name: "model", Value: "whisper"}},
		Files:  []httpform.File{audioFile("a.wav", "audio/wav", wavBytes())},
	}))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if got := decodeDetail(t, rr); !strings.Contains(got, "upstream returned 502") {
		t.Fatalf("unexpected detail: %q", got)
	}
	if len(repo.transcriptions) != 0 {
		t.Fatalf("failed transcription should not be stored")
	}
}

func TestTranscribe_NotMultipart(t *testing.T) {
	s := newTestServer(t, &fakeRepository{})
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", strings.NewReader(`{"model":"whisper"}`))
	req.Header.Set("Content-Type", "application/json")

	if rr := serve(s, req); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestTranscribe_UploadTooLarge(t *testing.T) {
	s := newTestServer(t, &fakeRepository{}, &fakeEngine{model: transcriber.ModelWhisper})

	rr := serve(s, multipartRequest(t, "/api/transcribe", httpform.Body{
		Fields: []httpform.Field{{Name: "model", Value: "whisper"}},
		Files:  []httpform.File{audioFile("big.wav", "audio/wav", bytes.Repeat([]byte{1}, 2<<20))},
	}))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

// Saved recordings get a canonical name derived from the requested one.
func TestSaveRecording_Success(t *testing.T) {
	repo := &fakeRepository{}
	s := newTestServer(t, repo)

	rr := serve(s, multipartRequest(t, "/api/save-recording", httpform.Body{
		Fields: []httpform.Field{{Name: "filename", Value: "  standup notes "}},
		Files:  []httpform.File{audioFile("recording.webm", "audio/webm;codecs=opus", []byte("webm-bytes"))},
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body saveRecordingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if !strings.HasSuffix(body.FileName, ".webm") || !strings.HasPrefix(body.FileName, "standup") {
		t.Fatalf("unexpected canonical name: %q", body.FileName)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected one saved recording, got %d", len(repo.saved))
	}
	saved := repo.saved[0]
	if saved.FileName != body.FileName || saved.OriginalName != "standup notes" || saved.MediaType != "audio/webm" {
		t.Fatalf("unexpected saved input: %+v", saved)
	}
	if string(saved.Data) != "webm-bytes" {
		t.Fatalf("unexpected saved data: %q", saved.Data)
	}
}

func TestSaveRecording_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       httpform.Body
		repoErr    error
		wantStatus int
	}{
		{
			name:       "blank filename",
			body:       httpform.Body{Fields: []httpform.Field{{Name: "filename", Value: "   "}}, Files: []httpform.File{audioFile("a.wav", "audio/wav", wavBytes())}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing audio",
			body:       httpform.Body{Fields: []httpform.Field{{Name: "filename", Value: "memo"}}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty audio",
			body:       httpform.Body{Fields: []httpform.Field{{Name: "filename", Value: "memo"}}, Files: []httpform.File{audioFile("a.wav", "audio/wav", nil)}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "duplicate name",
			body:       httpform.Body{Fields: []httpform.Field{{Name: "filename", Value: "memo"}}, Files: []httpform.File{audioFile("a.wav", "audio/wav", wavBytes())}},
			repoErr:    repository.ErrDuplicateFileName,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "store failure",
			body:       httpform.Body{Fields: []httpform.Field{{Name: "filename", Value: "memo"}}, Files: []httpform.File{audioFile("a.wav", "audio/wav", wavBytes())}},
			repoErr:    errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeRepository{saveErr: tt.repoErr})
			rr := serve(s, multipartRequest(t, "/api/save-recording", tt.body))
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &fakeRepository{}, &fakeEngine{model: transcriber.ModelLocalWhisper})

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), `"local-whisper"`) {
		t.Fatalf("expected configured models in body: %s", body)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, &fakeRepository{})

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/transcribe", http.NoBody)
		req.Header.Set("Origin", "http://localhost:3000")
		rr := serve(s, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Fatalf("unexpected allow origin: %q", got)
		}
	})

	t.Run("other origin gets no headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
		req.Header.Set("Origin", "http://evil.example")
		rr := serve(s, req)
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("expected no allow origin, got %q", got)
		}
	})
}

func TestIsAllowedOrigin_Wildcard(t *testing.T) {
	if !isAllowedOrigin("http://anything", []string{"*"}) {
		t.Fatal("wildcard should allow any origin")
	}
	if isAllowedOrigin("http://a", nil) {
		t.Fatal("empty allow-list should reject")
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(recovery())
	engine.GET("/panic", func(*gin.Context) { panic("boom") })

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestServer_StartStop(t *testing.T) {
	s := newTestServer(t, &fakeRepository{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}
