package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/foxseedlab/voxqueue/internal/audio"
	"github.com/foxseedlab/voxqueue/internal/recognizer"
	"github.com/foxseedlab/voxqueue/internal/repository"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type transcribeResponse struct {
	Text     string                `json:"text"`
	Segments []transcriber.Segment `json:"segments,omitempty"`
}

type saveRecordingResponse struct {
	FileName string `json:"filename"`
}

// uploadError carries the HTTP status a failed upload maps to.
type uploadError struct {
	status int
	detail string
}

func (e *uploadError) Error() string {
	return e.detail
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "models": s.registry.Models()})
}

func (s *Server) handleTranscribe(c *gin.Context) {
	if err := parseForm(c); err != nil {
		respondUploadError(c, err)
		return
	}
	model, err := transcriber.ParseModel(c.PostForm("model"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: err.Error()})
		return
	}
	blob, fileName, err := readAudio(c)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	engine, err := s.registry.Get(model)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Detail: err.Error()})
		return
	}

	res, err := engine.Recognize(c.Request.Context(), recognizer.Input{
		FileName: fileName,
		Audio:    blob,
		Prompt:   strings.TrimSpace(c.PostForm("prompt")),
	})
	if err != nil {
		slog.Error("transcription failed", "model", model, "file_name", fileName, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: err.Error()})
		return
	}

	if err := s.repo.InsertTranscription(c.Request.Context(), repository.InsertTranscriptionInput{
		FileName: fileName,
		Model:    model.String(),
		Text:     res.Text,
		Segments: res.Segments,
	}); err != nil {
		slog.Warn("failed to store transcription", "file_name", fileName, "error", err)
	}

	slog.Info("transcription completed", "model", model, "file_name", fileName, "segments", len(res.Segments))
	c.JSON(http.StatusOK, transcribeResponse{Text: res.Text, Segments: res.Segments})
}

func (s *Server) handleSaveRecording(c *gin.Context) {
	if err := parseForm(c); err != nil {
		respondUploadError(c, err)
		return
	}
	requested := strings.TrimSpace(c.PostForm("filename"))
	blob, _, err := readAudio(c)
	if err != nil {
		respondUploadError(c, err)
		return
	}
	if requested == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "filename is required"})
		return
	}

	rec, err := s.repo.SaveRecording(c.Request.Context(), repository.SaveRecordingInput{
		FileName:     repository.CanonicalFileName(requested, blob.MediaType),
		OriginalName: requested,
		MediaType:    blob.MediaType,
		Data:         blob.Data,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateFileName) {
			c.JSON(http.StatusConflict, errorResponse{Detail: err.Error()})
			return
		}
		slog.Error("failed to save recording", "file_name", requested, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: "failed to save recording"})
		return
	}

	slog.Info("recording saved", "file_name", rec.FileName, "size_bytes", rec.SizeBytes)
	c.JSON(http.StatusOK, saveRecordingResponse{FileName: rec.FileName})
}

func parseForm(c *gin.Context) error {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		if tooLarge(err) {
			return &uploadError{status: http.StatusRequestEntityTooLarge, detail: "upload too large"}
		}
		return &uploadError{status: http.StatusBadRequest, detail: "expected a multipart form"}
	}
	return nil
}

// readAudio reads the "audio" part and rejects anything that is not audio.
func readAudio(c *gin.Context) (audio.Blob, string, error) {
	header, err := c.FormFile("audio")
	if err != nil {
		return audio.Blob{}, "", &uploadError{status: http.StatusBadRequest, detail: "audio file is required"}
	}
	f, err := header.Open()
	if err != nil {
		return audio.Blob{}, "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return audio.Blob{}, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return audio.Blob{}, "", &uploadError{status: http.StatusBadRequest, detail: "audio file is empty"}
	}
	mt := audio.DetectMediaType(data, header.Header.Get("Content-Type"), header.Filename)
	if mt == "" {
		return audio.Blob{}, "", &uploadError{status: http.StatusBadRequest, detail: "uploaded file is not audio"}
	}
	return audio.Blob{Data: data, MediaType: mt}, header.Filename, nil
}

func respondUploadError(c *gin.Context, err error) {
	var ue *uploadError
	if errors.As(err, &ue) {
		c.JSON(ue.status, errorResponse{Detail: ue.detail})
		return
	}
	slog.Error("failed to read upload", "error", err)
	c.JSON(http.StatusInternalServerError, errorResponse{Detail: "failed to read upload"})
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
