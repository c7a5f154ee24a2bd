package audio

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNotAudio = errors.New("file is not audio")

// mimetype reports some audio-only containers under their video or
// application types.
var containerAliases = map[string]string{
	"video/webm":      "audio/webm",
	"video/mp4":       "audio/mp4",
	"application/ogg": "audio/ogg",
	"audio/x-wav":     "audio/wav",
	"audio/wave":      "audio/wav",
	"audio/x-m4a":     "audio/mp4",
}

var extensionTypes = map[string]string{
	".wav":  "audio/wav",
	".webm": "audio/webm",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".flac": "audio/flac",
	".aac":  "audio/aac",
}

func IsAudio(mediaType string) bool {
	return strings.HasPrefix(mediaType, "audio/")
}

// DetectMediaType resolves an audio media type from the declared type, the
// content, and finally the file extension. It returns "" when none of them
// identify audio.
func DetectMediaType(data []byte, declared, fileName string) string {
	if mt := normalize(declared); IsAudio(mt) {
		return mt
	}
	if len(data) > 0 {
		if mt := normalize(mimetype.Detect(data).String()); IsAudio(mt) {
			return mt
		}
	}
	if mt, ok := extensionTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return mt
	}
	return ""
}

// ExtensionFor returns the canonical file extension for an audio media type,
// including the leading dot, or "" when unknown.
func ExtensionFor(mediaType string) string {
	mt := normalize(mediaType)
	switch mt {
	case "audio/wav":
		return ".wav"
	case "audio/webm":
		return ".webm"
	case "audio/mp4":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	}
	if m := mimetype.Lookup(mt); m != nil {
		return m.Extension()
	}
	return ""
}

// LoadFile reads an audio file from disk for enqueueing.
func LoadFile(path string) (Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Blob{}, fmt.Errorf("read audio file: %w", err)
	}
	if len(data) == 0 {
		return Blob{}, fmt.Errorf("%s: %w", path, ErrEmptyAudio)
	}
	mt := DetectMediaType(data, "", path)
	if mt == "" {
		return Blob{}, fmt.Errorf("%s: %w", path, ErrNotAudio)
	}
	return Blob{Data: data, MediaType: mt}, nil
}

func normalize(mediaType string) string {
	if strings.TrimSpace(mediaType) == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mediaType))
	}
	if alias, ok := containerAliases[mt]; ok {
		return alias
	}
	return mt
}
