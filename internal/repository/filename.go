package repository

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/foxseedlab/voxqueue/internal/audio"
	"github.com/google/uuid"
)

const (
	fallbackBaseName = "recording"
	maxBaseNameRunes = 64
	suffixLength     = 8
)

// CanonicalFileName builds the stored name of a recording:
// sanitized base name, "-", eight hex characters, extension of the media type.
func CanonicalFileName(original, mediaType string) string {
	return canonicalFileName(original, mediaType, uuid.NewString())
}

func canonicalFileName(original, mediaType, id string) string {
	name := filepath.Base(strings.TrimSpace(strings.ReplaceAll(original, "\\", "/")))
	originalExt := strings.ToLower(filepath.Ext(name))
	if len(originalExt) <= 1 {
		originalExt = ""
	}
	base := sanitizeBaseName(strings.TrimSuffix(name, filepath.Ext(name)))

	ext := audio.ExtensionFor(mediaType)
	if ext == "" {
		ext = originalExt
	}
	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > suffixLength {
		suffix = suffix[:suffixLength]
	}
	return base + "-" + suffix + ext
}

func sanitizeBaseName(s string) string {
	var b strings.Builder
	lastDash := false
	runes := 0
	for _, r := range s {
		if runes >= maxBaseNameRunes {
			break
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if lastDash || b.Len() == 0 {
				continue
			}
			b.WriteByte('-')
			lastDash = true
		}
		runes++
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" || out == "." {
		return fallbackBaseName
	}
	return out
}
