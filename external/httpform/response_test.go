package httpform

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestIsSuccessStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusOK, true},
		{http.StatusNoContent, true},
		{299, true},
		{http.StatusMultipleChoices, false},
		{http.StatusBadRequest, false},
		{http.StatusInternalServerError, false},
		{199, false},
	}
	for _, tt := range tests {
		if got := IsSuccessStatus(tt.code); got != tt.want {
			t.Fatalf("IsSuccessStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestErrorDetail(t *testing.T) {
	resp := &http.Response{Body: io.NopCloser(strings.NewReader("  upstream down \n"))}
	if got := ErrorDetail(resp); got != "upstream down" {
		t.Fatalf("ErrorDetail() = %q", got)
	}

	long := &http.Response{Body: io.NopCloser(strings.NewReader(strings.Repeat("x", maxErrorBodyBytes*2)))}
	if got := ErrorDetail(long); len(got) != maxErrorBodyBytes {
		t.Fatalf("expected detail capped at %d bytes, got %d", maxErrorBodyBytes, len(got))
	}
}
