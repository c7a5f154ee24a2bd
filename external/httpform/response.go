package httpform

import (
	"io"
	"net/http"
	"strings"
)

const maxErrorBodyBytes = 4 << 10

func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// ErrorDetail reads the start of a failed response body for error messages.
func ErrorDetail(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return strings.TrimSpace(string(b))
}
