package session

import (
	"errors"
	"fmt"
	"testing"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "permission", err: fmt.Errorf("open: %w", ErrPermissionDenied), want: messagePermissionDenied},
		{name: "unavailable", err: errors.Join(ErrDeviceUnavailable, errors.New("no such device")), want: messageDeviceUnavailable},
		{name: "already active", err: ErrSessionAlreadyActive, want: messageAlreadyRecording},
		{name: "other", err: errors.New("boom"), want: messageCaptureFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Fatalf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
