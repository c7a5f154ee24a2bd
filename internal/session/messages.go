package session

import "errors"

const (
	messagePermissionDenied  = "Could not access microphone. Please check permissions."
	messageDeviceUnavailable = "No microphone was found. Connect an input device and try again."
	messageAlreadyRecording  = "A recording is already in progress."
	messageCaptureFailed     = "Recording failed. Please try again."

	StopReasonManual        = "manual"
	StopReasonMaxDuration   = "max_duration"
	StopReasonSourceEnded   = "source_ended"
	StopReasonCaptureFailed = "capture_failed"
)

// UserMessage maps a capture error to the inline message shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return messagePermissionDenied
	case errors.Is(err, ErrDeviceUnavailable):
		return messageDeviceUnavailable
	case errors.Is(err, ErrSessionAlreadyActive):
		return messageAlreadyRecording
	default:
		return messageCaptureFailed
	}
}

func stopReasonDetail(reason string) string {
	switch reason {
	case StopReasonManual:
		return "stopped by user"
	case StopReasonMaxDuration:
		return "maximum recording duration reached"
	case StopReasonSourceEnded:
		return "input stream ended"
	case StopReasonCaptureFailed:
		return "input stream failed"
	default:
		return "unknown"
	}
}
