package session

import "errors"

var (
	ErrPermissionDenied     = errors.New("microphone permission denied")
	ErrDeviceUnavailable    = errors.New("no audio input device available")
	ErrSessionAlreadyActive = errors.New("a recording session is already active")
	ErrUnknownSession       = errors.New("session is not owned by this recorder")
)

// classifyOpenError keeps device errors inside the capture taxonomy.
func classifyOpenError(err error) error {
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) {
		return err
	}
	return errors.Join(ErrDeviceUnavailable, err)
}
