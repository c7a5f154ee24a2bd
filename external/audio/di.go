package audio

import (
	"fmt"

	"github.com/foxseedlab/voxqueue/internal/config"
	"github.com/foxseedlab/voxqueue/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (session.Device, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.CaptureDevice {
		case config.CaptureDeviceFFmpeg:
			return NewFFmpegDevice(c.CaptureInput), nil
		case config.CaptureDeviceOpusUDP:
			return NewOpusUDPDevice(c.OpusListenAddr), nil
		default:
			return nil, fmt.Errorf("unsupported capture device %q", c.CaptureDevice)
		}
	})
}
