package session

import (
	"github.com/foxseedlab/voxqueue/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Recorder, error) {
		cfg := do.MustInvoke[*config.Config](i)
		device := do.MustInvoke[Device](i)
		return NewRecorder(device, cfg.MaxRecordingDuration), nil
	})
}
