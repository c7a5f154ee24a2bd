package events

import (
	"github.com/foxseedlab/voxqueue/internal/config"
	"github.com/foxseedlab/voxqueue/internal/orchestrator"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*NATSPublisher, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.NATSURL == "" {
			return nil, nil
		}
		return NewNATSPublisher(c.NATSURL, c.NATSSubject)
	})
	do.Provide(injector, func(i do.Injector) (orchestrator.Publishers, error) {
		p, err := do.Invoke[*NATSPublisher](i)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return orchestrator.Publishers{}, nil
		}
		return orchestrator.Publishers{p}, nil
	})
}
