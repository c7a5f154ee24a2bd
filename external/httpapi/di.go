package httpapi

import (
	"github.com/foxseedlab/voxqueue/internal/config"
	"github.com/foxseedlab/voxqueue/internal/recognizer"
	"github.com/foxseedlab/voxqueue/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.ServerConfig](i)
		registry := do.MustInvoke[*recognizer.Registry](i)
		repo := do.MustInvoke[repository.Repository](i)
		return NewServer(cfg, registry, repo), nil
	})
}
