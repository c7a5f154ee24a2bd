package transcriber

import (
	"github.com/foxseedlab/voxqueue/internal/config"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPClient(c.TranscribeAPIURL, c.RequestTimeout), nil
	})
}
