package orchestrator

import (
	"github.com/foxseedlab/voxqueue/internal/config"
	"github.com/foxseedlab/voxqueue/internal/queue"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
	"github.com/foxseedlab/voxqueue/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*queue.Queue, error) {
		return queue.New(), nil
	})
	do.Provide(injector, func(i do.Injector) (*Orchestrator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		q := do.MustInvoke[*queue.Queue](i)
		client := do.MustInvoke[transcriber.Client](i)
		wh := do.MustInvoke[webhook.Sender](i)
		publishers := do.MustInvoke[Publishers](i)
		return New(q, client, wh, Options{Model: cfg.TranscribeModel, Prompt: cfg.TranscribePrompt}, publishers...), nil
	})
}
