package recognizer

import (
	"log/slog"

	"github.com/foxseedlab/voxqueue/internal/config"
	"github.com/foxseedlab/voxqueue/internal/recognizer"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*recognizer.Registry, error) {
		c := do.MustInvoke[*config.ServerConfig](i)
		var engines []recognizer.Engine
		if c.OpenAIAPIKey != "" {
			engines = append(engines, NewOpenAIEngine(c.OpenAIAPIURL, c.OpenAIAPIKey, c.OpenAIWhisperModel))
		}
		if c.AssemblyAIAPIKey != "" {
			engines = append(engines, NewAssemblyAIEngine(c.AssemblyAIAPIURL, c.AssemblyAIAPIKey, c.AssemblyAIPollInterval))
		}
		if c.LocalWhisperURL != "" {
			engines = append(engines, NewLocalWhisperEngine(c.LocalWhisperURL))
		}
		registry := recognizer.NewRegistry(engines...)
		if len(engines) == 0 {
			slog.Warn("no transcription engine configured; /api/transcribe will answer 503")
		} else {
			slog.Info("transcription engines configured", "models", registry.Models())
		}
		return registry, nil
	})
}
