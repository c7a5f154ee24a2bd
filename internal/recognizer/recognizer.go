package recognizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxseedlab/voxqueue/internal/audio"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
)

var ErrEngineNotConfigured = errors.New("transcription engine is not configured")

type Input struct {
	FileName string
	Audio    audio.Blob
	Prompt   string
}

// Engine turns audio into text. Implementations call a speech-to-text
// service; none of them retry.
type Engine interface {
	Model() transcriber.Model
	Recognize(ctx context.Context, in Input) (transcriber.Result, error)
}

type Registry struct {
	engines map[transcriber.Model]Engine
}

func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[transcriber.Model]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Model()] = e
	}
	return r
}

func (r *Registry) Get(model transcriber.Model) (Engine, error) {
	e, ok := r.engines[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEngineNotConfigured, model)
	}
	return e, nil
}

// Models lists configured engines in the canonical model order.
func (r *Registry) Models() []transcriber.Model {
	var out []transcriber.Model
	for _, m := range transcriber.Models() {
		if _, ok := r.engines[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
