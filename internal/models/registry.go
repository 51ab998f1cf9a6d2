package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vidlore/internal/logging"
)

// Well-known model names.
const (
	Extraction = "extraction"
	Ranking    = "ranking"
)

// ErrUnknownModel is returned when no loader is registered under a name.
var ErrUnknownModel = errors.New("unknown model")

// Model is anything the registry can unload.
type Model interface {
	Close() error
}

// Loader constructs a model.
type Loader func(ctx context.Context) (Model, error)

// Registry lazily loads models and keeps at most one resident.
type Registry struct {
	mu       sync.Mutex
	loaders  map[string]Loader
	resident string
	model    Model
	logger   *slog.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		loaders: make(map[string]Loader),
		logger:  logging.NewComponentLogger(logger, "models"),
	}
}

// Register installs the loader for name, replacing any previous loader. A
// resident model of the same name stays loaded until released.
func (r *Registry) Register(name string, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[name] = loader
}

// Acquire returns the model registered under name, loading it if needed. Any
// other resident model is closed before loading.
func (r *Registry) Acquire(ctx context.Context, name string) (Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resident == name && r.model != nil {
		return r.model, nil
	}
	loader, ok := r.loaders[name]
	if !ok || loader == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	if err := r.unloadLocked(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	model, err := loader(ctx)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", name, err)
	}
	r.resident = name
	r.model = model
	r.logger.Info("model loaded",
		logging.String(logging.FieldEventType, "model_loaded"),
		logging.String("model", name),
		logging.Duration("load_duration", time.Since(started)),
	)
	return model, nil
}

// Release unloads name if it is resident. Releasing a model that is not
// resident is a no-op.
func (r *Registry) Release(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resident != name {
		return nil
	}
	return r.unloadLocked()
}

// Resident returns the name of the loaded model, or "".
func (r *Registry) Resident() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resident
}

// Close unloads whatever is resident.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unloadLocked()
}

func (r *Registry) unloadLocked() error {
	if r.model == nil {
		r.resident = ""
		return nil
	}
	name := r.resident
	err := r.model.Close()
	r.model = nil
	r.resident = ""
	if err != nil {
		return fmt.Errorf("unload model %s: %w", name, err)
	}
	r.logger.Debug("model unloaded", logging.String("model", name))
	return nil
}

// Acquire is the typed form of Registry.Acquire.
func Acquire[T Model](ctx context.Context, r *Registry, name string) (T, error) {
	var zero T
	model, err := r.Acquire(ctx, name)
	if err != nil {
		return zero, err
	}
	typed, ok := model.(T)
	if !ok {
		return zero, fmt.Errorf("model %s has type %T", name, model)
	}
	return typed, nil
}

// NopCloser adapts a value without resources into a Model.
type NopCloser[T any] struct {
	Value T
}

// Close implements Model.
func (NopCloser[T]) Close() error { return nil }
