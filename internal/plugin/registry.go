// Package plugin implements a plugin registry: a mapping from
// (kind, name) to factory, populated at initialization, looked up and
// Init-ed with a config subtree and a shared context. Init(config,
// context) is the common lifecycle hook across every plugin kind, in a
// name-keyed registry rather than one concrete subclass per kind.
package plugin

import (
	"fmt"
	"sync"

	"github.com/polaris-contrib/polaris-go-core/internal/config"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
)

// Kind identifies a plugin category.
type Kind string

const (
	KindHealthCheckDetector Kind = "healthCheckDetector"
	KindCircuitBreaker      Kind = "circuitBreaker"
	KindWeightAdjuster      Kind = "weightAdjuster"
)

// Plugin is the common lifecycle every registered plugin kind implements.
type Plugin interface {
	Init(cfg *config.Config, ctx *Context) error
	Name() string
}

// Factory produces a new, un-Init-ed Plugin instance.
type Factory func() Plugin

// Context is the shared object handed to every plugin's Init, carrying
// whatever cross-cutting dependencies plugins need. Kept intentionally
// minimal; the outer runtime wiring decides what belongs here.
type Context struct {
	Attributes map[string]any
}

// Registry is a (kind, name) -> Factory map. The package holds no shared
// instance; each owner (e.g. each Runtime) constructs its own with
// NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[Kind]map[string]Factory
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]map[string]Factory)}
}

// Register associates name under kind with factory. Re-registering the
// same (kind, name) overwrites the previous factory ("last registration
// wins").
func (r *Registry) Register(kind Kind, name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories[kind] == nil {
		r.factories[kind] = make(map[string]Factory)
	}
	r.factories[kind][name] = factory
}

// New looks up (kind, name), instantiates via its factory, and Inits it
// with cfg and ctx. Unknown names produce a configuration error.
func (r *Registry) New(kind Kind, name string, cfg *config.Config, ctx *Context) (Plugin, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind][name]
	r.mu.RUnlock()
	if !ok {
		return nil, model.AsError(model.ErrInvalidConfig, fmt.Sprintf("plugin: unknown %s plugin %q", kind, name))
	}
	p := factory()
	if err := p.Init(cfg, ctx); err != nil {
		return nil, fmt.Errorf("plugin: init %s/%s: %w", kind, name, err)
	}
	return p, nil
}

// Names returns the registered plugin names under kind, for diagnostics.
func (r *Registry) Names(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories[kind]))
	for name := range r.factories[kind] {
		names = append(names, name)
	}
	return names
}
