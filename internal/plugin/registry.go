package plugin

import (
	"fmt"
	"slices"
	"sync"
)

// Registry manages plugin registration. Registration order is execution
// order: hooks of earlier plugins run first.
type Registry struct {
	mu      sync.RWMutex
	order   []Plugin
	plugins map[string]Plugin
}

// NewRegistry creates a new empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
	}
}

// Register validates, initializes and adds a plugin to the registry.
// Returns an error if a plugin with the same name already exists.
func (r *Registry) Register(plugin Plugin) error {
	if plugin == nil {
		return fmt.Errorf("cannot register nil plugin")
	}

	metadata := plugin.Metadata()
	if err := metadata.Validate(); err != nil {
		return fmt.Errorf("invalid plugin metadata: %w", err)
	}
	if err := plugin.Validate(); err != nil {
		return NewPluginError(metadata.Name, "validate", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[metadata.Name]; exists {
		return fmt.Errorf("plugin %s already registered", metadata.Name)
	}

	if lc, ok := plugin.(PluginLifecycle); ok {
		if err := lc.Init(); err != nil {
			return NewPluginError(metadata.Name, "init", err)
		}
	}

	r.plugins[metadata.Name] = plugin
	r.order = append(r.order, plugin)
	return nil
}

// Get retrieves a plugin by name.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[name]
	if !ok {
		return nil, fmt.Errorf("plugin %s not found", name)
	}
	return plugin, nil
}

// List returns all registered plugins in registration order.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// RenderBodyHooks returns the plugins implementing RenderBodyHook, in order.
func (r *Registry) RenderBodyHooks() []RenderBodyHook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var hooks []RenderBodyHook
	for _, p := range r.order {
		if h, ok := p.(RenderBodyHook); ok {
			hooks = append(hooks, h)
		}
	}
	return hooks
}

// PreRenderHTMLHooks returns the plugins implementing PreRenderHTMLHook, in order.
func (r *Registry) PreRenderHTMLHooks() []PreRenderHTMLHook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var hooks []PreRenderHTMLHook
	for _, p := range r.order {
		if h, ok := p.(PreRenderHTMLHook); ok {
			hooks = append(hooks, h)
		}
	}
	return hooks
}

// Has checks if a plugin with the given name exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.plugins[name]
	return ok
}

// Unregister removes a plugin from the registry, running its cleanup hook.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	plugin, ok := r.plugins[name]
	if !ok {
		return fmt.Errorf("plugin %s not found", name)
	}

	delete(r.plugins, name)
	r.order = slices.DeleteFunc(r.order, func(p Plugin) bool { return p == plugin })

	if lc, ok := plugin.(PluginLifecycle); ok {
		if err := lc.Cleanup(); err != nil {
			return NewPluginError(name, "cleanup", err)
		}
	}
	return nil
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Signature returns a stable description of the registered plugins, used to
// detect when processed output must be regenerated.
func (r *Registry) Signature() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sig string
	for _, p := range r.order {
		sig += p.Metadata().String() + ";"
		if s, ok := p.(interface{ Fingerprint() string }); ok {
			sig += s.Fingerprint() + ";"
		}
	}
	return sig
}
