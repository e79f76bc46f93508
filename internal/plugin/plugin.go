// Package plugin provides the plugin system that customizes generated pages.
// Plugins hook into the page lifecycle points defined by package ssr.
package plugin

import (
	"fmt"

	"git.home.luguber.info/inful/sitehead/internal/ssr"
)

// Plugin represents a sitehead plugin with metadata and validation.
type Plugin interface {
	// Metadata returns the plugin's metadata (name, version, type, capabilities).
	Metadata() PluginMetadata

	// Validate checks that the plugin's options can produce valid output.
	Validate() error
}

// RenderBodyHook is implemented by plugins that queue pre-body components.
type RenderBodyHook interface {
	Plugin

	// OnRenderBody runs once per page before the body content is emitted.
	OnRenderBody(args *ssr.RenderBodyArgs)
}

// PreRenderHTMLHook is implemented by plugins that rewrite head components.
type PreRenderHTMLHook interface {
	Plugin

	// OnPreRenderHTML runs once per page before the head is finalized.
	OnPreRenderHTML(args *ssr.PreRenderHTMLArgs)
}

// PluginLifecycle extends Plugin with optional lifecycle hooks.
type PluginLifecycle interface {
	Plugin

	// Init is called once when the plugin is registered.
	Init() error

	// Cleanup is called when the plugin is unregistered.
	Cleanup() error
}

// PluginMetadata describes a plugin's identity and capabilities.
type PluginMetadata struct {
	// Name is the unique plugin identifier (e.g., "headinject").
	Name string

	// Version is the semantic version (e.g., "v1.0.0").
	Version string

	// Type identifies the plugin category.
	Type PluginType

	// Description provides a human-readable summary of the plugin's purpose.
	Description string

	// Capabilities lists the document sections and features the plugin touches.
	Capabilities []string
}

// String returns a human-readable representation of the plugin metadata.
func (m PluginMetadata) String() string {
	return fmt.Sprintf("%s@%s (%s)", m.Name, m.Version, m.Type)
}

// Validate checks if the plugin metadata is valid.
func (m PluginMetadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid plugin type: %s", m.Type)
	}
	return nil
}

// BasePlugin provides default implementations for optional methods.
// Plugins can embed this to avoid implementing them.
type BasePlugin struct{}

// Init is a no-op default implementation.
func (b *BasePlugin) Init() error {
	return nil
}

// Cleanup is a no-op default implementation.
func (b *BasePlugin) Cleanup() error {
	return nil
}

// Validate is a no-op default implementation that accepts any options.
func (b *BasePlugin) Validate() error {
	return nil
}
