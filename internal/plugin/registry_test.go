package plugin

import (
	"errors"
	"testing"

	"git.home.luguber.info/inful/sitehead/internal/ssr"
)

// mockPlugin records lifecycle calls and hook invocations.
type mockPlugin struct {
	BasePlugin
	metadata    PluginMetadata
	validateErr error
	initErr     error
	inited      int
	cleaned     int
	calls       *[]string
}

func (m *mockPlugin) Metadata() PluginMetadata { return m.metadata }
func (m *mockPlugin) Validate() error          { return m.validateErr }
func (m *mockPlugin) Init() error              { m.inited++; return m.initErr }
func (m *mockPlugin) Cleanup() error           { m.cleaned++; return nil }

type bodyPlugin struct{ mockPlugin }

func (b *bodyPlugin) OnRenderBody(args *ssr.RenderBodyArgs) {
	*b.calls = append(*b.calls, b.metadata.Name+":body")
}

type headPlugin struct{ mockPlugin }

func (h *headPlugin) OnPreRenderHTML(args *ssr.PreRenderHTMLArgs) {
	*h.calls = append(*h.calls, h.metadata.Name+":head")
}

func newMock(name string) *mockPlugin {
	return &mockPlugin{metadata: PluginMetadata{Name: name, Version: "v1.0.0", Type: PluginTypeSSR}}
}

// TestRegistryRegister tests plugin registration.
func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry()
	p := newMock("test-plugin")

	if err := registry.Register(p); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if !registry.Has("test-plugin") {
		t.Error("Plugin should be registered")
	}
	if p.inited != 1 {
		t.Errorf("Init called %d times, expected 1", p.inited)
	}

	if err := registry.Register(p); err == nil {
		t.Error("Should not allow duplicate registration")
	}
	if err := registry.Register(nil); err == nil {
		t.Error("Should not allow nil plugin")
	}
	if registry.Count() != 1 {
		t.Errorf("Count() = %d, expected 1", registry.Count())
	}
}

// TestRegistryRejectsInvalidPlugins tests validation and init failures.
func TestRegistryRejectsInvalidPlugins(t *testing.T) {
	registry := NewRegistry()

	bad := newMock("bad")
	bad.validateErr = errors.New("missing font url")
	err := registry.Register(bad)
	var pe *PluginError
	if !errors.As(err, &pe) || pe.Operation != "validate" {
		t.Errorf("expected validate PluginError, got %v", err)
	}

	failing := newMock("failing")
	failing.initErr = errors.New("boom")
	err = registry.Register(failing)
	if !errors.As(err, &pe) || pe.Operation != "init" {
		t.Errorf("expected init PluginError, got %v", err)
	}

	unnamed := newMock("")
	if err := registry.Register(unnamed); err == nil {
		t.Error("expected metadata error")
	}

	if registry.Count() != 0 {
		t.Errorf("Count() = %d, expected 0", registry.Count())
	}
}

// TestRegistryHookOrder tests that hooks are returned in registration order.
func TestRegistryHookOrder(t *testing.T) {
	var calls []string
	registry := NewRegistry()

	first := &bodyPlugin{*newMock("first")}
	first.calls = &calls
	second := &headPlugin{*newMock("second")}
	second.calls = &calls
	third := &bodyPlugin{*newMock("third")}
	third.calls = &calls

	for _, p := range []Plugin{first, second, third} {
		if err := registry.Register(p); err != nil {
			t.Fatalf("Register() failed: %v", err)
		}
	}

	for _, h := range registry.RenderBodyHooks() {
		h.OnRenderBody(&ssr.RenderBodyArgs{})
	}
	for _, h := range registry.PreRenderHTMLHooks() {
		h.OnPreRenderHTML(&ssr.PreRenderHTMLArgs{})
	}

	expected := []string{"first:body", "third:body", "second:head"}
	if len(calls) != len(expected) {
		t.Fatalf("calls = %v, expected %v", calls, expected)
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("calls[%d] = %q, expected %q", i, calls[i], expected[i])
		}
	}

	list := registry.List()
	if len(list) != 3 || list[0] != Plugin(first) || list[2] != Plugin(third) {
		t.Errorf("List() not in registration order: %v", list)
	}
}

// TestRegistryUnregister tests removal and cleanup.
func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry()
	p := newMock("test-plugin")
	if err := registry.Register(p); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if err := registry.Unregister("test-plugin"); err != nil {
		t.Fatalf("Unregister() failed: %v", err)
	}
	if registry.Has("test-plugin") {
		t.Error("Plugin should be removed")
	}
	if p.cleaned != 1 {
		t.Errorf("Cleanup called %d times, expected 1", p.cleaned)
	}
	if err := registry.Unregister("test-plugin"); err == nil {
		t.Error("expected error for unknown plugin")
	}
	if _, err := registry.Get("test-plugin"); err == nil {
		t.Error("expected error for unknown plugin")
	}
}

// TestRegistrySignature tests that the signature tracks registered plugins.
func TestRegistrySignature(t *testing.T) {
	registry := NewRegistry()
	empty := registry.Signature()

	if err := registry.Register(newMock("a")); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	withA := registry.Signature()
	if withA == empty {
		t.Error("signature should change after registration")
	}
	if registry.Signature() != withA {
		t.Error("signature should be stable")
	}
}
