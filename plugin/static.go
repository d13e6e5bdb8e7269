package plugin

import (
	"fmt"
	"io"
	"sync"
)

// Factory builds the object of a statically linked module.
type Factory func() Object

type staticEntry struct {
	typ     Type
	factory Factory
}

var (
	staticMu    sync.Mutex
	staticTable []staticEntry
)

// RegisterStatic links a module into the binary. It is meant to be called
// from the init function of the module package.
func RegisterStatic(typ Type, factory Factory) {
	if !typ.Valid() {
		panic(fmt.Sprintf("plugin: RegisterStatic with invalid type %d", int(typ)))
	}
	if factory == nil {
		panic("plugin: RegisterStatic with nil factory")
	}
	staticMu.Lock()
	defer staticMu.Unlock()
	staticTable = append(staticTable, staticEntry{typ: typ, factory: factory})
}

// StaticPlugin is a plugin whose code is always resident. Loading builds the
// object from its factory and unloading releases it.
type StaticPlugin struct {
	base
	factory Factory
}

// NewStaticPlugin returns a loaded static plugin.
func NewStaticPlugin(typ Type, factory Factory) *StaticPlugin {
	if !typ.Valid() {
		panic(fmt.Sprintf("plugin: invalid static plugin type %d", int(typ)))
	}
	p := &StaticPlugin{factory: factory}
	p.typ = typ
	p.object = factory()
	if p.object == nil {
		panic("plugin: static factory returned a nil object")
	}
	return p
}

// FileName is empty for static plugins.
func (p *StaticPlugin) FileName() string {
	return ""
}

// Load always succeeds.
func (p *StaticPlugin) Load() error {
	if p.object == nil {
		p.object = p.factory()
	}
	if p.object == nil {
		return fmt.Errorf("static %s factory: %w", p.typ, ErrInvalidPlugin)
	}
	return nil
}

// Unload releases the object. The code itself stays linked.
func (p *StaticPlugin) Unload() error {
	obj := p.object
	p.object = nil
	if c, ok := obj.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Destroy releases the object.
func (p *StaticPlugin) Destroy() {
	_ = p.Unload()
}

// StaticProvider provides the modules linked into the binary. The table is
// fixed at link time so the same plugins are returned on every call.
type StaticProvider struct {
	plugins []Plugin
}

// NewStaticProvider instantiates every registered static module.
func NewStaticProvider() *StaticProvider {
	staticMu.Lock()
	entries := make([]staticEntry, len(staticTable))
	copy(entries, staticTable)
	staticMu.Unlock()

	s := &StaticProvider{}
	for _, e := range entries {
		s.plugins = append(s.plugins, NewStaticPlugin(e.typ, e.factory))
	}
	return s
}

// NewStaticProviderWith returns a provider for the given plugins.
func NewStaticProviderWith(plugins ...Plugin) *StaticProvider {
	return &StaticProvider{plugins: plugins}
}

// Plugins implements Provider.
func (s *StaticProvider) Plugins() []Plugin {
	pl := make([]Plugin, len(s.plugins))
	copy(pl, s.plugins)
	return pl
}
