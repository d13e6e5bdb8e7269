package plugin

import (
	"fmt"
	"io"
	"strings"
	"sync"

	multierror "github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Manager contains the providers and the plugins loaded in memory.
//
// It is built by the application entry point and handed to whatever drives
// detection and game launching. Provider list and bucket mutations are
// serialized by an internal mutex; plugin loading runs on the caller's
// goroutine while it is held.
type Manager struct {
	mu        sync.Mutex
	providers []Provider
	loaded    map[Type][]Plugin
	policy    policy
	log       *zap.Logger
}

type options struct {
	log    *zap.Logger
	static Provider
	policy policy
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets the manager logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithStaticProvider replaces the provider of statically linked modules.
func WithStaticProvider(p Provider) Option {
	return func(o *options) {
		o.static = p
	}
}

// WithCached selects the cached policy: Init loads every plugin and keeps it
// resident. This is the default.
func WithCached() Option {
	return func(o *options) {
		o.policy = &cachedPolicy{}
	}
}

// WithUncached selects the uncached policy: engines are loaded one at a time
// and detection goes through the module called detectionFile.
func WithUncached(detectionFile string) Option {
	return func(o *options) {
		o.policy = &uncachedPolicy{fileName: detectionFile}
	}
}

// NewManager creates a manager with the static provider registered.
func NewManager(opts ...Option) *Manager {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.L().Named("plugins")
	}
	if o.static == nil {
		o.static = NewStaticProvider()
	}
	if o.policy == nil {
		o.policy = &cachedPolicy{}
	}

	m := &Manager{
		loaded: make(map[Type][]Plugin),
		policy: o.policy,
		log:    o.log,
	}
	m.AddProvider(o.static)
	return m
}

// Init performs the initial load pass of the policy.
func (m *Manager) Init() error {
	return m.policy.init(m)
}

// Uncached reports whether the manager runs the uncached policy.
func (m *Manager) Uncached() bool {
	_, ok := m.policy.(*uncachedPolicy)
	return ok
}

// AddProvider registers p and merges its already loaded plugins.
func (m *Manager) AddProvider(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addProvider(p)
}

// RemoveProvider drops the loaded plugins of p from memory lists, then p.
// Plugins are not unloaded.
func (m *Manager) RemoveProvider(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeProvider(p)
}

// Providers returns the registered providers in priority order.
func (m *Manager) Providers() []Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	pp := make([]Provider, len(m.providers))
	copy(pp, m.providers)
	return pp
}

// TryLoad loads p and registers it. A plugin that fails to load is destroyed
// and must not be used by the caller afterwards.
func (m *Manager) TryLoad(p Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tryLoad(p)
}

// Unload removes p from memory lists and unloads it.
func (m *Manager) Unload(p Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unload(p)
}

// UnloadExcept unloads every loaded plugin of type typ except keep, which may
// be nil. Unloaded plugins are destroyed when destroy is set. Every candidate
// is processed even when some fail.
func (m *Manager) UnloadExcept(typ Type, keep Plugin, destroy bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unloadExcept(typ, keep, destroy)
}

// UnloadAll unloads and destroys every loaded plugin.
func (m *Manager) UnloadAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unloadAll()
}

// LoadedPlugins returns the plugins of type typ currently in memory.
func (m *Manager) LoadedPlugins(typ Type) []Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	pl := make([]Plugin, len(m.loaded[typ]))
	copy(pl, m.loaded[typ])
	return pl
}

// PluginByFileName returns the first plugin of any provider whose file name
// ends with suffix, ignoring case. Load state does not matter.
func (m *Manager) PluginByFileName(suffix string) (Plugin, bool) {
	return pluginByFileName(m.Providers(), suffix)
}

// Close unloads every plugin then closes the providers that need it.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs *multierror.Error
	if err := m.unloadAll(); err != nil {
		errs = multierror.Append(errs, err)
	}
	for _, p := range m.providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	m.providers = nil
	return errs.ErrorOrNil()
}

func (m *Manager) addProvider(p Provider) {
	for _, existing := range m.providers {
		if existing == p {
			m.log.Debug("Provider already registered")
			return
		}
	}
	m.providers = append(m.providers, p)

	for _, pl := range p.Plugins() {
		if !pl.IsLoaded() {
			continue
		}
		typ, _ := pl.Type()
		if !m.inMemory(typ, pl) {
			m.loaded[typ] = append(m.loaded[typ], pl)
		}
	}
}

func (m *Manager) removeProvider(p Provider) {
	for _, pl := range p.Plugins() {
		if !pl.IsLoaded() {
			continue
		}
		m.removeFromInMem(pl)
	}

	for i, existing := range m.providers {
		if existing == p {
			m.providers = append(m.providers[:i], m.providers[i+1:]...)
			break
		}
	}
}

// resourcePlugin is a plugin whose resources are attached in a second step,
// once a duplicate it replaces has released the same resources.
type resourcePlugin interface {
	loadCode() error
	mountResources() error
}

func (m *Manager) tryLoad(p Plugin) error {
	if p.IsLoaded() {
		return nil
	}

	rp, split := p.(resourcePlugin)
	load := p.Load
	if split {
		load = rp.loadCode
	}
	if err := load(); err != nil {
		m.log.Warn("Failed loading plugin", zap.String("file", p.FileName()), zap.Error(err))
		p.Destroy()
		return err
	}

	if err := m.addToInMem(p); err != nil {
		m.log.Warn("Failed registering plugin", zap.String("file", p.FileName()), zap.Error(err))
		p.Destroy()
		return err
	}

	if split {
		if err := rp.mountResources(); err != nil {
			m.log.Warn("Failed loading plugin resources", zap.String("file", p.FileName()), zap.Error(err))
			m.removeFromInMem(p)
			p.Destroy()
			return err
		}
	}
	return nil
}

func (m *Manager) unload(p Plugin) error {
	if !p.IsLoaded() {
		return nil
	}
	m.removeFromInMem(p)
	return p.Unload()
}

func (m *Manager) unloadExcept(typ Type, keep Plugin, destroy bool) error {
	var errs *multierror.Error

	// unload modifies the bucket, walk a copy.
	pl := make([]Plugin, len(m.loaded[typ]))
	copy(pl, m.loaded[typ])

	for _, p := range pl {
		if p == keep {
			continue
		}
		if err := m.unload(p); err != nil {
			errs = multierror.Append(errs, err)
		}
		if destroy {
			p.Destroy()
		}
	}
	return errs.ErrorOrNil()
}

func (m *Manager) unloadAll() error {
	var errs *multierror.Error
	for _, typ := range Types {
		if err := m.unloadExcept(typ, nil, true); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// addToInMem registers a loaded plugin. A plugin providing the same module
// as an already loaded one replaces it.
func (m *Manager) addToInMem(p Plugin) error {
	typ, err := p.Type()
	if err != nil {
		return err
	}
	name, err := p.Name()
	if err != nil {
		return err
	}

	var col Provider
	if typ == TypeCollection {
		if col, err = As[Provider](p); err != nil {
			return fmt.Errorf("collection %s: %w", name, err)
		}
	}

	bucket := m.loaded[typ]
	replaced := false
	for i, old := range bucket {
		if old == p {
			return nil
		}
		if oldName, _ := old.Name(); oldName == name {
			m.detachCollection(old)
			if err := old.Unload(); err != nil {
				m.log.Warn("Failed unloading duplicated plugin", zap.String("name", name), zap.Error(err))
			}
			old.Destroy()
			bucket[i] = p
			replaced = true
			m.log.Debug("Replaced the duplicated plugin", zap.String("name", name))
			break
		}
	}
	if !replaced {
		m.loaded[typ] = append(bucket, p)
	}

	if col != nil {
		m.addProvider(col)
	}
	return nil
}

func (m *Manager) removeFromInMem(p Plugin) {
	typ, err := p.Type()
	if err != nil {
		return
	}

	m.detachCollection(p)

	bucket := m.loaded[typ]
	kept := bucket[:0]
	for _, q := range bucket {
		if q != p {
			kept = append(kept, q)
		}
	}
	for i := len(kept); i < len(bucket); i++ {
		bucket[i] = nil
	}
	m.loaded[typ] = kept
}

// detachCollection unregisters the provider of a collection plugin.
func (m *Manager) detachCollection(p Plugin) {
	if typ, err := p.Type(); err != nil || typ != TypeCollection {
		return
	}
	if col, err := As[Provider](p); err == nil {
		m.removeProvider(col)
	}
}

func (m *Manager) inMemory(typ Type, p Plugin) bool {
	for _, q := range m.loaded[typ] {
		if q == p {
			return true
		}
	}
	return false
}

func pluginByFileName(providers []Provider, suffix string) (Plugin, bool) {
	it := newIterator(providers, true, 0)
	suffix = strings.ToLower(suffix)
	for it.Next() {
		p := it.Plugin()
		if strings.HasSuffix(strings.ToLower(p.FileName()), suffix) {
			return p, true
		}
	}
	return nil, false
}
