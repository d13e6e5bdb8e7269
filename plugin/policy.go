package plugin

import (
	"fmt"

	"go.uber.org/zap"
)

type policy interface {
	init(m *Manager) error
}

// cachedPolicy loads everything up front and keeps it resident.
type cachedPolicy struct{}

func (cachedPolicy) init(m *Manager) error {
	// Loading a collection registers a new provider, index the live list so
	// its plugins get loaded too.
	for i := 0; ; i++ {
		m.mu.Lock()
		if i >= len(m.providers) {
			m.mu.Unlock()
			return nil
		}
		p := m.providers[i]
		m.mu.Unlock()

		for _, pl := range p.Plugins() {
			_ = m.TryLoad(pl)
		}
	}
}

// uncachedPolicy keeps at most one engine in memory and drives detection
// through a single detection module.
type uncachedPolicy struct {
	fileName  string
	detection Plugin
}

func (u *uncachedPolicy) init(m *Manager) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Empty the engine list.
	if err := m.unloadExcept(TypeEngine, nil, false); err != nil {
		m.log.Warn("Failed unloading engine plugins", zap.Error(err))
	}

	p, ok := pluginByFileName(m.providers, u.fileName)
	if !ok {
		return fmt.Errorf("%s: %w", u.fileName, ErrDetectionPluginNotFound)
	}
	u.detection = p
	return m.tryLoad(p)
}

// LoadDetectionPlugin brings the detection module of an uncached manager
// into memory.
func (m *Manager) LoadDetectionPlugin() error {
	u, ok := m.policy.(*uncachedPolicy)
	if !ok {
		return ErrNotUncached
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if u.detection == nil {
		return fmt.Errorf("%s: %w", u.fileName, ErrDetectionPluginNotFound)
	}
	return m.tryLoad(u.detection)
}

// UnloadDetectionPlugin releases the detection module of an uncached
// manager.
func (m *Manager) UnloadDetectionPlugin() error {
	u, ok := m.policy.(*uncachedPolicy)
	if !ok {
		return ErrNotUncached
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if u.detection == nil {
		return nil
	}
	return m.unload(u.detection)
}

// DetectionPlugin returns the detection module of an uncached manager.
func (m *Manager) DetectionPlugin() (Plugin, bool) {
	u, ok := m.policy.(*uncachedPolicy)
	if !ok || u.detection == nil {
		return nil, false
	}
	return u.detection, true
}
