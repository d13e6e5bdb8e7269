package engine

import (
	"fmt"

	"github.com/CyrilPeponnet/enginehal/plugin"
)

// ListSaves returns the saves of the target called name.
func (m *Manager) ListSaves(name string) ([]SaveState, error) {
	t, saves, err := m.saveManager(name, SupportsListSaves)
	if err != nil {
		return nil, err
	}
	return saves.ListSaves(m.saves, t)
}

// RemoveSaveState deletes a save of the target called name.
func (m *Manager) RemoveSaveState(name string, slot int) error {
	t, saves, err := m.saveManager(name, SupportsDeleteSave)
	if err != nil {
		return err
	}
	if slot < 0 || slot > saves.MaxSaveSlot() {
		return fmt.Errorf("slot %d: %w", slot, ErrInvalidSlot)
	}
	return saves.RemoveSaveState(m.saves, t, slot)
}

func (m *Manager) saveManager(name string, f Feature) (string, SaveManager, error) {
	if m.targets == nil {
		return "", nil, ErrNoTargetStore
	}
	t, err := m.targets.Get(name)
	if err != nil {
		return "", nil, err
	}
	if needsUpgrade(t) {
		if t, err = m.upgradeTarget(t); err != nil {
			return "", nil, err
		}
	}

	p, err := m.FindEnginePlugin(t.EngineID)
	if err != nil {
		return "", nil, err
	}
	meta, err := plugin.As[MetaEngine](p)
	if err != nil {
		return "", nil, err
	}
	if !meta.HasFeature(f) {
		return "", nil, fmt.Errorf("%s %s: %w", t.EngineID, f, ErrUnsupported)
	}
	saves, ok := meta.(SaveManager)
	if !ok {
		return "", nil, fmt.Errorf("%s %s: %w", t.EngineID, f, ErrUnsupported)
	}
	return t.Name, saves, nil
}
