package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CyrilPeponnet/enginehal/pkg/targets"
	"github.com/CyrilPeponnet/enginehal/plugin"
)

// FindTarget resolves a target to its supported game and the plugin holding
// the detection of its engine. With an uncached plugin manager the returned
// plugin is released again once the lookup is done.
func (m *Manager) FindTarget(name string) (QualifiedGame, plugin.Plugin, error) {
	if m.targets == nil {
		return QualifiedGame{}, nil, ErrNoTargetStore
	}
	t, err := m.targets.Get(name)
	if err != nil {
		return QualifiedGame{}, nil, err
	}
	if needsUpgrade(t) {
		if t, err = m.upgradeTarget(t); err != nil {
			return QualifiedGame{}, nil, err
		}
	}

	var (
		game QualifiedGame
		p    plugin.Plugin
	)
	err = m.withDetection(func() error {
		var err error
		if p, err = m.FindPlugin(t.EngineID); err != nil {
			return err
		}
		d, err := m.FindDetection(t.EngineID)
		if err != nil {
			return err
		}
		for _, g := range d.SupportedGames() {
			if g.GameID == t.GameID {
				game = QualifiedGame{EngineID: t.EngineID, GameDescriptor: g}
				return nil
			}
		}
		return fmt.Errorf("%s/%s: %w", t.EngineID, t.GameID, ErrGameNotFound)
	})
	if err != nil {
		return QualifiedGame{}, nil, err
	}
	return game, p, nil
}

// UpgradeTargetIfNecessary completes a target stored without a game or an
// engine identifier and saves it back.
func (m *Manager) UpgradeTargetIfNecessary(name string) error {
	if m.targets == nil {
		return ErrNoTargetStore
	}
	t, err := m.targets.Get(name)
	if err != nil {
		return err
	}
	if !needsUpgrade(t) {
		return nil
	}
	_, err = m.upgradeTarget(t)
	return err
}

func needsUpgrade(t targets.Target) bool {
	return t.GameID == "" || t.EngineID == ""
}

func (m *Manager) upgradeTarget(t targets.Target) (targets.Target, error) {
	// Old targets were named after their game.
	if t.GameID == "" {
		t.GameID = t.Name
	}
	if t.EngineID == "" {
		if err := m.upgradeTargetForEngineID(&t); err != nil {
			return t, err
		}
	}

	if err := m.targets.Update(t); err != nil {
		return t, err
	}
	m.log.Info("Upgraded target", zap.String("target", t.Name), zap.String("engine", t.EngineID), zap.String("game", t.GameID))
	return t, nil
}

// upgradeTargetForEngineID looks for the engine of the target game, first
// among the resident detections then among every detection.
func (m *Manager) upgradeTargetForEngineID(t *targets.Target) error {
	candidates := m.findGameInLoadedPlugins(t.GameID)
	if len(candidates) == 0 {
		var err error
		if candidates, err = m.FindGamesMatching("", t.GameID); err != nil {
			return err
		}
	}

	switch len(candidates) {
	case 0:
		return fmt.Errorf("%s: %w", t.GameID, ErrGameNotFound)
	case 1:
		t.EngineID = candidates[0].EngineID
		return nil
	}

	engines := make([]string, 0, len(candidates))
	for _, c := range candidates {
		engines = append(engines, c.EngineID)
	}
	return fmt.Errorf("%s (%s): %w", t.Name, strings.Join(engines, ", "), ErrAmbiguousTarget)
}

// findGameInLoadedPlugins lists the resident detections supporting gameID.
func (m *Manager) findGameInLoadedPlugins(gameID string) []QualifiedGame {
	var games []QualifiedGame
	for _, d := range m.detections() {
		for _, g := range d.SupportedGames() {
			if g.GameID == gameID {
				games = append(games, QualifiedGame{EngineID: d.EngineID(), GameDescriptor: g})
			}
		}
	}
	return games
}
