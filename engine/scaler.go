package engine

import (
	"go.uber.org/zap"

	"github.com/CyrilPeponnet/enginehal/plugin"
)

// Settings is the part of the configuration the scaler manager rewrites.
// *viper.Viper satisfies it.
type Settings interface {
	IsSet(key string) bool
	GetString(key string) string
	GetStringMap(key string) map[string]interface{}
	Set(key string, value interface{})
}

// Configuration keys of the graphics settings.
const (
	ScalerKey      = "scaler"
	ScaleFactorKey = "scale_factor"
	LegacyModeKey  = "gfx_mode"
	// GamesKey holds per target settings, as games.<target>.<key>.
	GamesKey = "games"
)

type legacyMode struct {
	scaler string
	factor int
}

// Graphics mode names of old configuration files.
var legacyModes = map[string]legacyMode{
	"1x":           {"normal", 1},
	"2x":           {"normal", 2},
	"3x":           {"normal", 3},
	"normal1x":     {"normal", 1},
	"normal2x":     {"normal", 2},
	"normal3x":     {"normal", 3},
	"normal4x":     {"normal", 4},
	"hq2x":         {"hq", 2},
	"hq3x":         {"hq", 3},
	"edge2x":       {"edge", 2},
	"edge3x":       {"edge", 3},
	"advmame2x":    {"advmame", 2},
	"advmame3x":    {"advmame", 3},
	"advmame4x":    {"advmame", 4},
	"2xsai":        {"sai", 2},
	"sai2x":        {"sai", 2},
	"super2xsai":   {"supersai", 2},
	"supersai2x":   {"supersai", 2},
	"supereagle":   {"supereagle", 2},
	"supereagle2x": {"supereagle", 2},
	"pm2x":         {"pm", 2},
	"dotmatrix":    {"dotmatrix", 2},
	"dotmatrix2x":  {"dotmatrix", 2},
	"tv2x":         {"tv", 2},
}

// ScalerManager looks up the loaded scaler plugins.
type ScalerManager struct {
	plugins *plugin.Manager
	log     *zap.Logger
}

// NewScalerManager returns a scaler manager working on plugins.
func NewScalerManager(plugins *plugin.Manager) *ScalerManager {
	return &ScalerManager{plugins: plugins, log: zap.L().Named("scalers")}
}

// Plugins returns the loaded scaler plugins.
func (s *ScalerManager) Plugins() []plugin.Plugin {
	return s.plugins.LoadedPlugins(plugin.TypeScaler)
}

// MaxExtraPixels returns the largest ExtraPixels of the loaded scalers.
func (s *ScalerManager) MaxExtraPixels() int {
	maxPixels := 0
	for _, p := range s.Plugins() {
		if sc, err := plugin.As[Scaler](p); err == nil && sc.ExtraPixels() > maxPixels {
			maxPixels = sc.ExtraPixels()
		}
	}
	return maxPixels
}

// FindScalerPlugin returns the loaded scaler called name.
func (s *ScalerManager) FindScalerPlugin(name string) (plugin.Plugin, bool) {
	if i := s.index(name); i >= 0 {
		return s.Plugins()[i], true
	}
	return nil, false
}

// FindScalerPluginIndex returns the position of the scaler called name among
// the loaded scalers, 0 when there is none.
func (s *ScalerManager) FindScalerPluginIndex(name string) int {
	if i := s.index(name); i >= 0 {
		return i
	}
	return 0
}

func (s *ScalerManager) index(name string) int {
	for i, p := range s.Plugins() {
		if n, err := p.Name(); err == nil && n == name {
			return i
		}
	}
	return -1
}

// UpdateOldSettings replaces legacy graphics modes by a scaler and a scale
// factor, globally and for every target section.
func (s *ScalerManager) UpdateOldSettings(settings Settings) {
	if settings.IsSet(LegacyModeKey) {
		if mode, ok := legacyModes[settings.GetString(LegacyModeKey)]; ok {
			settings.Set(ScalerKey, mode.scaler)
			settings.Set(ScaleFactorKey, mode.factor)
		}
	}

	for target := range settings.GetStringMap(GamesKey) {
		prefix := GamesKey + "." + target + "."
		old := settings.GetString(prefix + LegacyModeKey)
		mode, ok := legacyModes[old]
		if !ok {
			continue
		}
		s.log.Warn("Upgraded legacy graphics mode",
			zap.String("target", target),
			zap.String("mode", old),
			zap.String("scaler", mode.scaler),
			zap.Int("factor", mode.factor))
		settings.Set(prefix+ScalerKey, mode.scaler)
		settings.Set(prefix+ScaleFactorKey, mode.factor)
		settings.Set(prefix+LegacyModeKey, "")
	}
}
