package engine

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CyrilPeponnet/enginehal/plugin"
)

type fakeScaler struct {
	plugin.Metadata
	extra int
}

func (s *fakeScaler) Factors() []int   { return []int{1, 2} }
func (s *fakeScaler) ExtraPixels() int { return s.extra }

func (s *fakeScaler) Scale(src []byte, width, height, factor int) ([]byte, error) {
	return src, nil
}

func scalerPlugin(name string, extra int) plugin.Plugin {
	return plugin.NewStaticPlugin(plugin.TypeScaler, func() plugin.Object {
		return &fakeScaler{Metadata: plugin.NewMetadata(name), extra: extra}
	})
}

func newScalerManager(t *testing.T, scalers ...plugin.Plugin) *ScalerManager {
	pm := plugin.NewManager(plugin.WithStaticProvider(plugin.NewStaticProviderWith(scalers...)), plugin.WithLogger(zap.NewNop()))
	require.NoError(t, pm.Init())
	return NewScalerManager(pm)
}

func TestScalerManager(t *testing.T) {
	s := newScalerManager(t, scalerPlugin("normal", 0), scalerPlugin("advmame", 4), scalerPlugin("hq", 1))

	assert.Len(t, s.Plugins(), 3)
	assert.Equal(t, 4, s.MaxExtraPixels())

	p, ok := s.FindScalerPlugin("hq")
	require.True(t, ok)
	name, err := p.Name()
	require.NoError(t, err)
	assert.Equal(t, "hq", name)

	_, ok = s.FindScalerPlugin("tv")
	assert.False(t, ok)

	assert.Equal(t, 1, s.FindScalerPluginIndex("advmame"))
	assert.Equal(t, 2, s.FindScalerPluginIndex("hq"))
	assert.Equal(t, 0, s.FindScalerPluginIndex("tv"))
}

func TestScalerManagerEmpty(t *testing.T) {
	s := newScalerManager(t)
	assert.Empty(t, s.Plugins())
	assert.Equal(t, 0, s.MaxExtraPixels())
	assert.Equal(t, 0, s.FindScalerPluginIndex("normal"))
}

func TestUpdateOldSettings(t *testing.T) {
	v := viper.New()
	v.Set("gfx_mode", "advmame3x")
	v.Set("games.quest.gfx_mode", "hq2x")
	v.Set("games.sky.gfx_mode", "opengl")
	v.Set("games.sky.scaler", "normal")

	newScalerManager(t).UpdateOldSettings(v)

	assert.Equal(t, "advmame", v.GetString("scaler"))
	assert.Equal(t, 3, v.GetInt("scale_factor"))

	assert.Equal(t, "hq", v.GetString("games.quest.scaler"))
	assert.Equal(t, 2, v.GetInt("games.quest.scale_factor"))
	assert.Empty(t, v.GetString("games.quest.gfx_mode"))

	assert.Equal(t, "normal", v.GetString("games.sky.scaler"))
	assert.Equal(t, "opengl", v.GetString("games.sky.gfx_mode"), "unknown modes are kept")
}

func TestUpdateOldSettingsWithoutLegacyMode(t *testing.T) {
	v := viper.New()
	v.Set("scaler", "hq")

	newScalerManager(t).UpdateOldSettings(v)
	assert.Equal(t, "hq", v.GetString("scaler"))
	assert.False(t, v.IsSet("scale_factor"))
}
