package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CyrilPeponnet/enginehal/engine"
	"github.com/CyrilPeponnet/enginehal/plugin"
)

func registered(t *testing.T, typ plugin.Type) []plugin.Plugin {
	t.Helper()
	var list []plugin.Plugin
	for _, p := range plugin.NewStaticProvider().Plugins() {
		got, err := p.Type()
		require.NoError(t, err)
		if got == typ {
			list = append(list, p)
		}
	}
	return list
}

func TestMusicDrivers(t *testing.T) {
	ids := map[string][]string{}
	for _, p := range registered(t, plugin.TypeMusic) {
		m, err := plugin.As[engine.MusicDriver](p)
		require.NoError(t, err)
		ids[m.DriverID()] = m.Devices()
	}
	assert.Equal(t, []string{"No music"}, ids["null"])
	assert.Equal(t, []string{"PC Speaker", "IBM PCjr"}, ids["pcspk"])
}

func scaler(t *testing.T, name string) engine.Scaler {
	t.Helper()
	for _, p := range registered(t, plugin.TypeScaler) {
		if n, _ := p.Name(); n == name {
			s, err := plugin.As[engine.Scaler](p)
			require.NoError(t, err)
			return s
		}
	}
	t.Fatalf("scaler %s not registered", name)
	return nil
}

func TestNormalScaler(t *testing.T) {
	s := scaler(t, "normal")
	assert.Equal(t, []int{1, 2, 3, 4}, s.Factors())
	assert.Equal(t, 0, s.ExtraPixels())

	src := []byte{
		1, 2,
		3, 4,
	}
	out, err := s.Scale(src, 2, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}, out)

	out, err = s.Scale(src, 2, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, src, out)

	_, err = s.Scale(src, 2, 2, 5)
	assert.Error(t, err)
	_, err = s.Scale(src, 3, 2, 2)
	assert.Error(t, err)
}

func TestAdvMameScaler(t *testing.T) {
	s := scaler(t, "advmame")
	assert.Equal(t, []int{2, 4}, s.Factors())
	assert.Equal(t, 4, s.ExtraPixels())

	// A diagonal edge gets its corners filled.
	src := []byte{
		1, 0,
		0, 0,
	}
	out, err := s.Scale(src, 2, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		1, 1, 0, 0,
		1, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}, out)

	// Flat areas are plain pixel replication.
	flat := []byte{7, 7, 7, 7}
	out, err = s.Scale(flat, 2, 2, 4)
	require.NoError(t, err)
	assert.Len(t, out, 64)
	for _, px := range out {
		assert.Equal(t, byte(7), px)
	}

	_, err = s.Scale(src, 2, 2, 3)
	assert.Error(t, err)
	_, err = s.Scale(src, 3, 3, 2)
	assert.Error(t, err)
}
