package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scaler interface {
	Scale(int) int
}

type testScaler struct {
	Metadata
}

func (testScaler) Scale(n int) int { return n * 2 }

func TestTypeString(t *testing.T) {
	assert.Equal(t, "engine-detection", TypeEngineDetection.String())
	assert.Equal(t, "collection", TypeCollection.String())
	assert.Equal(t, "unknown(42)", Type(42).String())
	assert.False(t, Type(-1).Valid())
	assert.False(t, typeMax.Valid())
	assert.Len(t, Types, int(typeMax))
}

func TestRequiredVersion(t *testing.T) {
	assert.Equal(t, EngineVersion, RequiredVersion(TypeEngine))
	assert.Equal(t, 1, RequiredVersion(TypeMusic))
	assert.Equal(t, -1, RequiredVersion(Type(99)))
}

func TestAccessorsRequireLoad(t *testing.T) {
	p := NewStaticPlugin(TypeMusic, staticFactory(newTestObject("adlib")))
	require.NoError(t, p.Unload())
	assert.False(t, p.IsLoaded())

	_, err := p.Type()
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = p.Name()
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = p.EngineID()
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = p.Object()
	assert.ErrorIs(t, err, ErrNotLoaded)

	// Accessors must not have loaded the plugin behind our back.
	assert.False(t, p.IsLoaded())
}

func TestEngineID(t *testing.T) {
	obj := newTestObject("Cap'n Bible")
	obj.engineID = "capbible"

	det := NewStaticPlugin(TypeEngineDetection, staticFactory(obj))
	id, err := det.EngineID()
	require.NoError(t, err)
	assert.Equal(t, "capbible", id)

	eng := NewStaticPlugin(TypeEngine, staticFactory(obj))
	id, err = eng.EngineID()
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestAs(t *testing.T) {
	p := NewStaticPlugin(TypeScaler, func() Object { return &testScaler{Metadata: NewMetadata("normal")} })

	s, err := As[scaler](p)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Scale(2))

	_, err = As[Provider](p)
	assert.ErrorIs(t, err, ErrCapabilityMismatch)

	require.NoError(t, p.Unload())
	_, err = As[scaler](p)
	assert.ErrorIs(t, err, ErrNotLoaded)
}
