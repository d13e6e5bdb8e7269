package plugin

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CyrilPeponnet/enginehal/pkg/searchpath"
)

func newDynamic(loader *testLoader, fs afero.Fs, sp *searchpath.Set, path string) *DynamicPlugin {
	return NewDynamicPlugin(path, DynamicConfig{Loader: loader, Fs: fs, SearchPath: sp, Logger: zap.NewNop()})
}

func TestDynamicPluginLoadUnload(t *testing.T) {
	loader := newTestLoader()
	loader.add("plugins/sky.so", "Sky", TypeEngine)

	p := newDynamic(loader, afero.NewMemMapFs(), nil, "plugins/sky.so")
	assert.False(t, p.IsLoaded())
	assert.Equal(t, "plugins/sky.so", p.FileName())

	require.NoError(t, p.Load())
	assert.True(t, p.IsLoaded())
	name, err := p.Name()
	require.NoError(t, err)
	assert.Equal(t, "Sky", name)
	typ, err := p.Type()
	require.NoError(t, err)
	assert.Equal(t, TypeEngine, typ)

	require.NoError(t, p.Load())
	assert.Equal(t, 1, loader.opened)

	require.NoError(t, p.Unload())
	assert.False(t, p.IsLoaded())
	assert.Equal(t, 1, loader.closed)

	require.NoError(t, p.Unload())
	assert.Equal(t, 1, loader.closed, "unloading twice closes once")
}

func TestDynamicPluginRejectsModules(t *testing.T) {
	tests := []struct {
		name   string
		module testModule
		err    error
	}{
		{
			name:   "abi version",
			module: testModule{version: Version + 1, typ: TypeEngine, typeVersion: EngineVersion},
			err:    ErrVersionMismatch,
		},
		{
			name:   "type version",
			module: testModule{version: Version, typ: TypeEngine, typeVersion: EngineVersion - 1},
			err:    ErrVersionMismatch,
		},
		{
			name:   "invalid type",
			module: testModule{version: Version, typ: Type(40), typeVersion: 1},
			err:    ErrInvalidType,
		},
		{
			name:   "nil object",
			module: testModule{version: Version, typ: TypeMusic, typeVersion: MusicVersion},
			err:    ErrInvalidPlugin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newTestLoader()
			loader.modules["m.so"] = tt.module

			p := newDynamic(loader, afero.NewMemMapFs(), nil, "m.so")
			err := p.Load()
			assert.ErrorIs(t, err, tt.err)
			assert.False(t, p.IsLoaded())
			assert.Equal(t, loader.opened, loader.closed, "a rejected module is closed")
		})
	}
}

func TestDynamicPluginMissingSymbol(t *testing.T) {
	loader := newTestLoader()
	loader.add("m.so", "m", TypeScaler)
	mod := loader.modules["m.so"]
	mod.missing = SymbolTypeVersion
	loader.modules["m.so"] = mod

	p := newDynamic(loader, afero.NewMemMapFs(), nil, "m.so")
	require.Error(t, p.Load())
	assert.False(t, p.IsLoaded())
	assert.Equal(t, 1, loader.closed)
}

func TestDynamicPluginOpenFailure(t *testing.T) {
	p := newDynamic(newTestLoader(), afero.NewMemMapFs(), nil, "missing.so")
	require.Error(t, p.Load())
	assert.False(t, p.IsLoaded())
}

func TestDynamicPluginArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	sp := searchpath.New()
	writeArchive(t, fs, "plugins/capbible.zip", map[string]string{"capbible.dat": "resources"})

	loader := newTestLoader()
	loader.add("plugins/capbible.so", "Cap'n Bible", TypeEngine)

	var mountedAtClose bool
	loader.onClose = func(string) {
		mountedAtClose = sp.Has("plugins/capbible.so")
	}

	p := newDynamic(loader, fs, sp, "plugins/capbible.so")
	assert.Equal(t, "plugins/capbible.zip", p.ArchivePath())

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Load())
		assert.True(t, sp.Has("plugins/capbible.so"))
		assert.True(t, sp.Exists("capbible.dat"))

		f, err := sp.Open("capbible.dat")
		require.NoError(t, err)
		data, err := afero.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "resources", string(data))
		f.Close()

		require.NoError(t, p.Unload())
		assert.False(t, sp.Has("plugins/capbible.so"))
		assert.False(t, sp.Exists("capbible.dat"))
		assert.False(t, mountedAtClose, "archive is unmounted before the module is closed")
	}
	assert.Equal(t, 3, loader.opened)
	assert.Equal(t, 3, loader.closed)
}

func TestDynamicPluginWithoutArchive(t *testing.T) {
	sp := searchpath.New()
	loader := newTestLoader()
	loader.add("plugins/sky.so", "Sky", TypeEngine)

	p := newDynamic(loader, afero.NewMemMapFs(), sp, "plugins/sky.so")
	require.NoError(t, p.Load())
	assert.Empty(t, sp.Names())
	require.NoError(t, p.Unload())
}

func TestDynamicPluginBrokenArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "plugins/sky.zip", []byte("not a zip"), 0644))

	loader := newTestLoader()
	loader.add("plugins/sky.so", "Sky", TypeEngine)

	p := newDynamic(loader, fs, searchpath.New(), "plugins/sky.so")
	require.Error(t, p.Load())
	assert.False(t, p.IsLoaded())
	assert.Equal(t, 1, loader.closed)
}

func TestResolveSymbolForms(t *testing.T) {
	obj := Object(newTestObject("x"))
	objFn := func() Object { return obj }
	typ := TypeDetection
	version := Version

	mod := mapModule{
		SymbolVersion:     &version,
		SymbolType:        &typ,
		SymbolTypeVersion: DetectionVersion,
		SymbolObject:      &objFn,
	}
	gotType, gotObj, err := resolve(mod)
	require.NoError(t, err)
	assert.Equal(t, TypeDetection, gotType)
	assert.Same(t, obj, gotObj)

	mod[SymbolVersion] = "1"
	_, _, err = resolve(mod)
	assert.ErrorIs(t, err, ErrInvalidPlugin)
}

type mapModule map[string]interface{}

func (m mapModule) Lookup(symbol string) (interface{}, error) {
	if v, ok := m[symbol]; ok {
		return v, nil
	}
	return nil, ErrInvalidPlugin
}

func (m mapModule) Close() error { return nil }
