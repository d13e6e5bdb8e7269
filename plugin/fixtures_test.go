package plugin

import (
	"archive/zip"
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type testObject struct {
	Metadata
	engineID string
	closed   *int
}

func (o *testObject) EngineID() string {
	return o.engineID
}

func (o *testObject) Close() error {
	if o.closed != nil {
		*o.closed++
	}
	return nil
}

func newTestObject(name string) *testObject {
	return &testObject{Metadata: NewMetadata(name)}
}

// testCollection is a collection object providing nested plugins.
type testCollection struct {
	Metadata
	plugins []Plugin
}

func (c *testCollection) Plugins() []Plugin {
	return c.plugins
}

func staticFactory(obj Object) Factory {
	return func() Object { return obj }
}

// testModule describes what a fake module exports.
type testModule struct {
	version     int
	typ         Type
	typeVersion int
	object      Object
	missing     string
}

// testLoader counts module opens and closes, and the order of events.
type testLoader struct {
	mu      sync.Mutex
	modules map[string]testModule
	opened  int
	closed  int
	events  []string
	onClose func(path string)
}

func newTestLoader() *testLoader {
	return &testLoader{modules: map[string]testModule{}}
}

func (l *testLoader) add(path string, name string, typ Type) *testObject {
	obj := newTestObject(name)
	l.modules[path] = testModule{version: Version, typ: typ, typeVersion: RequiredVersion(typ), object: obj}
	return obj
}

func (l *testLoader) Open(path string) (Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mod, ok := l.modules[path]
	if !ok {
		return nil, errors.New("no such module")
	}
	l.opened++
	l.events = append(l.events, "open "+path)
	return &fakeModule{loader: l, path: path, def: mod}, nil
}

type fakeModule struct {
	loader *testLoader
	path   string
	def    testModule
}

func (m *fakeModule) Lookup(symbol string) (interface{}, error) {
	if symbol == m.def.missing {
		return nil, errors.New("symbol not found: " + symbol)
	}
	switch symbol {
	case SymbolVersion:
		v := m.def.version
		return &v, nil
	case SymbolType:
		typ := m.def.typ
		return func() Type { return typ }, nil
	case SymbolTypeVersion:
		v := m.def.typeVersion
		return func() int { return v }, nil
	case SymbolObject:
		obj := m.def.object
		return func() Object { return obj }, nil
	}
	return nil, errors.New("symbol not found: " + symbol)
}

func (m *fakeModule) Close() error {
	m.loader.mu.Lock()
	m.loader.closed++
	m.loader.events = append(m.loader.events, "close "+m.path)
	cb := m.loader.onClose
	m.loader.mu.Unlock()
	if cb != nil {
		cb(m.path)
	}
	return nil
}

// writeArchive stores a zip holding files at path.
func writeArchive(t *testing.T, fs afero.Fs, path string, files map[string]string) {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

// newTestManager returns a manager whose static provider holds plugins.
func newTestManager(plugins ...Plugin) *Manager {
	return NewManager(WithStaticProvider(NewStaticProviderWith(plugins...)))
}
