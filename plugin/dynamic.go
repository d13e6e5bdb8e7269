package plugin

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/afero/zipfs"
	"go.uber.org/zap"

	"github.com/CyrilPeponnet/enginehal/pkg/searchpath"
)

// Symbols a dynamic module must export.
const (
	SymbolVersion     = "PluginVersion"
	SymbolType        = "PluginType"
	SymbolTypeVersion = "PluginTypeVersion"
	SymbolObject      = "PluginObject"
)

const (
	// ArchiveSuffix is appended to the module base name to find its bundled
	// resource archive.
	ArchiveSuffix = ".zip"
	// ArchivePriority is the search path priority of plugin archives.
	ArchivePriority = -1
)

// Module is an opened native module.
type Module interface {
	Lookup(symbol string) (interface{}, error)
	Close() error
}

// Loader opens native modules. It is the only platform specific part of the
// dynamic plugin support.
type Loader interface {
	Open(path string) (Module, error)
}

// DynamicConfig is shared by the dynamic plugins of a provider.
type DynamicConfig struct {
	Loader Loader
	// Fs is used to find resource archives.
	Fs afero.Fs
	// SearchPath receives the resource archive of loaded plugins. Archives
	// are ignored when nil.
	SearchPath *searchpath.Set
	Logger     *zap.Logger
}

// DynamicPlugin is backed by a runtime loadable module file.
type DynamicPlugin struct {
	base
	fileName string
	config   DynamicConfig
	log      *zap.Logger

	module  Module
	archive io.Closer
}

// NewDynamicPlugin returns an unloaded plugin for fileName.
func NewDynamicPlugin(fileName string, config DynamicConfig) *DynamicPlugin {
	if config.Loader == nil {
		config.Loader = DefaultLoader()
	}
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	log := config.Logger
	if log == nil {
		log = zap.L()
	}
	return &DynamicPlugin{
		fileName: fileName,
		config:   config,
		log:      log.With(zap.String("file", fileName)),
	}
}

// FileName implements Plugin.
func (d *DynamicPlugin) FileName() string {
	return d.fileName
}

// Load opens the module, checks its versions and mounts its resource archive.
func (d *DynamicPlugin) Load() error {
	if d.IsLoaded() {
		return nil
	}
	if err := d.loadCode(); err != nil {
		return err
	}
	return d.mountResources()
}

// loadCode opens the module and resolves its symbols without touching the
// search path.
func (d *DynamicPlugin) loadCode() error {
	if d.IsLoaded() {
		return nil
	}

	mod, err := d.config.Loader.Open(d.fileName)
	if err != nil {
		d.log.Debug("Failed loading plugin", zap.Error(err))
		return fmt.Errorf("open %s: %w", d.fileName, err)
	}

	typ, obj, err := resolve(mod)
	if err != nil {
		d.log.Debug("Failed resolving plugin symbols", zap.Error(err))
		if cerr := mod.Close(); cerr != nil {
			d.log.Warn("Failed unloading plugin", zap.Error(cerr))
		}
		return fmt.Errorf("%s: %w", d.fileName, err)
	}

	d.module = mod
	d.typ = typ
	d.object = obj
	d.log.Debug("Success loading plugin", zap.Stringer("type", typ), zap.String("name", obj.GetMetadata().Name))
	return nil
}

// mountResources attaches the resource archive of a loaded plugin. The
// plugin is unloaded when the archive cannot be mounted.
func (d *DynamicPlugin) mountResources() error {
	if !d.IsLoaded() {
		return ErrNotLoaded
	}
	if d.archive != nil {
		return nil
	}
	if err := d.mountArchive(); err != nil {
		_ = d.Unload()
		return fmt.Errorf("%s: mount archive: %w", d.fileName, err)
	}
	return nil
}

// Unload unmounts the resource archive, then closes the module.
func (d *DynamicPlugin) Unload() error {
	if d.module == nil {
		return nil
	}

	if d.archive != nil {
		d.config.SearchPath.Remove(d.fileName)
		if err := d.archive.Close(); err != nil {
			d.log.Warn("Failed closing plugin archive", zap.Error(err))
		}
		d.archive = nil
	}

	d.object = nil
	err := d.module.Close()
	d.module = nil
	if err != nil {
		d.log.Warn("Failed unloading plugin", zap.Error(err))
		return fmt.Errorf("close %s: %w", d.fileName, err)
	}
	d.log.Debug("Success unloading plugin")
	return nil
}

// Destroy unloads the plugin if needed.
func (d *DynamicPlugin) Destroy() {
	_ = d.Unload()
}

// ArchivePath returns where the bundled resource archive of the plugin lives.
func (d *DynamicPlugin) ArchivePath() string {
	return strings.TrimSuffix(d.fileName, filepath.Ext(d.fileName)) + ArchiveSuffix
}

func (d *DynamicPlugin) mountArchive() error {
	if d.config.SearchPath == nil {
		return nil
	}

	f, err := d.config.Fs.Open(d.ArchivePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return err
	}

	if err := d.config.SearchPath.Add(d.fileName, zipfs.New(zr), ArchivePriority, false); err != nil {
		f.Close()
		return err
	}
	d.archive = f
	return nil
}

// resolve looks up and validates the exported symbols of a module.
func resolve(mod Module) (Type, Object, error) {
	version, err := lookupInt(mod, SymbolVersion)
	if err != nil {
		return 0, nil, err
	}
	if version != Version {
		return 0, nil, fmt.Errorf("module version %d, host expects %d: %w", version, Version, ErrVersionMismatch)
	}

	typ, err := lookupType(mod)
	if err != nil {
		return 0, nil, err
	}
	if !typ.Valid() {
		return 0, nil, fmt.Errorf("%d: %w", int(typ), ErrInvalidType)
	}

	typeVersion, err := lookupInt(mod, SymbolTypeVersion)
	if err != nil {
		return 0, nil, err
	}
	if typeVersion != RequiredVersion(typ) {
		return 0, nil, fmt.Errorf("%s version %d, host expects %d: %w", typ, typeVersion, RequiredVersion(typ), ErrVersionMismatch)
	}

	sym, err := mod.Lookup(SymbolObject)
	if err != nil {
		return 0, nil, err
	}
	var obj Object
	switch f := sym.(type) {
	case func() Object:
		obj = f()
	case *func() Object:
		obj = (*f)()
	default:
		return 0, nil, fmt.Errorf("symbol %s has type %T: %w", SymbolObject, sym, ErrInvalidPlugin)
	}
	if obj == nil {
		return 0, nil, fmt.Errorf("symbol %s returned nil: %w", SymbolObject, ErrInvalidPlugin)
	}
	return typ, obj, nil
}

func lookupInt(mod Module, symbol string) (int, error) {
	sym, err := mod.Lookup(symbol)
	if err != nil {
		return 0, err
	}
	switch v := sym.(type) {
	case func() int:
		return v(), nil
	case *int:
		return *v, nil
	case int:
		return v, nil
	}
	return 0, fmt.Errorf("symbol %s has type %T: %w", symbol, sym, ErrInvalidPlugin)
}

func lookupType(mod Module) (Type, error) {
	sym, err := mod.Lookup(SymbolType)
	if err != nil {
		return 0, err
	}
	switch v := sym.(type) {
	case func() Type:
		return v(), nil
	case *Type:
		return *v, nil
	case Type:
		return v, nil
	}
	return 0, fmt.Errorf("symbol %s has type %T: %w", SymbolType, sym, ErrInvalidPlugin)
}
