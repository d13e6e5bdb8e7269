package plugin

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// PluginsPathKey is the configuration key of the user plugin directory.
const PluginsPathKey = "pluginspath"

// Provider enumerates the plugins of one source.
type Provider interface {
	Plugins() []Plugin
}

// ConfigSource is the part of the configuration store providers read.
// *viper.Viper satisfies it.
type ConfigSource interface {
	GetString(key string) string
}

// FileProvider scans directories for module files. Nothing is cached: every
// call to Plugins scans again so files added or removed are picked up.
type FileProvider struct {
	fs         afero.Fs
	prefix     string
	suffix     string
	customDirs []string
	config     ConfigSource
	dynamic    DynamicConfig
	factory    func(path string) Plugin
	log        *zap.Logger
}

// FileProviderOption configures a FileProvider.
type FileProviderOption func(*FileProvider)

// WithFs sets the filesystem scanned by the provider.
func WithFs(fs afero.Fs) FileProviderOption {
	return func(p *FileProvider) {
		p.fs = fs
	}
}

// WithPrefix sets the required file name prefix.
func WithPrefix(prefix string) FileProviderOption {
	return func(p *FileProvider) {
		p.prefix = prefix
	}
}

// WithSuffix sets the required file name suffix.
func WithSuffix(suffix string) FileProviderOption {
	return func(p *FileProvider) {
		p.suffix = suffix
	}
}

// WithCustomDirectories adds provider specific directories, scanned after the
// default ones.
func WithCustomDirectories(dirs ...string) FileProviderOption {
	return func(p *FileProvider) {
		p.customDirs = append(p.customDirs, dirs...)
	}
}

// WithConfig sets the configuration store the user directory is read from.
func WithConfig(config ConfigSource) FileProviderOption {
	return func(p *FileProvider) {
		p.config = config
	}
}

// WithDynamicConfig sets the configuration of the created plugins.
func WithDynamicConfig(config DynamicConfig) FileProviderOption {
	return func(p *FileProvider) {
		p.dynamic = config
	}
}

// WithFactory replaces the plugin factory.
func WithFactory(factory func(path string) Plugin) FileProviderOption {
	return func(p *FileProvider) {
		p.factory = factory
	}
}

// WithProviderLogger sets the provider logger.
func WithProviderLogger(log *zap.Logger) FileProviderOption {
	return func(p *FileProvider) {
		p.log = log
	}
}

// NewFileProvider creates a provider of dynamic modules.
func NewFileProvider(opts ...FileProviderOption) *FileProvider {
	p := &FileProvider{
		suffix: DefaultSuffix,
		log:    zap.L().Named("plugins"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fs == nil {
		p.fs = afero.NewOsFs()
	}
	if p.dynamic.Fs == nil {
		p.dynamic.Fs = p.fs
	}
	if p.dynamic.Logger == nil {
		p.dynamic.Logger = p.log
	}
	return p
}

// Dirs returns the directories to scan in precedence order.
func (p *FileProvider) Dirs() []string {
	var dirs []string
	if scanCurrentDir {
		dirs = append(dirs, ".")
	}
	dirs = append(dirs, "plugins")

	dirs = p.AddCustomDirectories(dirs)

	if p.config != nil {
		if userDir := p.config.GetString(PluginsPathKey); userDir != "" {
			dirs = append(dirs, userDir)
		}
	}
	return dirs
}

// AddCustomDirectories appends the provider specific directories.
func (p *FileProvider) AddCustomDirectories(dirs []string) []string {
	return append(dirs, p.customDirs...)
}

// Plugins implements Provider.
func (p *FileProvider) Plugins() []Plugin {
	var pl []Plugin

	for _, dir := range p.Dirs() {
		entries, err := afero.ReadDir(p.fs, dir)
		if err != nil {
			p.log.Debug("Couldn't open plugin directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		p.log.Debug("Reading plugins from plugin directory", zap.String("dir", dir))

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if p.IsPluginFilename(entry.Name()) {
				pl = append(pl, p.CreatePlugin(filepath.Join(dir, entry.Name())))
			}
		}
	}
	return pl
}

// IsPluginFilename reports whether name follows the module naming convention.
func (p *FileProvider) IsPluginFilename(name string) bool {
	if p.prefix != "" && !strings.HasPrefix(name, p.prefix) {
		return false
	}
	if p.suffix != "" && !strings.HasSuffix(name, p.suffix) {
		return false
	}
	return true
}

// CreatePlugin returns an unloaded plugin for the module at path.
func (p *FileProvider) CreatePlugin(path string) Plugin {
	if p.factory != nil {
		return p.factory(path)
	}
	return NewDynamicPlugin(path, p.dynamic)
}

// Suffix returns the module file name suffix.
func (p *FileProvider) Suffix() string {
	return p.suffix
}

// ModuleName returns the file name of the module called base.
func (p *FileProvider) ModuleName(base string) string {
	return p.prefix + base + p.suffix
}
