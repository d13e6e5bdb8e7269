package main

import (
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/CyrilPeponnet/enginehal/engine"
	"github.com/CyrilPeponnet/enginehal/pkg/searchpath"
	"github.com/CyrilPeponnet/enginehal/pkg/targets"
	"github.com/CyrilPeponnet/enginehal/plugin"
)

// app holds what the commands work on.
type app struct {
	plugins    *plugin.Manager
	engines    *engine.Manager
	targets    *targets.Store
	searchPath *searchpath.Set
	digests    *engine.DigestCache
	scalers    *engine.ScalerManager
	config     *viper.Viper
	out        io.Writer
}

func newApp(config *viper.Viper, fs afero.Fs, out io.Writer) (*app, error) {
	a := &app{
		searchPath: searchpath.New(),
		digests:    engine.NewDigestCache(config.GetInt64("detection.cachesize")),
		config:     config,
		out:        out,
	}

	provider, err := initPlugins(a, config, fs)
	if err != nil {
		a.digests.Stop()
		return nil, err
	}
	a.scalers = engine.NewScalerManager(a.plugins)
	a.scalers.UpdateOldSettings(config)

	a.targets = &targets.Store{}
	if err := a.targets.Init(config.GetString("targets.path")); err != nil {
		a.plugins.Close()
		a.digests.Stop()
		return nil, err
	}

	a.engines = engine.NewManager(a.plugins,
		engine.WithFs(fs),
		engine.WithSaves(afero.NewBasePathFs(fs, config.GetString("saves.path"))),
		engine.WithTargets(a.targets),
		engine.WithDigestCache(a.digests),
		engine.WithModuleNamer(provider),
	)
	return a, nil
}

// initPlugins registers the module directories and runs the initial load pass.
func initPlugins(a *app, config *viper.Viper, fs afero.Fs) (*plugin.FileProvider, error) {

	opts := []plugin.FileProviderOption{
		plugin.WithFs(fs),
		plugin.WithConfig(config),
		plugin.WithDynamicConfig(plugin.DynamicConfig{Fs: fs, SearchPath: a.searchPath}),
	}
	if prefix := config.GetString("plugins.prefix"); prefix != "" {
		opts = append(opts, plugin.WithPrefix(prefix))
	}
	if suffix := config.GetString("plugins.suffix"); suffix != "" {
		opts = append(opts, plugin.WithSuffix(suffix))
	}
	if dir := config.GetString("plugins.directory"); dir != "" {
		opts = append(opts, plugin.WithCustomDirectories(dir))
	}
	provider := plugin.NewFileProvider(opts...)

	var source plugin.Provider = provider
	if config.GetBool("plugins.watch") {
		cached := plugin.NewCachedProvider(provider)
		if err := cached.Watch(provider.Dirs()); err != nil {
			zap.L().Warn("Cannot watch plugin directories", zap.Error(err))
		}
		source = cached
	}

	var managerOpts []plugin.Option
	if config.GetBool("plugins.uncached") {
		managerOpts = append(managerOpts, plugin.WithUncached(provider.ModuleName("detection")))
	}
	a.plugins = plugin.NewManager(managerOpts...)
	a.plugins.AddProvider(source)

	zap.L().Info("Loading plugins", zap.Bool("uncached", a.plugins.Uncached()), zap.Strings("dirs", provider.Dirs()))
	if err := a.plugins.Init(); err != nil {
		if !a.plugins.Uncached() {
			a.plugins.Close()
			return nil, err
		}
		// Statically linked detections remain usable.
		zap.L().Warn("No detection plugin, using static detections only", zap.Error(err))
	}

	for _, typ := range plugin.Types {
		for _, p := range a.plugins.LoadedPlugins(typ) {
			obj, err := p.Object()
			if err != nil {
				continue
			}
			meta := obj.GetMetadata()
			zap.L().Info(" - plugin", zap.Stringer("type", typ), zap.String("name", meta.Name), zap.String("version", meta.Version))
		}
	}
	return provider, nil
}

// Close releases every plugin and the target store.
func (a *app) Close() error {
	var errs *multierror.Error
	if err := a.plugins.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := a.targets.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	a.digests.Stop()
	return errs.ErrorOrNil()
}
