package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/docopt/docopt-go"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/CyrilPeponnet/enginehal/pkg/logutils"

	_ "github.com/CyrilPeponnet/enginehal/plugins/builtins"
	_ "github.com/CyrilPeponnet/enginehal/plugins/engine-capbible"
)

const version = "enginehal 1.0"

const usage = `enginehal.

Host for game engines: detects game data and launches the matching engine.

Usage:
	enginehal [options] list-plugins
	enginehal [options] list-games [<engine>]
	enginehal [options] detect <path>
	enginehal [options] add <path>
	enginehal [options] list-targets
	enginehal [options] run <target>
	enginehal [options] list-saves <target>
	enginehal [options] remove-save <target> <slot>
	enginehal -h | --help
	enginehal --version

Options:
	-h, --help               Show this help.
	--version                Show the version.
	-f, --file config        The configuration file to load.
	--plugins-path path      An additional directory to load plugins from.
	--uncached               Keep a single engine in memory at a time.
	--watch                  Rescan plugin directories when they change.
	--targets path           The target database [default: enginehal.db].
	--log-level level        Set the log level [default: error].
	--log-format format      Set the log format [default: console].
	--log-file file          Write logs to a rotating file.
`

func main() {

	color.Blue(`                 _            __          __
  ___  ____  ___(_)___  ___  / /_  ____ _/ /
 / _ \/ __ \/ _  / / __ \/ _ \/ __ \/ __ '/ /
/  __/ / / / /_/ / / / / /  __/ / / / /_/ / /
\___/_/ /_/\__, /_/_/ /_/\___/_/ /_/\__,_/_/
          /____/                  Version 1.0

`)

	args, _ := docopt.Parse(usage, nil, true, version, false)

	config, err := loadConfig(args)
	if err != nil {
		color.Red("Cannot read the provided configuration file: %v", err)
		os.Exit(1)
	}

	if _, err := logutils.ConfigureWithOptions(config.GetString("log.level"), config.GetString("log.format"), config.GetString("log.file"), false, false); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
	defer zap.L().Sync()

	a, err := newApp(config, afero.NewOsFs(), os.Stdout)
	if err != nil {
		zap.L().Error("Failed to start", zap.Error(err))
		color.Red("%v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = Dispatch(ctx, args, a)
	stop()

	if cerr := a.Close(); cerr != nil {
		zap.L().Warn("Failed to shut down cleanly", zap.Error(cerr))
	}
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}

// loadConfig builds the configuration. Command line values are defaults
// a configuration file overrides.
func loadConfig(args docopt.Opts) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("log.level", args["--log-level"])
	v.SetDefault("log.format", args["--log-format"])
	v.SetDefault("targets.path", args["--targets"])
	v.SetDefault("plugins.uncached", args["--uncached"])
	v.SetDefault("plugins.watch", args["--watch"])
	v.SetDefault("detection.cachesize", 1024)
	v.SetDefault("saves.path", "saves")
	v.SetDefault("scaler", "normal")
	v.SetDefault("scale_factor", 2)
	if s, ok := args["--plugins-path"].(string); ok {
		v.SetDefault("pluginspath", s)
	}
	if s, ok := args["--log-file"].(string); ok {
		v.SetDefault("log.file", s)
	}

	file, ok := args["--file"].(string)
	if !ok || file == "" {
		return v, nil
	}

	v.AddConfigPath("/etc/enginehal/")
	v.AddConfigPath("$HOME/.enginehal")
	v.AddConfigPath(".")
	v.SetConfigFile(file)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		zap.L().Info("Configuration changed", zap.String("file", e.Name))
		logutils.SetLevel(v.GetString("log.level"))
	})
	return v, nil
}
