// Package logutils configures the process wide zap logger.
package logutils

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation settings.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

var level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)

// ParseLevel converts a level name. Unknown names map to error.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "critical":
		return zapcore.FatalLevel
	default:
		return zapcore.ErrorLevel
	}
}

// SetLevel changes the level of the configured logger at runtime.
func SetLevel(name string) {
	level.SetLevel(ParseLevel(name))
}

// Level returns the current level.
func Level() zapcore.Level {
	return level.Level()
}

// ConfigureWithOptions builds the global logger.
//
// format is either "console" or "json". When file is set, entries go to a
// rotating log file instead of stderr.
func ConfigureWithOptions(levelName, format, file string, stacktrace, caller bool) (*zap.Logger, error) {

	var encoder zapcore.Encoder
	switch strings.ToLower(format) {
	case "", "console":
		config := zap.NewDevelopmentEncoderConfig()
		config.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if file != "" {
			config.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(config)
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	var sink zapcore.WriteSyncer
	if file != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		})
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	level.SetLevel(ParseLevel(levelName))

	var opts []zap.Option
	if stacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	if caller {
		opts = append(opts, zap.AddCaller())
	}

	logger := zap.New(zapcore.NewCore(encoder, sink, level), opts...)
	zap.ReplaceGlobals(logger)
	return logger, nil
}
