package logsvc

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

// NewZerolog builds the application logger: a console writer in debug, JSON otherwise.
// When conf.Log.File is set, entries are also written to a rotated file.
func NewZerolog(conf *core.Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if conf.Debug {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	if conf.Log.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   conf.Log.File,
			MaxSize:    conf.Log.MaxSizeMB,
			MaxBackups: conf.Log.MaxBackups,
			MaxAge:     conf.Log.MaxAgeDays,
			Compress:   true,
		})
	}

	level, err := zerolog.ParseLevel(conf.Log.Level)
	if err != nil || conf.Log.Level == "" {
		level = zerolog.InfoLevel
		if conf.Debug {
			level = zerolog.DebugLevel
		}
	}
	if conf.TestMode {
		level = zerolog.Disabled
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", conf.AppName).
		Str("env", conf.Env).
		Logger()
}
