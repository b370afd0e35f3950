// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/i474232898/weather-station/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultFile is where logs go when there is no console and no file is
// configured.
const DefaultFile = "station.log"

// Options controls where log output goes.
type Options struct {
	Config config.Log
	// Console is where human readable output goes; nil disables it, e.g.
	// when the terminal display owns the TTY. Without a console the log file
	// defaults to DefaultFile.
	Console io.Writer
}

// Setup replaces the global logger. The returned closer flushes and closes
// the log file, if one is configured.
func Setup(opts Options) (io.Closer, error) {
	level, err := zerolog.ParseLevel(opts.Config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Config.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var (
		writers []io.Writer
		closer  io.Closer = nopCloser{}
	)

	if path := filePath(opts); path != "" {
		file := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    1,
			MaxBackups: 2,
		}
		writers = append(writers, file)
		closer = file
	}

	if opts.Console != nil {
		if opts.Config.JSON {
			writers = append(writers, opts.Console)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.TimeOnly})
		}
	}

	out := io.MultiWriter(writers...)
	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return closer, nil
}

func filePath(opts Options) string {
	if opts.Config.File == "" && opts.Console == nil {
		return DefaultFile
	}
	return opts.Config.File
}

// Stderr is the default console.
var Stderr io.Writer = os.Stderr

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
