// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level and destination of log output.
type Options struct {
	// Level is a logrus level name; empty means "warn".
	Level string

	// File, when set, sends logs to a size-rotated file instead of Stderr.
	File string

	// MaxSizeMB and MaxBackups control rotation of File.
	MaxSizeMB  int
	MaxBackups int

	// Stderr is where logs go when File is empty. Defaults to os.Stderr.
	Stderr io.Writer
}

// fieldsOrder keeps the per-action fields in a stable position.
var fieldsOrder = []string{"backend", "node", "action", "kind", "elapsed"}

// Setup configures logger and returns a closer for any file it opened.
func Setup(logger *log.Logger, opts Options) (io.Closer, error) {
	levelName := opts.Level
	if levelName == "" {
		levelName = "warn"
	}
	level, err := log.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logger.SetLevel(level)

	formatter := &nested.Formatter{
		FieldsOrder:     fieldsOrder,
		TimestampFormat: "2006-01-02 15:04:05.000",
	}

	if opts.File == "" {
		out := opts.Stderr
		if out == nil {
			out = os.Stderr
		}
		logger.SetOutput(out)
		logger.SetFormatter(formatter)
		return io.NopCloser(nil), nil
	}

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxBackups := opts.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}
	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	formatter.NoColors = true
	logger.SetOutput(file)
	logger.SetFormatter(formatter)
	return file, nil
}
