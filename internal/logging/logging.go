// Package logging provides zerolog-based logging for autotwitter.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	root = zerolog.New(consoleWriter(os.Stderr)).With().Timestamp().Logger()
)

// Options control global logger setup.
type Options struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format is either "console" or "json".
	Format string

	// Writer overrides the output destination. Defaults to stderr.
	Writer io.Writer
}

// Setup configures the process-wide root logger.
func Setup(opts Options) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Format != "json" {
		w = consoleWriter(w)
	}

	mu.Lock()
	root = zerolog.New(w).Level(level).With().Timestamp().Logger()
	mu.Unlock()
}

// Component returns a logger tagged with a component name.
func Component(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With().Str("component", name).Logger()
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
}
