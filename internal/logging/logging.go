// Package logging builds the hclog loggers used across moodify.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Options select the root logger's level and destination.
type Options struct {
	Name  string
	Level string
	// Verbose forces debug output; Quiet disables logging entirely and wins over Verbose.
	Verbose bool
	Quiet   bool
	Output  io.Writer
}

// New creates the root logger. Unknown level names fall back to info.
func New(opts Options) hclog.Logger {
	if opts.Name == "" {
		opts.Name = "moodify"
	}
	if opts.Quiet {
		return hclog.New(&hclog.LoggerOptions{
			Name:   opts.Name,
			Output: io.Discard,
			Level:  hclog.Off,
		})
	}

	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	if opts.Verbose {
		level = hclog.Debug
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   opts.Name,
		Output: opts.Output,
		Level:  level,
	})
}
