// Package common holds the small pieces shared by the binaries: logger
// setup and the build version.
package common

import (
	"log/slog"
	"os"
)

// PackageName tags logs and diagnostics emitted by this module.
const PackageName = "tee-partition-manager"

// Version is the build version, overridable at link time.
var Version = "dev"

// LoggingOpts configures SetupLogger.
type LoggingOpts struct {
	// Debug lowers the level to debug.
	Debug bool
	// JSON selects the JSON handler instead of text.
	JSON bool
	// Service, when set, is added as a "service" attribute to every record.
	Service string
	// Version, when set, is added as a "version" attribute to every record.
	Version string
}

// SetupLogger builds the process logger on stderr.
func SetupLogger(opts *LoggingOpts) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	log := slog.New(handler)
	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}
	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}

	return log
}
