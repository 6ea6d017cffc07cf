// Package config resolves and validates the run options for unprefix.
package config

import (
	"fmt"

	"unprefix/internal/scanner"
	"unprefix/internal/watcher"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	MissingArgument ConfigErrorType = "MISSING_ARGUMENT"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error in the options given on the command line.
type ConfigError struct {
	Type    ConfigErrorType
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case MissingArgument:
		return fmt.Sprintf("missing argument: %s", e.Field)
	case ValidationError:
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// Options holds all settings for one unprefix invocation.
// There is no configuration file; everything comes from the command line.
type Options struct {
	InputDirectory  string
	OutputDirectory string // Defaults to InputDirectory
	SymlinkPolicy   string // One of the scanner symlink policies
	Verbose         bool
	Debug           bool
	NoColor         bool
	Watch           *watcher.WatchConfig // nil unless watch mode is enabled
}

// FromArgs builds Options from the positional arguments <input> [output].
func FromArgs(args []string) (*Options, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, &ConfigError{Type: MissingArgument, Field: "input"}
	}
	if len(args) > 2 {
		return nil, &ConfigError{
			Type:    ValidationError,
			Field:   "arguments",
			Message: fmt.Sprintf("expected at most 2, got %d", len(args)),
		}
	}

	opts := &Options{InputDirectory: args[0]}
	if len(args) == 2 {
		opts.OutputDirectory = args[1]
	}
	opts.ApplyDefaults()
	return opts, nil
}

// ApplyDefaults fills in zero-valued fields.
// An empty OutputDirectory means rename in place.
func (o *Options) ApplyDefaults() {
	if o.OutputDirectory == "" {
		o.OutputDirectory = o.InputDirectory
	}
	if o.SymlinkPolicy == "" {
		o.SymlinkPolicy = scanner.SymlinkPolicyFollow
	}
	if o.Watch != nil {
		defaults := watcher.DefaultWatchConfig()
		if o.Watch.DebounceSeconds == 0 {
			o.Watch.DebounceSeconds = defaults.DebounceSeconds
		}
		if o.Watch.StableThresholdMs == 0 {
			o.Watch.StableThresholdMs = defaults.StableThresholdMs
		}
		if len(o.Watch.IgnorePatterns) == 0 {
			o.Watch.IgnorePatterns = defaults.IgnorePatterns
		}
	}
}

// InPlace reports whether the output directory was left at its default.
// The orchestrator still compares canonical paths before choosing to rename.
func (o *Options) InPlace() bool {
	return o.OutputDirectory == o.InputDirectory
}

// ScanOptions returns the scanner options implied by these settings.
func (o *Options) ScanOptions() scanner.ScanOptions {
	opts := scanner.DefaultScanOptions()
	if o.SymlinkPolicy != "" {
		opts.SymlinkPolicy = o.SymlinkPolicy
	}
	return opts
}

// Validate checks the options and returns the first error found, if any.
func (o *Options) Validate() error {
	result := ValidateOptions(o)
	if result.Valid {
		return nil
	}
	first := result.Errors[0]
	return &ConfigError{
		Type:    ValidationError,
		Field:   first.Field,
		Message: first.Message,
	}
}
