package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"unprefix/internal/scanner"
)

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Option with the issue (e.g., "output", "watch.ignore[1]")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

// ValidateOptions checks the options for errors and returns all findings.
// A missing input directory is not reported here; the run itself fails on it.
func ValidateOptions(opts *Options) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
		Valid:    true,
	}

	var findings []ConfigValidationError
	findings = append(findings, ValidatePaths(opts)...)
	findings = append(findings, ValidatePolicies(opts)...)
	findings = append(findings, ValidateWatch(opts)...)

	for _, f := range findings {
		if f.Severity == SeverityError {
			result.Errors = append(result.Errors, f)
		} else {
			result.Warnings = append(result.Warnings, f)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidatePaths checks the input and output arguments.
func ValidatePaths(opts *Options) []ConfigValidationError {
	var errors []ConfigValidationError

	if strings.TrimSpace(opts.InputDirectory) == "" {
		errors = append(errors, ConfigValidationError{
			Field:    "input",
			Message:  "input directory must not be empty",
			Severity: SeverityError,
		})
		return errors
	}

	// The output may be missing (it is created), but not a regular file
	if info, err := os.Stat(opts.OutputDirectory); err == nil && !info.IsDir() {
		errors = append(errors, ConfigValidationError{
			Field:    "output",
			Message:  "path exists but is not a directory: " + opts.OutputDirectory,
			Severity: SeverityError,
		})
	}

	if !opts.InPlace() && isNested(opts.InputDirectory, opts.OutputDirectory) {
		errors = append(errors, ConfigValidationError{
			Field:    "output",
			Message:  "output directory is inside the input directory: " + opts.OutputDirectory,
			Severity: SeverityWarning,
		})
	}

	return errors
}

// isNested reports whether child is strictly inside parent, comparing cleaned absolute paths.
func isNested(parent, child string) bool {
	absParent, err := filepath.Abs(parent)
	if err != nil {
		return false
	}
	absChild, err := filepath.Abs(child)
	if err != nil {
		return false
	}
	return strings.HasPrefix(absChild, absParent+string(filepath.Separator))
}

// ValidatePolicies checks that policy values are valid.
func ValidatePolicies(opts *Options) []ConfigValidationError {
	var errors []ConfigValidationError

	if opts.SymlinkPolicy != "" {
		validPolicies := map[string]bool{
			scanner.SymlinkPolicyFollow: true,
			scanner.SymlinkPolicySkip:   true,
			scanner.SymlinkPolicyError:  true,
		}
		if !validPolicies[opts.SymlinkPolicy] {
			errors = append(errors, ConfigValidationError{
				Field:    "symlinks",
				Message:  "invalid symlink policy: \"" + opts.SymlinkPolicy + "\". Must be \"follow\", \"skip\", or \"error\"",
				Severity: SeverityError,
			})
		}
	}

	return errors
}

// ValidateWatch checks the watch mode settings.
func ValidateWatch(opts *Options) []ConfigValidationError {
	var errors []ConfigValidationError
	if opts.Watch == nil {
		return errors
	}

	if opts.Watch.DebounceSeconds < 0 {
		errors = append(errors, ConfigValidationError{
			Field:    "watch.debounce",
			Message:  "debounce must not be negative",
			Severity: SeverityError,
		})
	}
	if opts.Watch.StableThresholdMs < 0 {
		errors = append(errors, ConfigValidationError{
			Field:    "watch.stable",
			Message:  "stability threshold must not be negative",
			Severity: SeverityError,
		})
	}

	for i, pattern := range opts.Watch.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			errors = append(errors, ConfigValidationError{
				Field:    formatField("watch.ignore", i),
				Message:  "invalid glob pattern: " + pattern,
				Severity: SeverityError,
			})
		}
	}

	return errors
}

// formatField creates a field reference string for validation errors.
func formatField(name string, index int) string {
	return name + "[" + strconv.Itoa(index) + "]"
}
