// Package output writes the human-readable transcript of an unprefix run.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Also report files that needed no change
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
	Color     bool      // Colorize outcome labels
}

// Output handles the transcript with verbose, color and progress support.
type Output struct {
	config          Config
	progressActive  bool
	progressTotal   int
	progressCurrent int
	progressMu      sync.Mutex
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{
		config: config,
	}
}

// Discard returns an Output that writes nothing.
func Discard() *Output {
	return New(Config{Writer: io.Discard, ErrWriter: io.Discard})
}

// DefaultConfig returns a Config for stdout/stderr with TTY detection.
// Color is enabled only on a terminal.
func DefaultConfig() Config {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	return Config{
		Verbose:   false,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     isTTY,
		Color:     isTTY,
	}
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	o.print(o.config.Writer, fmt.Sprintf(format, args...))
}

// Info prints an informational message (always shown).
func (o *Output) Info(format string, args ...interface{}) {
	o.print(o.config.Writer, fmt.Sprintf(format, args...))
}

// Error prints an error message to the error writer.
func (o *Output) Error(format string, args ...interface{}) {
	o.print(o.config.ErrWriter, fmt.Sprintf(format, args...))
}

// Success prints "label: message" with a green label.
func (o *Output) Success(label string, format string, args ...interface{}) {
	o.print(o.config.Writer, o.paint(color.FgGreen, label+":")+" "+fmt.Sprintf(format, args...))
}

// Skipped prints "label: message" with a yellow label, in verbose mode only.
func (o *Output) Skipped(label string, format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	o.print(o.config.Writer, o.paint(color.FgYellow, label+":")+" "+fmt.Sprintf(format, args...))
}

// Failure prints "label message" with a red label to the error writer.
func (o *Output) Failure(label string, format string, args ...interface{}) {
	o.print(o.config.ErrWriter, o.paint(color.FgRed, label)+" "+fmt.Sprintf(format, args...))
}

// paint wraps s in the color escape for attr when color is enabled.
func (o *Output) paint(attr color.Attribute, s string) string {
	if !o.config.Color {
		return s
	}
	c := color.New(attr, color.Bold)
	// fatih/color disables itself when stdout is not a terminal; the
	// decision has already been made in Config.
	c.EnableColor()
	return c.Sprint(s)
}

func (o *Output) print(w io.Writer, msg string) {
	o.clearProgressLine()
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(w, msg)
}

// clearProgressLine clears the current progress line if active.
func (o *Output) clearProgressLine() {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if o.progressActive && o.config.IsTTY {
		fmt.Fprint(o.config.Writer, "\r"+strings.Repeat(" ", 60)+"\r")
	}
}

// StartProgress begins a progress indicator session.
func (o *Output) StartProgress(total int) {
	// Suppress progress when not TTY or when verbose mode is enabled
	if !o.config.IsTTY || o.config.Verbose {
		return
	}
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.progressActive = true
	o.progressTotal = total
	o.progressCurrent = 0
}

// UpdateProgress updates the progress indicator in place.
func (o *Output) UpdateProgress(current int, message string) {
	if !o.config.IsTTY || o.config.Verbose {
		return
	}
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if !o.progressActive {
		return
	}
	o.progressCurrent = current
	progressMsg := fmt.Sprintf("\rProcessing file %d/%d...", current, o.progressTotal)
	if message != "" {
		progressMsg = fmt.Sprintf("\r%s %d/%d...", message, current, o.progressTotal)
	}
	fmt.Fprint(o.config.Writer, progressMsg)
}

// EndProgress clears the progress indicator.
func (o *Output) EndProgress() {
	if !o.config.IsTTY || o.config.Verbose {
		return
	}
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if !o.progressActive {
		return
	}
	o.progressActive = false
	fmt.Fprint(o.config.Writer, "\r"+strings.Repeat(" ", 60)+"\r")
}

// IsVerbose returns whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

// IsTTY returns whether the output is a terminal.
func (o *Output) IsTTY() bool {
	return o.config.IsTTY
}
