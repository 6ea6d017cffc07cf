package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"unprefix/internal/config"
	"unprefix/internal/orchestrator"
	"unprefix/internal/output"
	"unprefix/internal/scanner"
	"unprefix/internal/watcher"
)

// errFilesFailed signals a completed run in which at least one file failed.
var errFilesFailed = errors.Base("one or more files could not be processed")

type rootFlags struct {
	verbose  bool
	debug    bool
	noColor  bool
	symlinks string
	watch    bool
	ignore   []string
	debounce int
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "unprefix <input> [output]",
		Short: `Remove numeric "NN - " prefixes from filenames`,
		Long: `unprefix strips a leading "NN - " (digits, space, hyphen, space) from the
name of every file directly inside <input>.

Without [output], or when [output] is the same directory, files are renamed
in place. Otherwise renamed copies are written to [output], which is created
if needed, and the originals are left untouched.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := setupLogging(cmd.Context(), stderr, flags.debug, flags.noColor)
			out := newOutput(stdout, stderr, flags)

			opts, err := flags.options(args)
			if err != nil {
				return err
			}

			validation := config.ValidateOptions(opts)
			for _, warning := range validation.Warnings {
				out.Error("Warning: %s: %s", warning.Field, warning.Message)
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			return runNormalize(ctx, opts, out)
		},
	}

	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "also report files that need no change")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	cmd.Flags().StringVar(&flags.symlinks, "symlinks", scanner.SymlinkPolicyFollow, `how to treat symlinks in <input>: "follow", "skip" or "error"`)
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "keep watching <input> and process new files until interrupted")
	cmd.Flags().StringSliceVar(&flags.ignore, "ignore", nil, "glob of files to leave alone in watch mode (repeatable)")
	cmd.Flags().IntVar(&flags.debounce, "debounce", watcher.DefaultWatchConfig().DebounceSeconds, "seconds to wait for activity on a file to settle in watch mode")

	return cmd
}

// options builds the run options from positional arguments and flags.
func (f *rootFlags) options(args []string) (*config.Options, error) {
	opts, err := config.FromArgs(args)
	if err != nil {
		return nil, err
	}

	opts.Verbose = f.verbose
	opts.Debug = f.debug
	opts.NoColor = f.noColor
	opts.SymlinkPolicy = f.symlinks
	if f.watch {
		opts.Watch = &watcher.WatchConfig{
			DebounceSeconds: f.debounce,
			IgnorePatterns:  f.ignore,
		}
	}
	opts.ApplyDefaults()
	return opts, nil
}

// setupLogging attaches a console zerolog logger on stderr to ctx.
func setupLogging(ctx context.Context, stderr io.Writer, debug, noColor bool) context.Context {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: noColor}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger.WithContext(ctx)
}

// newOutput builds the transcript writer. Terminal features only apply
// when writing to the real stdout.
func newOutput(stdout, stderr io.Writer, flags *rootFlags) *output.Output {
	cfg := output.DefaultConfig()
	if stdout != io.Writer(os.Stdout) {
		cfg.IsTTY = false
		cfg.Color = false
	}
	cfg.Writer = stdout
	cfg.ErrWriter = stderr
	cfg.Verbose = flags.verbose
	if flags.noColor {
		cfg.Color = false
	}
	return output.New(cfg)
}

func runNormalize(ctx context.Context, opts *config.Options, out *output.Output) error {
	o := orchestrator.NewOrchestrator(opts, out)

	summary, err := o.Run(ctx)
	if err != nil {
		return err
	}
	failed := summary.HasErrors()

	if opts.Watch != nil {
		watchFailed, err := runWatch(ctx, opts, o, out)
		if err != nil {
			return err
		}
		failed = failed || watchFailed
	}

	if failed {
		return errFilesFailed
	}
	return nil
}

// runWatch processes files that appear in the input directory until
// SIGINT or SIGTERM. It reports whether any file failed.
func runWatch(ctx context.Context, opts *config.Options, o *orchestrator.Orchestrator, out *output.Output) (bool, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out.Info("\nWatching %s for new files (Ctrl+C to stop)...", opts.InputDirectory)

	w := watcher.New(opts.Watch, o.HandleFile)
	summary, err := w.Run(ctx, []string{opts.InputDirectory})
	if err != nil {
		return false, errors.Errorf("watching input directory: %w", err)
	}

	out.Info("\nStopped watching after %s: %d processed, %d skipped, %d failed.",
		summary.Duration.Round(time.Second), summary.FilesProcessed, summary.FilesSkipped, summary.FilesFailed)
	return summary.FilesFailed > 0, nil
}
