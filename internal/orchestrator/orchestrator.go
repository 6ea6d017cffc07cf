// Package orchestrator coordinates the prefix-stripping workflow for unprefix.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"unprefix/internal/config"
	"unprefix/internal/normalizer"
	"unprefix/internal/organizer"
	"unprefix/internal/output"
	"unprefix/internal/scanner"
	"unprefix/internal/watcher"
)

// Orchestrator runs the normalization for one input/output pair.
type Orchestrator struct {
	config *config.Options
	out    *output.Output

	prepared     bool
	sameLocation bool

	// Names HandleFile renamed files to; their Create events are echoes
	mu       sync.Mutex
	produced map[string]bool
}

// NewOrchestrator creates an Orchestrator. A nil out discards the transcript.
func NewOrchestrator(cfg *config.Options, out *output.Output) *Orchestrator {
	if out == nil {
		out = output.Discard()
	}
	return &Orchestrator{
		config:   cfg,
		out:      out,
		produced: make(map[string]bool),
	}
}

// Normalize strips numeric prefixes from the regular files in sourceDir.
// When destDir is empty or resolves to sourceDir, files are renamed in place;
// otherwise renamed copies are written to destDir, which is created if needed.
//
// A missing sourceDir returns an empty Summary and an error without touching
// the file system. Per-file failures are recorded in the Summary and do not
// stop the run.
func Normalize(ctx context.Context, sourceDir, destDir string) (*Summary, error) {
	opts := &config.Options{
		InputDirectory:  sourceDir,
		OutputDirectory: destDir,
	}
	opts.ApplyDefaults()
	return NewOrchestrator(opts, nil).Run(ctx)
}

// Run executes the workflow: check the input, create the output, scan,
// then process each file in name order.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	log := zerolog.Ctx(ctx)

	summary := newSummary(o.config.InputDirectory, o.config.OutputDirectory)
	defer func() {
		summary.Duration = time.Since(start)
	}()

	if err := o.prepare(ctx, summary); err != nil {
		return summary, err
	}

	files, err := scanner.ScanWithOptions(o.config.InputDirectory, o.config.ScanOptions())
	if err != nil {
		return summary, errors.Errorf("scanning input directory: %w", err)
	}
	log.Debug().Int("files", len(files)).Bool("in_place", summary.SameLocation).Msg("scanned input directory")

	o.out.Info("Input: %s", o.config.InputDirectory)
	o.out.Info("Output: %s\n\n", o.config.OutputDirectory)

	claims := organizer.NewClaims()

	o.out.StartProgress(len(files))
	for i, file := range files {
		o.out.UpdateProgress(i+1, "")
		result := o.processFile(ctx, file, claims)
		summary.add(result)
		o.report(result)
	}
	o.out.EndProgress()

	o.out.Info("\n%s", summary.PrintSummary())
	log.Debug().
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("duration", time.Since(start)).
		Msg("run complete")

	return summary, nil
}

// prepare validates the input directory, creates the output directory and
// decides between rename and copy mode.
func (o *Orchestrator) prepare(ctx context.Context, summary *Summary) error {
	log := zerolog.Ctx(ctx)

	// Checked before anything is created
	if err := scanner.CheckDirectory(o.config.InputDirectory); err != nil {
		return errors.Errorf("input directory %q: %w", o.config.InputDirectory, err)
	}

	if _, err := os.Stat(o.config.OutputDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(o.config.OutputDirectory, 0755); err != nil {
			return errors.Errorf("creating output directory %q: %w", o.config.OutputDirectory, err)
		}
		summary.CreatedOutput = true
		o.out.Info("Created output directory: %s", o.config.OutputDirectory)
		log.Debug().Str("dir", o.config.OutputDirectory).Msg("created output directory")
	} else if err != nil {
		return errors.Errorf("output directory %q: %w", o.config.OutputDirectory, err)
	}

	same, err := organizer.SameLocation(o.config.InputDirectory, o.config.OutputDirectory)
	if err != nil {
		return err
	}

	o.sameLocation = same
	o.prepared = true
	summary.SameLocation = same
	return nil
}

// processFile computes the new name for file and renames or copies it.
func (o *Orchestrator) processFile(ctx context.Context, file scanner.FileEntry, claims *organizer.Claims) Result {
	newName := normalizer.Normalize(file.Name)
	result := Result{
		Name:       file.Name,
		NewName:    newName,
		SourcePath: file.FullPath,
	}

	log := zerolog.Ctx(ctx).With().Str("file", file.Name).Str("new_name", newName).Logger()

	fail := func(err error) Result {
		result.Outcome = Failed
		result.Error = err
		log.Debug().Err(err).Msg("file failed")
		return result
	}

	destDir := o.config.OutputDirectory
	if o.sameLocation {
		destDir = filepath.Dir(file.FullPath)
	}

	if o.sameLocation && newName == file.Name {
		// Unchanged names still occupy their slot in the directory. An earlier
		// rename onto this name failed because the file exists and released
		// its claim, so this cannot fail within one run.
		if err := claims.Claim(destDir, newName, file.FullPath); err != nil {
			log.Debug().Err(err).Msg("unchanged name already claimed")
		}
		result.Outcome = Skipped
		return result
	}

	if err := organizer.ValidateName(newName); err != nil {
		return fail(&organizer.MoveError{Type: organizer.InvalidName, Path: file.FullPath, Err: err})
	}

	if err := claims.Claim(destDir, newName, file.FullPath); err != nil {
		return fail(err)
	}

	var (
		moved *organizer.MoveResult
		err   error
	)
	if o.sameLocation {
		moved, err = organizer.Rename(file, newName)
	} else {
		moved, err = organizer.Copy(file, destDir, newName)
	}
	if err != nil {
		claims.Release(destDir, newName, file.FullPath)
		return fail(err)
	}

	result.DestinationPath = moved.DestinationPath
	if moved.Copied {
		result.Outcome = Copied
	} else {
		result.Outcome = Renamed
	}
	log.Debug().Str("outcome", string(result.Outcome)).Msg("file processed")
	return result
}

// report writes the transcript line for one result.
func (o *Orchestrator) report(r Result) {
	switch r.Outcome {
	case Renamed:
		o.out.Success("Renamed", "'%s' -> '%s'", r.Name, r.NewName)
	case Copied:
		o.out.Success("Copied & Renamed", "'%s' -> '%s'", r.Name, r.NewName)
	case Skipped:
		o.out.Skipped("Skipped", "'%s' (no prefix)", r.Name)
	case Failed:
		o.out.Failure("Failed to process", "'%s': %v", r.Name, r.Error)
	}
}

// HandleFile normalizes one file of the input directory. It is the watch
// mode handler: every call is its own batch, so collisions are only
// detected against the file system. Run must have succeeded first.
func (o *Orchestrator) HandleFile(ctx context.Context, path string) (bool, error) {
	if !o.prepared {
		return false, errors.New("orchestrator is not prepared: Run must succeed first")
	}

	name := filepath.Base(path)
	if o.consumeProduced(name) {
		return false, watcher.ErrAlreadyHandled
	}

	file, err := scanner.Lookup(o.config.InputDirectory, name, o.config.ScanOptions())
	if err != nil {
		if errors.Is(err, scanner.ErrNotRegularFile) || errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	result := o.processFile(ctx, *file, organizer.NewClaims())
	o.report(result)
	if result.Outcome == Renamed {
		o.mu.Lock()
		o.produced[result.NewName] = true
		o.mu.Unlock()
	}
	return result.Processed(), result.Error
}

// consumeProduced reports whether name was produced by an earlier rename
// in HandleFile, and forgets it.
func (o *Orchestrator) consumeProduced(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.produced[name] {
		return false
	}
	delete(o.produced, name)
	return true
}

// SameLocation reports whether the last Run renamed in place.
func (o *Orchestrator) SameLocation() bool {
	return o.sameLocation
}
