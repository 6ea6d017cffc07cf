package orchestrator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"unprefix/internal/config"
	"unprefix/internal/organizer"
	"unprefix/internal/output"
	"unprefix/internal/scanner"
	"unprefix/internal/watcher"
)

// createFiles writes each name into dir with the name as content.
func createFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}
}

// listNames returns the sorted entry names of dir.
func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func outcomes(summary *Summary) map[string]Outcome {
	m := make(map[string]Outcome, len(summary.Results))
	for _, r := range summary.Results {
		m[r.Name] = r.Outcome
	}
	return m
}

func requireMoveErrorType(t *testing.T, err error, want organizer.MoveErrorType) {
	t.Helper()
	var moveErr *organizer.MoveError
	require.True(t, errors.As(err, &moveErr), "expected *MoveError, got %T: %v", err, err)
	assert.Equal(t, want, moveErr.Type)
}

func TestNormalize_RenameInPlace(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, "01 - intro.txt", "02 - setup.txt", "readme.txt")

	summary, err := Normalize(context.Background(), dir, dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"intro.txt", "readme.txt", "setup.txt"}, listNames(t, dir))
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.True(t, summary.SameLocation)
	assert.False(t, summary.CreatedOutput)
	assert.Equal(t, map[string]Outcome{
		"01 - intro.txt": Renamed,
		"02 - setup.txt": Renamed,
		"readme.txt":     Skipped,
	}, outcomes(summary))

	data, err := os.ReadFile(filepath.Join(dir, "intro.txt"))
	require.NoError(t, err)
	assert.Equal(t, "01 - intro.txt", string(data))
}

func TestNormalize_EmptyOutputMeansInPlace(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, "3 - c.txt")

	summary, err := Normalize(context.Background(), dir, "")
	require.NoError(t, err)

	assert.True(t, summary.SameLocation)
	assert.Equal(t, []string{"c.txt"}, listNames(t, dir))
}

func TestNormalize_CopyToSeparateDirectory(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	createFiles(t, src, "10 - a.mp3")

	summary, err := Normalize(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, []string{"10 - a.mp3"}, listNames(t, src))
	assert.Equal(t, []string{"a.mp3"}, listNames(t, dst))
	assert.Equal(t, 1, summary.Processed)
	assert.False(t, summary.SameLocation)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, Copied, summary.Results[0].Outcome)
	assert.Equal(t, filepath.Join(dst, "a.mp3"), summary.Results[0].DestinationPath)
}

func TestNormalize_CopiesUnprefixedFilesToo(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	createFiles(t, src, "01 - a.txt", "b.txt")

	summary, err := Normalize(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, []string{"a.txt", "b.txt"}, listNames(t, dst))
}

func TestNormalize_MissingSourceDirectory(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "missing")
	dst := filepath.Join(root, "out")

	summary, err := Normalize(context.Background(), missing, dst)
	require.Error(t, err)

	var scanErr *scanner.ScanError
	require.True(t, errors.As(err, &scanErr))
	assert.Equal(t, scanner.DirectoryNotFound, scanErr.Type)

	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, summary.Results)
	assert.Empty(t, listNames(t, root), "no directories may be created")
}

func TestNormalize_EmptySourceDirectory(t *testing.T) {
	summary, err := Normalize(context.Background(), t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, summary.Results)
	assert.False(t, summary.HasErrors())
}

func TestNormalize_CreatesOutputDirectory(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "nested", "out")
	createFiles(t, src, "01 - a.txt")

	summary, err := Normalize(context.Background(), src, dst)
	require.NoError(t, err)

	assert.True(t, summary.CreatedOutput)
	assert.Equal(t, []string{"a.txt"}, listNames(t, dst))
}

func TestNormalize_OutputCreationFailureIsFatal(t *testing.T) {
	src := t.TempDir()
	createFiles(t, src, "01 - a.txt")
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	summary, err := Normalize(context.Background(), src, filepath.Join(blocker, "out"))
	require.Error(t, err)
	assert.Empty(t, summary.Results)
	assert.Equal(t, []string{"01 - a.txt"}, listNames(t, src))
}

func TestNormalize_SubdirectoriesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, "01 - a.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "02 - album"), 0755))
	createFiles(t, filepath.Join(dir, "02 - album"), "03 - track.mp3")

	summary, err := Normalize(context.Background(), dir, dir)
	require.NoError(t, err)

	assert.Len(t, summary.Results, 1)
	assert.Equal(t, []string{"02 - album", "a.txt"}, listNames(t, dir))
	assert.Equal(t, []string{"03 - track.mp3"}, listNames(t, filepath.Join(dir, "02 - album")))
}

func TestNormalize_RenameRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, "01 - a.txt", "a.txt")

	summary, err := Normalize(context.Background(), dir, dir)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.HasErrors())
	failures := summary.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "01 - a.txt", failures[0].Name)
	requireMoveErrorType(t, failures[0].Error, organizer.DestinationExists)

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", string(data))
}

func TestNormalize_CopyOntoItsOwnSymlinkTargetFails(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	target := filepath.Join(dst, "a.txt")
	require.NoError(t, os.WriteFile(target, []byte("precious"), 0644))
	require.NoError(t, os.Symlink(target, filepath.Join(src, "01 - a.txt")))
	createFiles(t, src, "02 - b.txt")

	summary, err := Normalize(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	failures := summary.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "01 - a.txt", failures[0].Name)
	requireMoveErrorType(t, failures[0].Error, organizer.DestinationExists)
	assert.True(t, errors.Is(failures[0].Error, organizer.ErrSameFile))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(data))
	assert.Equal(t, []string{"a.txt", "b.txt"}, listNames(t, dst))
}

func TestNormalize_CollisionInOneRunIsAnError(t *testing.T) {
	tests := []struct {
		name    string
		inPlace bool
	}{
		{"rename in place", true},
		{"copy", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := t.TempDir()
			dst := t.TempDir()
			if tt.inPlace {
				dst = src
			}
			createFiles(t, src, "01 - a.txt", "02 - a.txt")

			summary, err := Normalize(context.Background(), src, dst)
			require.NoError(t, err)

			assert.Equal(t, 1, summary.Processed)
			assert.Equal(t, 1, summary.Failed)
			assert.Equal(t, map[string]Outcome{
				"01 - a.txt": map[bool]Outcome{true: Renamed, false: Copied}[tt.inPlace],
				"02 - a.txt": Failed,
			}, outcomes(summary))
			requireMoveErrorType(t, summary.Failures()[0].Error, organizer.DestinationCollision)

			// The first file in name order wins
			data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
			require.NoError(t, err)
			assert.Equal(t, "01 - a.txt", string(data))
		})
	}
}

func TestNormalize_PrefixOnlyNameFails(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, "12 - ", "13 - b.txt")

	summary, err := Normalize(context.Background(), dir, dir)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	requireMoveErrorType(t, summary.Failures()[0].Error, organizer.InvalidName)
	assert.Equal(t, []string{"12 - ", "b.txt"}, listNames(t, dir))
}

func TestNormalize_CopyRerunOverwritesPreviousCopies(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	createFiles(t, src, "01 - a.txt", "02 - b.txt")

	first, err := Normalize(context.Background(), src, dst)
	require.NoError(t, err)
	second, err := Normalize(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, first.Processed, second.Processed)
	assert.Equal(t, 0, second.Failed)
	assert.Equal(t, []string{"a.txt", "b.txt"}, listNames(t, dst))
	assert.Equal(t, []string{"01 - a.txt", "02 - b.txt"}, listNames(t, src))
}

func TestNormalize_SymlinkedOutputIsSameLocation(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(dir, link))
	createFiles(t, dir, "01 - a.txt")

	summary, err := Normalize(context.Background(), dir, link)
	require.NoError(t, err)

	assert.True(t, summary.SameLocation)
	assert.Equal(t, []string{"a.txt"}, listNames(t, dir))
	assert.Equal(t, Renamed, summary.Results[0].Outcome)
}

func TestRun_Transcript(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, "01 - intro.txt", "12 - ", "readme.txt")

	var stdout, stderr bytes.Buffer
	out := output.New(output.Config{Verbose: true, Writer: &stdout, ErrWriter: &stderr})
	opts := &config.Options{InputDirectory: dir}
	opts.ApplyDefaults()

	summary, err := NewOrchestrator(opts, out).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ""+
		"Input: "+dir+"\n"+
		"Output: "+dir+"\n\n"+
		"Renamed: '01 - intro.txt' -> 'intro.txt'\n"+
		"Skipped: 'readme.txt' (no prefix)\n"+
		"\nDone! Processed 1 files (1 failed).\n",
		stdout.String())
	assert.Contains(t, stderr.String(), "Failed to process '12 - ': INVALID_NAME")
	assert.Equal(t, "Done! Processed 1 files (1 failed).", summary.PrintSummary())
}

func TestRun_TranscriptAnnouncesCreatedOutput(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")

	var stdout bytes.Buffer
	out := output.New(output.Config{Writer: &stdout, ErrWriter: &stdout})
	opts := &config.Options{InputDirectory: src, OutputDirectory: dst}
	opts.ApplyDefaults()

	_, err := NewOrchestrator(opts, out).Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "Created output directory: "+dst+"\n")
	assert.Contains(t, stdout.String(), "Done! Processed 0 files.\n")
}

func TestHandleFile(t *testing.T) {
	dir := t.TempDir()
	opts := &config.Options{InputDirectory: dir}
	opts.ApplyDefaults()
	o := NewOrchestrator(opts, nil)

	_, err := o.HandleFile(context.Background(), filepath.Join(dir, "01 - a.txt"))
	require.Error(t, err, "HandleFile before Run must fail")

	_, err = o.Run(context.Background())
	require.NoError(t, err)

	createFiles(t, dir, "01 - a.txt", "b.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "02 - sub"), 0755))

	processed, err := o.HandleFile(context.Background(), filepath.Join(dir, "01 - a.txt"))
	require.NoError(t, err)
	assert.True(t, processed)

	// The rename above shows up as a new a.txt; the first sighting is an echo
	_, err = o.HandleFile(context.Background(), filepath.Join(dir, "a.txt"))
	assert.True(t, errors.Is(err, watcher.ErrAlreadyHandled))
	processed, err = o.HandleFile(context.Background(), filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.False(t, processed)

	processed, err = o.HandleFile(context.Background(), filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.False(t, processed)

	processed, err = o.HandleFile(context.Background(), filepath.Join(dir, "02 - sub"))
	require.NoError(t, err)
	assert.False(t, processed)

	processed, err = o.HandleFile(context.Background(), filepath.Join(dir, "gone.txt"))
	require.NoError(t, err)
	assert.False(t, processed)

	createFiles(t, dir, "03 - b.txt")
	processed, err = o.HandleFile(context.Background(), filepath.Join(dir, "03 - b.txt"))
	assert.False(t, processed)
	requireMoveErrorType(t, err, organizer.DestinationExists)

	assert.Equal(t, []string{"02 - sub", "03 - b.txt", "a.txt", "b.txt"}, listNames(t, dir))
}
