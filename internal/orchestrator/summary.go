package orchestrator

import (
	"fmt"
	"time"
)

// Outcome is what happened to one file.
type Outcome string

const (
	// Renamed means the file was renamed in place.
	Renamed Outcome = "renamed"
	// Copied means the file was copied to the output directory under its new name.
	Copied Outcome = "copied"
	// Skipped means the file already had no prefix and input equals output.
	Skipped Outcome = "skipped"
	// Failed means the operation for this file returned an error.
	Failed Outcome = "failed"
)

// Result represents the outcome of normalizing a single file.
type Result struct {
	Name            string // Original filename
	NewName         string // Transformed filename
	SourcePath      string
	DestinationPath string // Empty for skipped and failed files
	Outcome         Outcome
	Error           error
}

// Processed reports whether the file was renamed or copied.
func (r Result) Processed() bool {
	return r.Outcome == Renamed || r.Outcome == Copied
}

// Summary represents the overall results of one run.
// Results holds one entry per regular file in the input directory, in name order.
type Summary struct {
	Input         string
	Output        string
	SameLocation  bool
	CreatedOutput bool
	Processed     int
	Skipped       int
	Failed        int
	Results       []Result
	Duration      time.Duration
}

func newSummary(input, output string) *Summary {
	return &Summary{
		Input:   input,
		Output:  output,
		Results: make([]Result, 0),
	}
}

// add records a result and updates the counters.
func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case Renamed, Copied:
		s.Processed++
	case Skipped:
		s.Skipped++
	case Failed:
		s.Failed++
	}
}

// HasErrors returns true if any file failed.
func (s *Summary) HasErrors() bool {
	return s.Failed > 0
}

// Failures returns the failed results in processing order.
func (s *Summary) Failures() []Result {
	var failed []Result
	for _, r := range s.Results {
		if r.Outcome == Failed {
			failed = append(failed, r)
		}
	}
	return failed
}

// PrintSummary returns the closing line of the transcript.
func (s *Summary) PrintSummary() string {
	if s.Failed > 0 {
		return fmt.Sprintf("Done! Processed %d files (%d failed).", s.Processed, s.Failed)
	}
	return fmt.Sprintf("Done! Processed %d files.", s.Processed)
}
