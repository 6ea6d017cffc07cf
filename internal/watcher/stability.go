package watcher

import (
	"context"
	"os"
	"time"

	"gitlab.com/tozd/go/errors"
)

// ErrFileNotFound is returned when the file disappears while waiting.
var ErrFileNotFound = errors.Base("file not found")

// ErrFileUnstable is returned when the file does not stabilize within the timeout.
var ErrFileUnstable = errors.Base("file did not stabilize within timeout")

// StabilityChecker waits until a file stops growing before it is processed.
type StabilityChecker struct {
	threshold time.Duration // Time the file size must remain unchanged
	timeout   time.Duration // Maximum time to wait for stability
	interval  time.Duration // How often to check file size
}

// NewStabilityChecker creates a StabilityChecker with a 30 second timeout
// and a sampling interval of threshold/4, but never below 50ms.
func NewStabilityChecker(threshold time.Duration) *StabilityChecker {
	interval := threshold / 4
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	return &StabilityChecker{
		threshold: threshold,
		timeout:   30 * time.Second,
		interval:  interval,
	}
}

// NewStabilityCheckerWithOptions creates a StabilityChecker with custom timeout and interval.
func NewStabilityCheckerWithOptions(threshold, timeout, interval time.Duration) *StabilityChecker {
	return &StabilityChecker{
		threshold: threshold,
		timeout:   timeout,
		interval:  interval,
	}
}

// WaitForStable blocks until the size of path has not changed for the
// threshold duration, the timeout expires, or ctx is cancelled.
func (s *StabilityChecker) WaitForStable(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lastSize, err := fileSize(path)
	if err != nil {
		return err
	}
	lastChange := time.Now()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrFileUnstable
			}
			return ctx.Err()
		case <-ticker.C:
			size, err := fileSize(path)
			if err != nil {
				return err
			}

			if size != lastSize {
				lastSize = size
				lastChange = time.Now()
			} else if time.Since(lastChange) >= s.threshold {
				return nil
			}
		}
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrFileNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

// Threshold returns the configured stability threshold.
func (s *StabilityChecker) Threshold() time.Duration {
	return s.threshold
}

// Timeout returns the configured timeout duration.
func (s *StabilityChecker) Timeout() time.Duration {
	return s.timeout
}

// Interval returns the configured check interval.
func (s *StabilityChecker) Interval() time.Duration {
	return s.interval
}
