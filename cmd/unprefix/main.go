// Package main provides the CLI entry point for unprefix.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"gitlab.com/tozd/go/errors"

	"unprefix/internal/scanner"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
// The code is 1 when the run could not start or any file failed.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var scanErr *scanner.ScanError
	switch {
	case errors.Is(err, errFilesFailed):
		// Each failure has already been reported
	case errors.As(err, &scanErr) && scanErr.Type == scanner.DirectoryNotFound:
		fmt.Fprintf(stderr, "Error: Input directory '%s' does not exist.\n", scanErr.Path)
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}
