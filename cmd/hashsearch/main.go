// Command hashsearch finds a plaintext whose digest equals a target hash by
// enumerating or sampling the strings a pattern describes.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	exitMatch   = 0
	exitNoMatch = 1
	exitUsage   = 2
	exitFailure = 3
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitMatch
	}
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintf(stderr, "Error: %s\n", msg)
		}
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitFailure
}
