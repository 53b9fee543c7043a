// Command learnloop drives the learning-loop service from the shell. State
// lives in the configured store, so successive invocations see each other's
// writes with the sqlite or postgres drivers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"learnloop/internal/archive"
	"learnloop/internal/blob"
	"learnloop/pkg/domain"
	"os"
)

// Exit codes.
const (
	exitSuccess     = 0
	exitDomainError = 1
	exitSysError    = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root, a := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); closeErr != nil {
		_, _ = fmt.Fprintln(stderr, "warning:", closeErr)
	}
	if err == nil {
		return exitSuccess
	}
	_, _ = fmt.Fprintln(stderr, "error:", err)
	return a.exitCode(err)
}

// usageError marks malformed arguments detected inside a command.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// systemError marks failures to set up the environment a command runs in.
type systemError struct{ err error }

func (e *systemError) Error() string { return e.err.Error() }
func (e *systemError) Unwrap() error { return e.err }

// exitCode maps err to the process exit status. Errors raised by cobra before
// a command body ran are argument or flag mistakes.
func (a *app) exitCode(err error) int {
	var usage *usageError
	var system *systemError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &system):
		return exitSysError
	case !a.inRun, errors.As(err, &usage):
		return exitDomainError
	case domain.IsDomainError(err), errors.Is(err, blob.ErrNotFound), errors.Is(err, archive.ErrNoSnapshots), errors.Is(err, archive.ErrUnknownFormat):
		return exitDomainError
	default:
		return exitSysError
	}
}
