// promptlab - conversational and structured-output tools over LLM providers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/matiasleandrokruk/promptlab/internal/infra/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// usageError marks bad flags or arguments.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// run executes the CLI and returns the process exit code: 0 on success,
// 1 on any failure (configuration included) and 2 on usage errors.
func run(args []string, in io.Reader, out, errOut io.Writer) int {
	return newApp(in, out, errOut).execute(args)
}

func (a *app) execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := a.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var cfgErr *config.ConfigError
	var usage *usageError
	switch {
	case errors.As(err, &cfgErr):
		fmt.Fprintf(a.errOut, "error: %v\n", cfgErr) //nolint:errcheck
		return 1
	case errors.As(err, &usage):
		fmt.Fprintf(a.errOut, "error: %v\n\n%s", usage, root.UsageString()) //nolint:errcheck
		return 2
	}
	fmt.Fprintf(a.errOut, "error: %v\n", err) //nolint:errcheck
	return 1
}
