package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes to provide meaningful status to the operating system or service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// exitError carries the process exit code next to the error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	code := exitOK
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		code = exitRuntime
		var exit *exitError
		if errors.As(err, &exit) {
			code = exit.code
		}
		fmt.Fprintf(os.Stderr, "stroll terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stroll",
		Short:         "Browse a live roster of profiles from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRunCmd(), newInspectCmd())
	return rootCmd
}

// withCode adapts a run() style function to cobra.
func withCode(run func(cmd *cobra.Command) (int, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		code, err := run(cmd)
		if err != nil {
			return &exitError{code: code, err: err}
		}
		return nil
	}
}
