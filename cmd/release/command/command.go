// Package command wires the release pipeline into a cobra command with the
// exit-code contract CI expects: zero on success (including a declined
// publish), non-zero on any failure.
package command

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

const (
	// ReturnCodeSuccess is passed to os.Exit() when no error is reported.
	ReturnCodeSuccess = 0
	// ReturnCodeError is passed to os.Exit() if the pipeline reports an error.
	ReturnCodeError = 1
)

// Run executes the release command and returns the process exit code.
func Run(ctx context.Context, inReader io.Reader, outWriter, errWriter io.Writer, args []string) int {
	cmd := CobraRoot()
	cmd.SetIn(inReader)
	cmd.SetOut(outWriter)
	cmd.SetErr(errWriter)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		return ReturnCodeError
	}

	return ReturnCodeSuccess
}

// CobraRoot builds the root command.
func CobraRoot() *cobra.Command {
	return (&Release{}).CobraCommand()
}
