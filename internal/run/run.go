// Package run executes external commands and reports their outcome as a
// typed result instead of an ambient exit status.
package run

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/magefile/mage/sh"
)

// Result captures everything a caller needs to branch on after an external
// command finished.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited zero.
func (r Result) Success() bool { return r.ExitCode == 0 }

// ProcessError marks a command failure that the caller chose to treat as
// fatal. The runner itself never retries.
type ProcessError struct {
	Command string
	Result  Result
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s: exit code %d", e.Command, e.Result.ExitCode)
}

// Fail wraps a non-success result into a ProcessError for call sites that
// treat any non-zero exit as pipeline-fatal.
func Fail(name string, args []string, res Result) error {
	return &ProcessError{
		Command: strings.Join(append([]string{name}, args...), " "),
		Result:  res,
	}
}

// Runner is the command-execution capability handed to every pipeline stage.
// Run returns an error only when the command could not be executed at all;
// a non-zero exit is reported through the Result.
type Runner interface {
	Run(name string, args ...string) (Result, error)
	RunEnv(env map[string]string, name string, args ...string) (Result, error)
	RunIn(stdin io.Reader, name string, args ...string) (Result, error)
}

// Exec runs commands on the host, teeing child output to the parent's
// streams so every invocation stays diagnosable while still being captured.
type Exec struct {
	// Out and Err default to os.Stdout and os.Stderr.
	Out io.Writer
	Err io.Writer
}

func (e Exec) streams() (io.Writer, io.Writer) {
	out, errOut := e.Out, e.Err
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return out, errOut
}

func (e Exec) Run(name string, args ...string) (Result, error) {
	return e.RunEnv(nil, name, args...)
}

func (e Exec) RunEnv(env map[string]string, name string, args ...string) (Result, error) {
	out, errOut := e.streams()
	var stdout, stderr bytes.Buffer

	ran, err := sh.Exec(env,
		io.MultiWriter(out, &stdout),
		io.MultiWriter(errOut, &stderr),
		name, args...)
	if !ran {
		return Result{}, fmt.Errorf("starting %s: %w", name, err)
	}

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		res.ExitCode = sh.ExitStatus(err)
	}
	return res, nil
}

func (e Exec) RunIn(stdin io.Reader, name string, args ...string) (Result, error) {
	out, errOut := e.streams()
	var stdout, stderr bytes.Buffer

	cmd := newCommand(name, args,
		io.MultiWriter(out, &stdout),
		io.MultiWriter(errOut, &stderr),
		stdin)
	code, err := cmd.run()
	if err != nil {
		return Result{}, fmt.Errorf("starting %s: %w", name, err)
	}
	return Result{
		ExitCode: code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
