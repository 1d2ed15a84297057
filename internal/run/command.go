package run

import (
	"errors"
	"io"
	"os/exec"
)

// command covers the one execution shape mage's sh package does not:
// feeding the child process from a reader (registry login reads the
// token from stdin so it never lands in argv).
type command struct {
	name   string
	args   []string
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

func newCommand(name string, args []string, stdout, stderr io.Writer, stdin io.Reader) *command {
	return &command{name: name, args: args, stdout: stdout, stderr: stderr, stdin: stdin}
}

func (c *command) run() (exitCode int, err error) {
	cmd := exec.Command(c.name, c.args...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	cmd.Stdin = c.stdin

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, err
	}
	return 0, nil
}
