// Package testutil provides small hand-rolled fakes shared by the package
// tests, most importantly a scriptable process runner.
package testutil

import (
	"io"
	"strings"

	"github.com/datalust/seq-input-syslog/internal/run"
)

// Call records one command handed to the fake runner.
type Call struct {
	Name string
	Args []string
}

// String renders the call the way it would appear on a shell command line.
func (c Call) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Response scripts the outcome of calls whose command line contains Match.
// A Response with Times > 0 is consumed after that many uses, which lets a
// test script "fail twice, then succeed" sequences.
type Response struct {
	Match  string
	Result run.Result
	Err    error
	Times  int
}

// FakeRunner implements run.Runner. Calls are matched against the scripted
// responses in order; unmatched calls succeed with an empty result.
type FakeRunner struct {
	Calls     []Call
	Responses []Response
}

var _ run.Runner = (*FakeRunner)(nil)

func (f *FakeRunner) Run(name string, args ...string) (run.Result, error) {
	return f.record(name, args)
}

func (f *FakeRunner) RunEnv(_ map[string]string, name string, args ...string) (run.Result, error) {
	return f.record(name, args)
}

func (f *FakeRunner) RunIn(_ io.Reader, name string, args ...string) (run.Result, error) {
	return f.record(name, args)
}

func (f *FakeRunner) record(name string, args []string) (run.Result, error) {
	call := Call{Name: name, Args: args}
	f.Calls = append(f.Calls, call)

	line := call.String()
	for i := range f.Responses {
		r := &f.Responses[i]
		if !strings.Contains(line, r.Match) {
			continue
		}
		if r.Times < 0 {
			continue // consumed
		}
		if r.Times > 0 {
			r.Times--
			if r.Times == 0 {
				r.Times = -1
			}
		}
		return r.Result, r.Err
	}
	return run.Result{}, nil
}

// CommandLines returns every recorded call as a shell-style string, in order.
func (f *FakeRunner) CommandLines() []string {
	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = c.String()
	}
	return lines
}

// CountMatching returns how many recorded calls contain the given fragment.
func (f *FakeRunner) CountMatching(fragment string) int {
	n := 0
	for _, line := range f.CommandLines() {
		if strings.Contains(line, fragment) {
			n++
		}
	}
	return n
}
