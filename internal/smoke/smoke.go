// Package smoke drives the end-to-end verification of the built image: for
// every (transport, format) pair it provisions a fresh environment, injects
// syslog traffic, and checks that Seq ingested it, retrying a bounded number
// of times before giving up.
package smoke

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/datalust/seq-input-syslog/internal/buildenv"
)

// DefaultMaxAttempts bounds the retry loop per test case. The pipeline
// aborts after the fifth consecutive failed attempt.
const DefaultMaxAttempts = 5

const defaultFlushPause = 2 * time.Second

// State of the per-case verification machine.
type State int

const (
	Idle State = iota
	Provisioning
	Exercising
	Verifying
	Teardown
	Succeeded
	Failed
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Provisioning:
		return "provisioning"
	case Exercising:
		return "exercising"
	case Verifying:
		return "verifying"
	case Teardown:
		return "teardown"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Environment is the lifecycle capability the runner drives. Satisfied by
// *buildenv.Manager.
type Environment interface {
	Start(buildenv.Transport) error
	Stop() error
	Logs() (seq, subject string)
}

// Driver injects synthetic traffic into the subject container.
type Driver interface {
	Send(Case) error
}

// Verifier checks that the dependency service actually ingested something.
type Verifier interface {
	Verify() error
}

// ExhaustedError reports that every attempt at a case failed.
type ExhaustedError struct {
	Case     Case
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("smoke test %s: aborted after %d failed attempts: %v", e.Case, e.Attempts, e.LastErr)
}
func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Runner walks the test matrix sequentially. It owns the only retry boundary
// in the pipeline.
type Runner struct {
	Env      Environment
	Driver   Driver
	Verifier Verifier

	// MaxAttempts per case; zero means DefaultMaxAttempts.
	MaxAttempts int
	// FlushPause is the settling interval between traffic injection and
	// verification; zero means the default.
	FlushPause time.Duration

	Log *zap.SugaredLogger
}

// RunAll exercises every case in order. The first exhausted case aborts the
// pipeline; teardown failures abort immediately regardless of retries left.
func (r *Runner) RunAll(cases []Case) error {
	for _, c := range cases {
		if err := r.runCase(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runCase(c Case) error {
	maxAttempts := r.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var (
		state    = Provisioning
		attempt  int
		caseErr  error
		verified bool
	)

	for {
		switch state {
		case Provisioning:
			attempt++
			verified = false
			r.Log.Infow("starting smoke test attempt", "case", c.String(), "attempt", attempt, "max", maxAttempts)
			if err := r.Env.Start(c.Transport); err != nil {
				var teardown *buildenv.TeardownError
				if errors.As(err, &teardown) {
					return err
				}
				caseErr = err
				state = Failed
				break
			}
			state = Exercising

		case Exercising:
			if err := r.Driver.Send(c); err != nil {
				caseErr = fmt.Errorf("injecting %s traffic: %w", c, err)
				state = Failed
				break
			}
			pause := r.FlushPause
			if pause == 0 {
				pause = defaultFlushPause
			}
			time.Sleep(pause)
			state = Verifying

		case Verifying:
			r.collectLogs(c)
			if err := r.Verifier.Verify(); err != nil {
				caseErr = err
				state = Failed
				break
			}
			state = Succeeded

		case Succeeded:
			r.Log.Infow("smoke test case passed", "case", c.String(), "attempts", attempt)
			verified = true
			state = Teardown

		case Failed:
			r.Log.Warnw("smoke test attempt failed", "case", c.String(), "attempt", attempt, "error", caseErr)
			state = Teardown

		case Teardown:
			if err := r.Env.Stop(); err != nil {
				return err
			}
			switch {
			case verified:
				state = Idle
			case attempt >= maxAttempts:
				state = Aborted
			default:
				state = Provisioning
			}

		case Idle:
			return nil

		case Aborted:
			return &ExhaustedError{Case: c, Attempts: attempt, LastErr: caseErr}
		}
	}
}

// collectLogs dumps both containers' output for diagnosability. It never
// gates the verification outcome.
func (r *Runner) collectLogs(c Case) {
	seq, subject := r.Env.Logs()
	r.Log.Infow("collected container logs", "case", c.String())
	r.Log.Debugf("seq logs:\n%s", seq)
	r.Log.Debugf("subject logs:\n%s", subject)
}
