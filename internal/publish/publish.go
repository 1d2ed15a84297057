package publish

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/datalust/seq-input-syslog/internal/run"
)

// Credentials authenticate the push. When empty, the fan-out relies on
// whatever auth the container runtime already holds.
type Credentials struct {
	User  string
	Token string
}

func (c Credentials) present() bool { return c.User != "" && c.Token != "" }

// PushError names the destination that broke the fan-out. Earlier pushes are
// not rolled back; the operator re-runs to complete the set.
type PushError struct {
	Ref string
	Err error
}

func (e *PushError) Error() string { return fmt.Sprintf("pushing %s: %v", e.Ref, e.Err) }
func (e *PushError) Unwrap() error { return e.Err }

// Publisher executes a Plan against the registry through the container
// runtime.
type Publisher struct {
	Runtime string
	Runner  run.Runner
	Confirm Confirmer
	Log     *zap.SugaredLogger
}

// Publish presents the plan, asks for confirmation, and on an affirmative
// answer logs in once and pushes every destination in order. The first
// failure aborts the remainder. A declined gate is success with nothing
// pushed; the returned bool reports whether anything was published.
func (p *Publisher) Publish(plan *Plan, creds Credentials) (bool, error) {
	p.present(plan)

	ok, err := p.Confirm.Confirm(fmt.Sprintf("Push %d tags for %s?", len(plan.Destinations), plan.Source))
	if err != nil {
		return false, fmt.Errorf("publish confirmation: %w", err)
	}
	if !ok {
		p.Log.Infow("publish declined; registry untouched")
		return false, nil
	}

	if creds.present() {
		if err := p.login(creds); err != nil {
			return false, err
		}
	}

	for _, dest := range plan.Destinations {
		if err := p.push(plan.Source, dest); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (p *Publisher) present(plan *Plan) {
	pterm.DefaultSection.Println("Publish plan")
	data := pterm.TableData{{"Destination", "Source"}}
	for _, dest := range plan.Destinations {
		data = append(data, []string{dest.Ref(), plan.Source})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		// Rendering is presentation only; fall back to plain output.
		for _, dest := range plan.Destinations {
			fmt.Println(dest.Ref())
		}
	}
}

func (p *Publisher) login(creds Credentials) error {
	p.Log.Infow("logging in to registry", "user", creds.User)
	args := []string{"login", "--username", creds.User, "--password-stdin"}
	res, err := p.Runner.RunIn(strings.NewReader(creds.Token), p.Runtime, args...)
	if err != nil {
		return fmt.Errorf("registry login: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("registry login: %w", run.Fail(p.Runtime, args, res))
	}
	return nil
}

func (p *Publisher) push(source string, dest Destination) error {
	ref := dest.Ref()

	p.Log.Infow("tagging", "ref", ref)
	res, err := p.Runner.Run(p.Runtime, "tag", source, ref)
	if err != nil {
		return &PushError{Ref: ref, Err: err}
	}
	if !res.Success() {
		return &PushError{Ref: ref, Err: run.Fail(p.Runtime, []string{"tag", source, ref}, res)}
	}

	p.Log.Infow("pushing", "ref", ref)
	res, err = p.Runner.Run(p.Runtime, "push", ref)
	if err != nil {
		return &PushError{Ref: ref, Err: err}
	}
	if !res.Success() {
		return &PushError{Ref: ref, Err: run.Fail(p.Runtime, []string{"push", ref}, res)}
	}
	return nil
}
