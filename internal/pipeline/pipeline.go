// Package pipeline sequences the release stages: version resolution, build
// and test, containerization, smoke verification, and publish fan-out.
// Every stage is fail-fast; only the smoke stage owns a retry boundary.
package pipeline

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/datalust/seq-input-syslog/internal/config"
	"github.com/datalust/seq-input-syslog/internal/publish"
	"github.com/datalust/seq-input-syslog/internal/run"
	"github.com/datalust/seq-input-syslog/internal/smoke"
	"github.com/datalust/seq-input-syslog/internal/version"
)

// Builder is the build/test stage.
type Builder interface {
	BuildAndTest(version string) error
	BuildImage(version string) error
}

// Smoker is the smoke-test stage.
type Smoker interface {
	RunAll([]smoke.Case) error
}

// Publisher is the fan-out stage.
type Publisher interface {
	Publish(*publish.Plan, publish.Credentials) (bool, error)
}

// Run is the state of one pipeline invocation. The version fields are
// immutable once Execute has derived them.
type Run struct {
	CI  config.CI
	Log *zap.SugaredLogger

	Runner    run.Runner
	Build     Builder
	Smoke     Smoker
	Publisher Publisher

	// SourceImage is the locally built reference handed to the fan-out after
	// verification.
	SourceImage string
	Matrix      []smoke.Case
	Families    []string

	SkipPublish bool
}

// Execute drives the whole pipeline for the given short version. A declined
// or ineligible publish is success.
func (p *Run) Execute(shortVersion string) error {
	branch, err := p.branch()
	if err != nil {
		return err
	}

	resolved, err := version.Resolve(shortVersion, branch)
	if err != nil {
		return err
	}
	spec, err := version.Parse(resolved)
	if err != nil {
		return err
	}
	p.Log.Infow("resolved release version", "version", resolved, "branch", branch)

	if err := p.Build.BuildAndTest(resolved); err != nil {
		return err
	}
	if err := p.Build.BuildImage(resolved); err != nil {
		return err
	}

	if err := p.Smoke.RunAll(p.Matrix); err != nil {
		return err
	}
	p.Log.Infow("smoke tests passed", "cases", len(p.Matrix))

	return p.publish(spec)
}

func (p *Run) publish(spec version.Spec) error {
	if p.SkipPublish {
		p.Log.Infow("publish skipped by flag")
		return nil
	}
	if p.CI.IsCI && !p.CI.ShouldPublish(version.CanonicalBranch) {
		p.Log.Infow("publish not eligible for this CI build",
			"branch", p.CI.Branch, "pullRequest", p.CI.IsPullRequest)
		return nil
	}

	plan, err := publish.NewPlan(spec, p.SourceImage, p.Families)
	if err != nil {
		return err
	}

	creds := publish.Credentials{User: p.CI.RegistryUser, Token: p.CI.RegistryToken}
	published, err := p.Publisher.Publish(plan, creds)
	if err != nil {
		return err
	}
	if published {
		p.Log.Infow("release published", "version", spec.String(), "tags", len(plan.Destinations))
	}
	return nil
}

// branch prefers the CI-provided branch name and falls back to asking git.
func (p *Run) branch() (string, error) {
	if p.CI.Branch != "" {
		return p.CI.Branch, nil
	}
	res, err := p.Runner.Run("git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("determining branch: %w", err)
	}
	if !res.Success() {
		return "", fmt.Errorf("determining branch: %w", run.Fail("git", []string{"rev-parse", "--abbrev-ref", "HEAD"}, res))
	}
	return strings.TrimSpace(res.Stdout), nil
}
