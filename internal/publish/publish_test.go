package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datalust/seq-input-syslog/internal/run"
	"github.com/datalust/seq-input-syslog/internal/testutil"
	"github.com/datalust/seq-input-syslog/internal/version"
)

const sourceImage = "seq-input-syslog-ci:latest"

func TestPlanTags(t *testing.T) {
	plan, err := NewPlan(version.Spec{Major: 2, Minor: 5, Patch: 1}, sourceImage, []string{"datalust/seq-input-syslog"})
	require.NoError(t, err)

	var refs []string
	for _, d := range plan.Destinations {
		refs = append(refs, d.Ref())
	}
	assert.Equal(t, []string{
		"datalust/seq-input-syslog:latest",
		"datalust/seq-input-syslog:2",
		"datalust/seq-input-syslog:2.5",
		"datalust/seq-input-syslog:2.5.1",
	}, refs)
}

func TestPlanMultipleFamilies(t *testing.T) {
	plan, err := NewPlan(version.Spec{Major: 3}, sourceImage, DefaultFamilies)
	require.NoError(t, err)

	require.Len(t, plan.Destinations, 8)
	assert.Equal(t, "datalust/seq-input-syslog:latest", plan.Destinations[0].Ref())
	assert.Equal(t, "datalust/squiflog:latest", plan.Destinations[4].Ref())
}

func TestPlanPrerelease(t *testing.T) {
	spec := version.Spec{Major: 3, Minor: 1, Prerelease: "feature-so"}
	plan, err := NewPlan(spec, sourceImage, []string{"datalust/squiflog"})
	require.NoError(t, err)

	assert.Equal(t, "datalust/squiflog:3.1.0-feature-so", plan.Destinations[3].Ref())
}

func TestPlanRejectsBadFamily(t *testing.T) {
	_, err := NewPlan(version.Spec{Major: 1}, sourceImage, []string{"Not A Repo!!"})
	require.Error(t, err)
}

func newPublisher(runner *testutil.FakeRunner, confirm Confirmer) *Publisher {
	return &Publisher{
		Runtime: "docker",
		Runner:  runner,
		Confirm: confirm,
		Log:     zap.NewNop().Sugar(),
	}
}

func mustPlan(t *testing.T) *Plan {
	t.Helper()
	plan, err := NewPlan(version.Spec{Major: 2, Minor: 5, Patch: 1}, sourceImage, []string{"datalust/seq-input-syslog"})
	require.NoError(t, err)
	return plan
}

func TestPublishDeclined(t *testing.T) {
	runner := &testutil.FakeRunner{}
	p := newPublisher(runner, Decline{})

	published, err := p.Publish(mustPlan(t), Credentials{User: "u", Token: "t"})
	require.NoError(t, err)
	assert.False(t, published)
	assert.Empty(t, runner.Calls, "registry state must stay untouched on decline")
}

func TestPublishFanOut(t *testing.T) {
	runner := &testutil.FakeRunner{}
	p := newPublisher(runner, Accept{})

	published, err := p.Publish(mustPlan(t), Credentials{User: "u", Token: "t"})
	require.NoError(t, err)
	assert.True(t, published)

	lines := runner.CommandLines()
	require.Len(t, lines, 9)
	assert.Contains(t, lines[0], "login")
	assert.Equal(t, "docker tag "+sourceImage+" datalust/seq-input-syslog:latest", lines[1])
	assert.Equal(t, "docker push datalust/seq-input-syslog:latest", lines[2])
	assert.Equal(t, "docker push datalust/seq-input-syslog:2.5.1", lines[8])
	assert.Equal(t, 1, runner.CountMatching("login"))
}

func TestPublishWithoutCredentialsSkipsLogin(t *testing.T) {
	runner := &testutil.FakeRunner{}
	p := newPublisher(runner, Accept{})

	_, err := p.Publish(mustPlan(t), Credentials{})
	require.NoError(t, err)
	assert.Zero(t, runner.CountMatching("login"))
}

func TestLoginFailureAbortsBeforeAnyPush(t *testing.T) {
	runner := &testutil.FakeRunner{Responses: []testutil.Response{
		{Match: "login", Result: run.Result{ExitCode: 1, Stderr: "unauthorized"}},
	}}
	p := newPublisher(runner, Accept{})

	_, err := p.Publish(mustPlan(t), Credentials{User: "u", Token: "t"})
	require.Error(t, err)
	assert.Zero(t, runner.CountMatching("push"))
}

func TestPushFailureAbortsRemainder(t *testing.T) {
	runner := &testutil.FakeRunner{Responses: []testutil.Response{
		{Match: "push datalust/seq-input-syslog:2", Result: run.Result{ExitCode: 1, Stderr: "denied"}},
	}}
	p := newPublisher(runner, Accept{})

	_, err := p.Publish(mustPlan(t), Credentials{})

	var pushErr *PushError
	require.ErrorAs(t, err, &pushErr)
	assert.Equal(t, "datalust/seq-input-syslog:2", pushErr.Ref)
	// latest was pushed, 2 failed, nothing after was attempted.
	assert.Equal(t, 2, runner.CountMatching("push "))
}

func TestConfirmerDefaults(t *testing.T) {
	ok, err := Decline{}.Confirm("push?")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Accept{}.Confirm("push?")
	require.NoError(t, err)
	assert.True(t, ok)
}
