package buildenv

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datalust/seq-input-syslog/internal/run"
	"github.com/datalust/seq-input-syslog/internal/testutil"
)

func newManager(runner *testutil.FakeRunner) *Manager {
	return &Manager{
		Runtime:      "docker",
		Runner:       runner,
		SubjectImage: "seq-input-syslog-ci:latest",
		Settle:       time.Nanosecond,
		Log:          zap.NewNop().Sugar(),
	}
}

func TestStartSequence(t *testing.T) {
	runner := &testutil.FakeRunner{}
	m := newManager(runner)

	require.NoError(t, m.Start(UDP))

	lines := runner.CommandLines()
	require.Len(t, lines, 6)
	// Idempotent force-clear of the reserved names comes first.
	assert.Equal(t, "docker rm --force "+SubjectContainer, lines[0])
	assert.Equal(t, "docker rm --force "+SeqContainer, lines[1])
	assert.Equal(t, "docker network rm "+NetworkName, lines[2])
	assert.Equal(t, "docker network create "+NetworkName, lines[3])
	assert.Contains(t, lines[4], "--name "+SeqContainer)
	assert.Contains(t, lines[4], "ACCEPT_EULA=Y")
	assert.Contains(t, lines[4], "-p 5342:80")
	assert.Contains(t, lines[5], "--name "+SubjectContainer)
}

func TestStartSubjectBinding(t *testing.T) {
	tests := []struct {
		transport Transport
		binding   string
		address   string
	}{
		{UDP, "-p 514:514/udp", "SQUIFLOG_ADDRESS=udp://0.0.0.0:514"},
		{TCP, "-p 514:514", "SQUIFLOG_ADDRESS=tcp://0.0.0.0:514"},
	}
	for _, tc := range tests {
		t.Run(string(tc.transport), func(t *testing.T) {
			runner := &testutil.FakeRunner{}
			m := newManager(runner)
			require.NoError(t, m.Start(tc.transport))

			subject := runner.CommandLines()[5]
			assert.Contains(t, subject, tc.binding)
			if tc.transport == TCP {
				assert.NotContains(t, subject, "/udp")
			}
			assert.Contains(t, subject, tc.address)
			assert.Contains(t, subject, "SEQ_ADDRESS=http://"+SeqContainer+":5341")
		})
	}
}

func TestStartSetupFailure(t *testing.T) {
	runner := &testutil.FakeRunner{Responses: []testutil.Response{
		{Match: "network create", Result: run.Result{ExitCode: 1, Stderr: "port already allocated"}},
	}}
	m := newManager(runner)

	err := m.Start(UDP)
	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "create network", setupErr.Step)
}

func TestStopWhenNothingExists(t *testing.T) {
	runner := &testutil.FakeRunner{Responses: []testutil.Response{
		{Match: "rm --force", Result: run.Result{ExitCode: 1, Stderr: "Error: No such container"}},
		{Match: "network rm", Result: run.Result{ExitCode: 1, Stderr: "Error: network seq-input-syslog-test not found"}},
	}}
	m := newManager(runner)

	require.NoError(t, m.Stop())
	assert.Len(t, runner.Calls, 3)
}

func TestStopFailurePropagates(t *testing.T) {
	runner := &testutil.FakeRunner{Responses: []testutil.Response{
		{Match: "rm --force " + SubjectContainer, Result: run.Result{ExitCode: 1, Stderr: "permission denied"}},
	}}
	m := newManager(runner)

	err := m.Stop()
	var teardownErr *TeardownError
	require.ErrorAs(t, err, &teardownErr)
	assert.Equal(t, SubjectContainer, teardownErr.Resource)
	// The first fatal removal aborts teardown.
	assert.Len(t, runner.Calls, 1)
}

func TestLogsNeverFail(t *testing.T) {
	runner := &testutil.FakeRunner{Responses: []testutil.Response{
		{Match: "logs " + SeqContainer, Result: run.Result{Stdout: "seq says hi"}},
		{Match: "logs " + SubjectContainer, Result: run.Result{ExitCode: 1, Stderr: "gone"}},
	}}
	m := newManager(runner)

	seq, subject := m.Logs()
	assert.Equal(t, "seq says hi", seq)
	assert.True(t, strings.Contains(subject, "exit code 1"))
}

func TestDetectRuntimeOverride(t *testing.T) {
	rt, err := DetectRuntime("docker")
	require.NoError(t, err)
	assert.Equal(t, "docker", rt)
}
