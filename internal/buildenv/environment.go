// Package buildenv provisions and tears down the isolated container
// environment the smoke tests run in: one network, a Seq instance, and the
// image under test wired to it.
package buildenv

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datalust/seq-input-syslog/internal/run"
)

// Transport selects the subject container's listener binding.
type Transport string

const (
	UDP Transport = "udp"
	TCP Transport = "tcp"
)

// Datagram reports whether the transport is datagram-oriented.
func (t Transport) Datagram() bool { return t == UDP }

// Reserved names. Only one environment may exist at a time; Start force-clears
// these before creating anything so a crashed prior attempt never wedges the
// next one.
const (
	NetworkName      = "seq-input-syslog-test"
	SeqContainer     = "squiflog-test-seq"
	SubjectContainer = "squiflog-test-input"

	SeqImage = "datalust/seq:latest"

	// SeqAPIPort is the host port the Seq HTTP API is published on.
	SeqAPIPort = 5342
	// SyslogPort is the host port the subject's listener is published on.
	SyslogPort = 514
)

const defaultSettle = 5 * time.Second

// SetupError reports a failed creation step during Start.
type SetupError struct {
	Step string
	Err  error
}

func (e *SetupError) Error() string { return fmt.Sprintf("environment setup: %s: %v", e.Step, e.Err) }
func (e *SetupError) Unwrap() error { return e.Err }

// TeardownError reports a removal failure that is not "already absent".
// These are fatal: if the runtime cannot remove our reserved names, retrying
// the smoke test cannot help.
type TeardownError struct {
	Resource string
	Err      error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("environment teardown: %s: %v", e.Resource, e.Err)
}
func (e *TeardownError) Unwrap() error { return e.Err }

// Manager owns the container-runtime state behind the reserved names. Not
// safe for concurrent use; the pipeline is strictly sequential.
type Manager struct {
	Runtime      string
	Runner       run.Runner
	SubjectImage string
	// Settle is how long Start waits after both containers are up before
	// handing control back. Zero means the default.
	Settle time.Duration
	Log    *zap.SugaredLogger
}

// Start clears any leftover resources, creates the network and both
// containers, and waits for the environment to settle.
func (m *Manager) Start(transport Transport) error {
	if err := m.Stop(); err != nil {
		return err
	}

	m.Log.Infow("creating test network", "network", NetworkName)
	if err := m.create("create network", "network", "create", NetworkName); err != nil {
		return err
	}

	m.Log.Infow("starting Seq", "container", SeqContainer, "image", SeqImage)
	if err := m.create("start seq",
		"run", "--detach",
		"--name", SeqContainer,
		"--network", NetworkName,
		"-e", "ACCEPT_EULA=Y",
		"-p", fmt.Sprintf("%d:80", SeqAPIPort),
		SeqImage,
	); err != nil {
		return err
	}

	binding := fmt.Sprintf("%d:514", SyslogPort)
	if transport.Datagram() {
		binding += "/udp"
	}
	m.Log.Infow("starting subject", "container", SubjectContainer, "image", m.SubjectImage, "transport", transport)
	if err := m.create("start subject",
		"run", "--detach",
		"--name", SubjectContainer,
		"--network", NetworkName,
		"-e", fmt.Sprintf("SEQ_ADDRESS=http://%s:5341", SeqContainer),
		"-e", fmt.Sprintf("SQUIFLOG_ADDRESS=%s://0.0.0.0:514", transport),
		"-e", "SQUIFLOG_ENABLE_DIAGNOSTICS=true",
		"-p", binding,
		m.SubjectImage,
	); err != nil {
		return err
	}

	settle := m.Settle
	if settle == 0 {
		settle = defaultSettle
	}
	time.Sleep(settle)
	return nil
}

// Stop force-removes both containers and the network. Resources that are
// already gone count as success; anything else is a fatal TeardownError.
func (m *Manager) Stop() error {
	for _, container := range []string{SubjectContainer, SeqContainer} {
		if err := m.remove(container, "rm", "--force", container); err != nil {
			return err
		}
	}
	return m.remove(NetworkName, "network", "rm", NetworkName)
}

// Logs returns the log output of both containers. Collection is diagnostic
// only and never gates the smoke test; failures come back as the text of the
// error so callers can just print whatever they get.
func (m *Manager) Logs() (seq, subject string) {
	return m.logsOf(SeqContainer), m.logsOf(SubjectContainer)
}

func (m *Manager) logsOf(container string) string {
	res, err := m.Runner.Run(m.Runtime, "logs", container)
	if err != nil {
		return fmt.Sprintf("(collecting %s logs: %v)", container, err)
	}
	if !res.Success() {
		return fmt.Sprintf("(collecting %s logs: exit code %d: %s)", container, res.ExitCode, res.Stderr)
	}
	return res.Stdout + res.Stderr
}

func (m *Manager) create(step string, args ...string) error {
	res, err := m.Runner.Run(m.Runtime, args...)
	if err != nil {
		return &SetupError{Step: step, Err: err}
	}
	if !res.Success() {
		return &SetupError{Step: step, Err: run.Fail(m.Runtime, args, res)}
	}
	return nil
}

func (m *Manager) remove(resource string, args ...string) error {
	res, err := m.Runner.Run(m.Runtime, args...)
	if err != nil {
		return &TeardownError{Resource: resource, Err: err}
	}
	if res.Success() || alreadyAbsent(res.Stderr) {
		return nil
	}
	return &TeardownError{Resource: resource, Err: run.Fail(m.Runtime, args, res)}
}

// alreadyAbsent matches the runtime's "it was never there" complaints, which
// are success for an idempotent teardown. Covers docker and podman phrasing.
func alreadyAbsent(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, marker := range []string{
		"no such container",
		"no such network",
		"not found",
		"does not exist",
	} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
