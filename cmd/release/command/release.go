package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/datalust/seq-input-syslog/internal/build"
	"github.com/datalust/seq-input-syslog/internal/buildenv"
	"github.com/datalust/seq-input-syslog/internal/config"
	"github.com/datalust/seq-input-syslog/internal/pipeline"
	"github.com/datalust/seq-input-syslog/internal/publish"
	"github.com/datalust/seq-input-syslog/internal/run"
	"github.com/datalust/seq-input-syslog/internal/smoke"
)

// ErrInvalidArgs is returned on argument validation failures.
var ErrInvalidArgs = errors.New("arguments invalid")

const (
	releaseUse   = "release version [--skip-publish]"
	releaseShort = "build, verify and publish the seq-input-syslog image"
	releaseLong  = "Builds the daemon for every release platform, packages it as a container image, " +
		"smoke-tests the image against a live Seq instance and fans the verified image out to the " +
		"configured registries. The version argument is the short version, e.g. 1.2.3; " +
		"non-canonical branches get a branch-derived suffix."

	skipPublishUse = "Stop after the smoke tests; never touch registry state."
	runtimeUse     = "Container runtime binary to use. Defaults to $CONTAINER_RUNTIME, else auto-detection."
)

// Release is the single entry point of the pipeline.
type Release struct {
	ShortVersion     string
	SkipPublish      bool
	ContainerRuntime string
}

func (r *Release) Complete(args []string) error {
	switch {
	case len(args) != 1:
		return fmt.Errorf("%w: got %v positional args, need exactly one version argument", ErrInvalidArgs, len(args))
	case args[0] == "":
		return fmt.Errorf("%w: version argument empty", ErrInvalidArgs)
	}
	r.ShortVersion = args[0]

	return nil
}

func (r *Release) Run(cmd *cobra.Command) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	log := logger.Sugar()

	cfg := config.FromEnv()

	runtimeOverride := r.ContainerRuntime
	if runtimeOverride == "" {
		runtimeOverride = os.Getenv("CONTAINER_RUNTIME")
	}
	runtime, err := buildenv.DetectRuntime(runtimeOverride)
	if err != nil {
		return err
	}
	log.Infow("using container runtime", "runtime", runtime)

	runner := run.Exec{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}

	env := &buildenv.Manager{
		Runtime:      runtime,
		Runner:       runner,
		SubjectImage: build.Image,
		Log:          log,
	}

	p := &pipeline.Run{
		CI:     cfg,
		Log:    log,
		Runner: runner,
		Build: &build.Driver{
			Runner:  runner,
			Runtime: runtime,
			Log:     log,
		},
		Smoke: &smoke.Runner{
			Env:      env,
			Driver:   smoke.NetDriver{Addr: fmt.Sprintf("127.0.0.1:%d", buildenv.SyslogPort)},
			Verifier: &smoke.SeqClient{BaseURL: fmt.Sprintf("http://localhost:%d", buildenv.SeqAPIPort)},
			Log:      log,
		},
		Publisher: &publish.Publisher{
			Runtime: runtime,
			Runner:  runner,
			Confirm: confirmer(cfg, cmd.InOrStdin()),
			Log:     log,
		},
		SourceImage: build.Image,
		Matrix:      smoke.DefaultMatrix,
		Families:    publish.DefaultFamilies,
		SkipPublish: r.SkipPublish,
	}

	return p.Execute(r.ShortVersion)
}

// confirmer picks the publish gate: CI builds that reach the publish stage
// have already passed the should-publish policy, interactive runs get a real
// prompt, and everything else defaults to decline.
func confirmer(cfg config.CI, in io.Reader) publish.Confirmer {
	if cfg.IsCI {
		return publish.Accept{}
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return publish.Terminal{}
	}
	return publish.Decline{}
}

func (r *Release) CobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          releaseUse,
		Short:        releaseShort,
		Long:         releaseLong,
		SilenceUsage: true,
	}
	f := cmd.Flags()
	f.BoolVar(&r.SkipPublish, "skip-publish", false, skipPublishUse)
	f.StringVar(&r.ContainerRuntime, "container-runtime", "", runtimeUse)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := r.Complete(args); err != nil {
			return err
		}
		return r.Run(cmd)
	}

	return cmd
}
