// Package build compiles and unit-tests the daemon for every release
// platform and produces the container image the smoke tests run against.
// Nothing here retries: compile and test failures are deterministic.
package build

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/datalust/seq-input-syslog/internal/run"
)

// Image is the local reference the freshly built image is tagged with. The
// smoke test stage validates exactly this reference before it may be
// published anywhere.
const Image = "seq-input-syslog-ci:latest"

// Platform is a cross-compilation target.
type Platform struct {
	OS   string
	Arch string
}

func (p Platform) String() string { return p.OS + "/" + p.Arch }

// ReleasePlatforms are the architectures the published image supports.
var ReleasePlatforms = []Platform{
	{OS: "linux", Arch: "amd64"},
	{OS: "linux", Arch: "arm64"},
}

// Driver runs the fail-fast build stage.
type Driver struct {
	Runner  run.Runner
	Runtime string
	// Package is the main package of the daemon. Defaults to
	// ./cmd/seq-input-syslog.
	Package string
	Log     *zap.SugaredLogger
}

func (d *Driver) mainPackage() string {
	if d.Package != "" {
		return d.Package
	}
	return "./cmd/seq-input-syslog"
}

// BinaryPath is where the cross-compiled binary for a platform lands.
func BinaryPath(p Platform) string {
	return filepath.Join("bin", p.OS+"_"+p.Arch, "seq-input-syslog")
}

// BuildAndTest cross-compiles for every release platform and runs the unit
// test suite once on the native platform. Cross-compiled binaries are
// build-verified only; their tests cannot run without emulation.
func (d *Driver) BuildAndTest(version string) error {
	for _, platform := range ReleasePlatforms {
		if err := d.compile(platform, version); err != nil {
			return err
		}
	}
	return d.test()
}

func (d *Driver) compile(p Platform, version string) error {
	d.Log.Infow("compiling", "platform", p.String(), "version", version)
	env := map[string]string{
		"CGO_ENABLED": "0",
		"GOOS":        p.OS,
		"GOARCH":      p.Arch,
	}
	ldflags := fmt.Sprintf("-w -s -X 'main.version=%s'", version)
	args := []string{
		"build", "--ldflags", ldflags, "--trimpath",
		"-o", BinaryPath(p), d.mainPackage(),
	}
	res, err := d.Runner.RunEnv(env, "go", args...)
	if err != nil {
		return fmt.Errorf("compiling for %s: %w", p, err)
	}
	if !res.Success() {
		return fmt.Errorf("compiling for %s: %w", p, run.Fail("go", args, res))
	}
	return nil
}

func (d *Driver) test() error {
	d.Log.Infow("running unit tests")
	args := []string{"test", "-count=1", "./..."}
	res, err := d.Runner.RunEnv(map[string]string{"CGO_ENABLED": "1"}, "go", args...)
	if err != nil {
		return fmt.Errorf("unit tests: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("unit tests: %w", run.Fail("go", args, res))
	}
	return nil
}

// BuildImage assembles the container image from a clean cache so a stale
// layer can never leak into a release.
func (d *Driver) BuildImage(version string) error {
	d.Log.Infow("building container image", "image", Image, "version", version)
	args := []string{
		"build", "--pull", "--no-cache",
		"--build-arg", "VERSION=" + version,
		"-t", Image,
		".",
	}
	res, err := d.Runner.Run(d.Runtime, args...)
	if err != nil {
		return fmt.Errorf("building image: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("building image: %w", run.Fail(d.Runtime, args, res))
	}
	return nil
}
