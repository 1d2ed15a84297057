package buildenv

import (
	"errors"
	"os/exec"
)

// ErrNoRuntime is returned when neither podman nor docker is on PATH.
var ErrNoRuntime = errors.New("no container runtime found on PATH")

// DetectRuntime picks the container-runtime binary. An explicit override
// (usually the CONTAINER_RUNTIME env var, read once at startup) wins;
// otherwise podman is preferred over docker, matching what most CI hosts
// ship first.
func DetectRuntime(override string) (string, error) {
	if override != "" && override != "auto" {
		return override, nil
	}
	for _, candidate := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", ErrNoRuntime
}
