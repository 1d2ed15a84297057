// Package config snapshots the CI context once at startup so pipeline stages
// never read ambient environment state themselves.
package config

import "os"

// Env var names consumed by the pipeline.
const (
	EnvCI            = "CI"
	EnvBranch        = "CI_BRANCH"
	EnvPullRequest   = "CI_PULL_REQUEST"
	EnvRegistryUser  = "DOCKER_USER"
	EnvRegistryToken = "DOCKER_PASS"
)

// CI describes the build context the pipeline runs in. Computed once and
// passed by value into every stage.
type CI struct {
	IsCI          bool
	IsPullRequest bool
	Branch        string

	RegistryUser  string
	RegistryToken string
}

// FromEnv reads the CI context from the process environment.
func FromEnv() CI {
	return CI{
		IsCI:          os.Getenv(EnvCI) != "",
		IsPullRequest: os.Getenv(EnvPullRequest) != "",
		Branch:        os.Getenv(EnvBranch),
		RegistryUser:  os.Getenv(EnvRegistryUser),
		RegistryToken: os.Getenv(EnvRegistryToken),
	}
}

// HasCredentials reports whether registry credentials were supplied.
func (c CI) HasCredentials() bool {
	return c.RegistryUser != "" && c.RegistryToken != ""
}

// ShouldPublish is the publish-eligibility policy: only CI builds of the
// canonical branch that are not pull requests push images automatically.
func (c CI) ShouldPublish(canonicalBranch string) bool {
	return c.IsCI && !c.IsPullRequest && c.Branch == canonicalBranch
}
