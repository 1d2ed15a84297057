// Package version derives the final release version from the short version
// passed on the command line and the source-control branch the build runs on.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CanonicalBranch is the only branch that releases unsuffixed versions.
const CanonicalBranch = "main"

// maximum length of the branch-derived prerelease suffix.
const suffixLen = 10

// Spec is a parsed release version used to derive publish tags.
type Spec struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string
}

func (s Spec) String() string {
	v := fmt.Sprintf("%d.%d.%d", s.Major, s.Minor, s.Patch)
	if s.Prerelease != "" {
		v += "-" + s.Prerelease
	}
	return v
}

// Parse validates a version string. At least major.minor must be present;
// anything less is a configuration error that aborts the pipeline before any
// build work starts.
func Parse(v string) (Spec, error) {
	if strings.Count(v, ".") < 1 {
		return Spec{}, fmt.Errorf("version %q: need at least major.minor", v)
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return Spec{}, fmt.Errorf("version %q: %w", v, err)
	}
	return Spec{
		Major:      parsed.Major(),
		Minor:      parsed.Minor(),
		Patch:      parsed.Patch(),
		Prerelease: parsed.Prerelease(),
	}, nil
}

// Resolve turns the short version into the final version string. On the
// canonical branch the short version passes through unchanged; every other
// branch gets a suffix derived from its name.
func Resolve(short, branch string) (string, error) {
	if _, err := Parse(short); err != nil {
		return "", err
	}
	if branch == CanonicalBranch {
		return short, nil
	}
	suffix := BranchSuffix(branch)
	if suffix == "" {
		return short, nil
	}
	return short + "-" + suffix, nil
}

// BranchSuffix derives a tag-safe prerelease suffix from a branch name:
// at most the first 10 characters, "/" and "+" replaced with "-", trailing
// "-" trimmed.
func BranchSuffix(branch string) string {
	if len(branch) > suffixLen {
		branch = branch[:suffixLen]
	}
	branch = strings.ReplaceAll(branch, "/", "-")
	branch = strings.ReplaceAll(branch, "+", "-")
	return strings.TrimRight(branch, "-")
}
