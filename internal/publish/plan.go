// Package publish computes the destination tag set for a release and fans
// the verified image out to every registry destination, behind an explicit
// confirmation gate.
package publish

import (
	"fmt"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/datalust/seq-input-syslog/internal/version"
)

// DefaultFamilies are the repositories each release is published under. The
// squiflog name is the pre-rename family and keeps existing deployments
// pulling updates.
var DefaultFamilies = []string{
	"datalust/seq-input-syslog",
	"datalust/squiflog",
}

// Destination is a single tag to be pushed.
type Destination struct {
	Family string
	Tag    string
}

// Ref is the full image reference for this destination.
func (d Destination) Ref() string { return d.Family + ":" + d.Tag }

// Plan is the full fan-out for one release: every destination tag, grouped
// by family, in push order. Computed once, consumed exactly once.
type Plan struct {
	Source       string
	Destinations []Destination
}

// NewPlan expands the version into the tag set {latest, M, M.m, M.m.p[-pre]}
// per image family and validates every resulting reference before anything
// touches registry state.
func NewPlan(spec version.Spec, source string, families []string) (*Plan, error) {
	if _, err := name.ParseReference(source); err != nil {
		return nil, fmt.Errorf("source image %q: %w", source, err)
	}

	plan := &Plan{Source: source}
	for _, family := range families {
		for _, tag := range Tags(spec) {
			d := Destination{Family: family, Tag: tag}
			if _, err := name.NewTag(d.Ref()); err != nil {
				return nil, fmt.Errorf("destination %q: %w", d.Ref(), err)
			}
			plan.Destinations = append(plan.Destinations, d)
		}
	}
	return plan, nil
}

// Tags lists the tag set for one family, most generic first.
func Tags(spec version.Spec) []string {
	return []string{
		"latest",
		fmt.Sprintf("%d", spec.Major),
		fmt.Sprintf("%d.%d", spec.Major, spec.Minor),
		spec.String(),
	}
}
