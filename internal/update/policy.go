package update

import (
	"strings"

	"github.com/aayushdutt/packkeeper/internal/core"
)

// Policy decides which candidate version an instance is offered
type Policy struct {
	IncludePrerelease bool
	Disabled          map[string]bool // version ids never offered
	Ranker            Ranker
}

// Select returns the highest ranked eligible candidate, or nil.
//
// An instance on an alpha or beta build only sees release candidates unless
// pre-releases are opted into. Instances on release builds see everything.
func (p Policy) Select(candidates []core.VersionDescriptor, current core.PackRef) *core.VersionDescriptor {
	ranker := p.Ranker
	if ranker == nil {
		ranker = DefaultRanker{}
	}
	releasesOnly := !p.IncludePrerelease && current.Channel.IsPrerelease()

	var best *core.VersionDescriptor
	for i := range candidates {
		c := candidates[i]
		if p.Disabled[c.ID] {
			continue
		}
		if releasesOnly && c.Channel.Stability() != core.ChannelRelease {
			continue
		}
		if best == nil || ranker.Less(*best, c) {
			best = &c
		}
	}
	return best
}

// DefaultRanker orders by ordinal, then publish time, then version name
type DefaultRanker struct{}

func (DefaultRanker) Less(a, b core.VersionDescriptor) bool {
	if a.Ordinal != b.Ordinal {
		return a.Ordinal < b.Ordinal
	}
	if !a.Published.Equal(b.Published) {
		return a.Published.Before(b.Published)
	}
	return SemverRanker{}.Less(a, b)
}

// SemverRanker orders by semantic version of the name. Names that do not parse
// fall back to a plain string comparison.
type SemverRanker struct{}

func (SemverRanker) Less(a, b core.VersionDescriptor) bool {
	if cmp, ok := core.CompareVersionNames(a.Name, b.Name); ok {
		return cmp < 0
	}
	return strings.Compare(a.Name, b.Name) < 0
}
