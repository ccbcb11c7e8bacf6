// Package core version handling.
// Release channels, platform identifiers and the descriptors update checks publish.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Platform identifies a third-party modpack platform
type Platform string

const (
	PlatformCurseForge Platform = "curseforge"
	PlatformFTB        Platform = "ftb"
	PlatformModrinth   Platform = "modrinth"
	PlatformTechnic    Platform = "technic"
	PlatformModpacksCh Platform = "modpacksch"
)

// Platforms lists every supported platform in a stable order
var Platforms = []Platform{
	PlatformCurseForge,
	PlatformFTB,
	PlatformModrinth,
	PlatformTechnic,
	PlatformModpacksCh,
}

// Valid reports whether p is a known platform
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// ReleaseChannel classifies a build. Higher values are more stable.
type ReleaseChannel int

const (
	ChannelUnknown ReleaseChannel = iota
	ChannelAlpha
	ChannelBeta
	ChannelRelease
)

// ParseReleaseChannel accepts release, beta and alpha in any case
func ParseReleaseChannel(s string) (ReleaseChannel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "release":
		return ChannelRelease, nil
	case "beta":
		return ChannelBeta, nil
	case "alpha":
		return ChannelAlpha, nil
	case "":
		return ChannelUnknown, nil
	default:
		return ChannelUnknown, fmt.Errorf("unknown release channel %q", s)
	}
}

// ChannelFromCurseForge maps CurseForge's numeric releaseType (1 release, 2 beta, 3 alpha)
func ChannelFromCurseForge(releaseType int) ReleaseChannel {
	switch releaseType {
	case 1:
		return ChannelRelease
	case 2:
		return ChannelBeta
	case 3:
		return ChannelAlpha
	default:
		return ChannelUnknown
	}
}

// Stability returns the channel's rank, treating unknown as release
func (c ReleaseChannel) Stability() ReleaseChannel {
	if c == ChannelUnknown {
		return ChannelRelease
	}
	return c
}

// IsPrerelease reports whether c is alpha or beta
func (c ReleaseChannel) IsPrerelease() bool {
	return c == ChannelAlpha || c == ChannelBeta
}

func (c ReleaseChannel) String() string {
	switch c {
	case ChannelRelease:
		return "release"
	case ChannelBeta:
		return "beta"
	case ChannelAlpha:
		return "alpha"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler
func (c ReleaseChannel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *ReleaseChannel) UnmarshalText(text []byte) error {
	parsed, err := ParseReleaseChannel(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// VersionDescriptor is the newest known build of a pack on one platform.
// Values are immutable once published; replace them, never edit them.
type VersionDescriptor struct {
	Platform  Platform       `json:"platform"`
	ProjectID string         `json:"projectId"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Ordinal   int64          `json:"ordinal"` // Platform ranking key; higher is newer
	Channel   ReleaseChannel `json:"channel"`
	Published time.Time      `json:"published"`
}

// NewerThan reports whether v is an update for the installed version in ref
func (v VersionDescriptor) NewerThan(ref PackRef) bool {
	if v.ID != "" && v.ID == ref.VersionID {
		return false
	}
	if v.Ordinal != 0 && ref.Ordinal != 0 {
		return v.Ordinal > ref.Ordinal
	}
	if v.Name != "" && v.Name == ref.VersionName {
		return false
	}
	if cmp, ok := CompareVersionNames(v.Name, ref.VersionName); ok {
		return cmp > 0
	}
	return v.ID != ref.VersionID
}

// CompareVersionNames compares two names as semantic versions.
// ok is false if either side does not parse.
func CompareVersionNames(a, b string) (cmp int, ok bool) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, false
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, false
	}
	return va.Compare(vb), true
}
