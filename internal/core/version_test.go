package core

import (
	"encoding/json"
	"testing"
)

func TestReleaseChannelText(t *testing.T) {
	var c ReleaseChannel
	if err := json.Unmarshal([]byte(`"Beta"`), &c); err != nil || c != ChannelBeta {
		t.Errorf("unmarshal Beta: %v %v", c, err)
	}
	if err := json.Unmarshal([]byte(`"nightly"`), &c); err == nil {
		t.Error("unknown channel should fail")
	}
	if !ChannelAlpha.IsPrerelease() || ChannelRelease.IsPrerelease() || ChannelUnknown.IsPrerelease() {
		t.Error("IsPrerelease wrong")
	}
	if ChannelUnknown.Stability() != ChannelRelease {
		t.Error("unknown should rank as release")
	}
	if ChannelFromCurseForge(2) != ChannelBeta || ChannelFromCurseForge(9) != ChannelUnknown {
		t.Error("ChannelFromCurseForge mapping wrong")
	}
}

func TestNewerThan(t *testing.T) {
	tests := []struct {
		name string
		v    VersionDescriptor
		ref  PackRef
		want bool
	}{
		{"same id", VersionDescriptor{ID: "10", Ordinal: 12}, PackRef{VersionID: "10", Ordinal: 10}, false},
		{"higher ordinal", VersionDescriptor{ID: "11", Ordinal: 11}, PackRef{VersionID: "10", Ordinal: 10}, true},
		{"lower ordinal", VersionDescriptor{ID: "9", Ordinal: 9}, PackRef{VersionID: "10", Ordinal: 10}, false},
		{"semver names", VersionDescriptor{Name: "1.10.0"}, PackRef{VersionName: "1.9.2"}, true},
		{"older semver", VersionDescriptor{Name: "1.2.0"}, PackRef{VersionName: "1.9.2"}, false},
		{"same opaque name", VersionDescriptor{ID: "Build 42", Name: "Build 42"}, PackRef{VersionName: "Build 42"}, false},
		{"different opaque name", VersionDescriptor{ID: "Build 43", Name: "Build 43"}, PackRef{VersionName: "Build 42"}, true},
		{"opaque ids differ", VersionDescriptor{ID: "b", Name: "Latest"}, PackRef{VersionID: "a", VersionName: "Old"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.NewerThan(tt.ref); got != tt.want {
				t.Errorf("NewerThan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"All The Mods 9":  "AllTheMods9",
		"Sky-Factory 4!":  "SkyFactory4",
		"日本語":             "",
		"  spaced  out  ": "spacedout",
	}
	for in, want := range tests {
		if got := SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}
