package update

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aayushdutt/packkeeper/internal/api"
	"github.com/aayushdutt/packkeeper/internal/core"
	"github.com/aayushdutt/packkeeper/internal/logging"
)

type curseForgeStub struct{ mods []api.CurseForgeMod }

func (s curseForgeStub) GetMods(context.Context, []int) ([]api.CurseForgeMod, error) {
	return s.mods, nil
}

type modrinthStub struct {
	projects []api.Project
	versions []api.ProjectVersion
}

func (s modrinthStub) GetProjects(context.Context, []string) ([]api.Project, error) {
	return s.projects, nil
}

func (s modrinthStub) GetVersions(context.Context, []string) ([]api.ProjectVersion, error) {
	return s.versions, nil
}

type modpackStub map[int]*api.PackManifest

func (s modpackStub) GetModpack(_ context.Context, id int) (*api.PackManifest, error) {
	if m, ok := s[id]; ok {
		return m, nil
	}
	return nil, api.ErrNotFound
}

type technicStub map[string]string

func (s technicStub) GetModpack(_ context.Context, slug string) (*api.TechnicModpack, error) {
	if v, ok := s[slug]; ok {
		return &api.TechnicModpack{Name: slug, Version: v}, nil
	}
	return nil, api.ErrPackNotFound
}

func TestCurseForgeAdapter(t *testing.T) {
	src := curseForgeStub{mods: []api.CurseForgeMod{{
		ID: 100,
		LatestFiles: []api.CurseForgeFile{
			{ID: 5001, ModID: 100, DisplayName: "1.1 beta", ReleaseType: 2},
			{ID: 5000, ModID: 100, DisplayName: "1.0", ReleaseType: 1},
		},
	}}}

	got, err := NewCurseForge(src, logging.Discard()).QueryLatest(context.Background(), []string{"100", "not-a-number"})
	require.NoError(t, err)
	require.Len(t, got["100"], 2)
	assert.Equal(t, int64(5001), got["100"][0].Ordinal)
	assert.Equal(t, core.ChannelBeta, got["100"][0].Channel)
	_, ok := got["not-a-number"]
	assert.False(t, ok)
}

func TestModrinthAdapterAnswersBySlug(t *testing.T) {
	published := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	src := modrinthStub{
		projects: []api.Project{
			{ID: "AANobbMI", Slug: "sodium-pack", Versions: []string{"v1"}},
			{ID: "empty", Slug: "empty", Versions: nil},
		},
		versions: []api.ProjectVersion{
			{ID: "v1", ProjectID: "AANobbMI", VersionNumber: "2.0.0", VersionType: "alpha", Published: published},
		},
	}

	got, err := NewModrinth(src, logging.Discard()).QueryLatest(context.Background(), []string{"sodium-pack", "empty"})
	require.NoError(t, err)
	require.Len(t, got["sodium-pack"], 1)
	v := got["sodium-pack"][0]
	assert.Equal(t, published.Unix(), v.Ordinal)
	assert.Equal(t, core.ChannelAlpha, v.Channel)

	empty, ok := got["empty"]
	assert.True(t, ok, "known project with no versions still answers")
	assert.Empty(t, empty)
}

func TestModrinthAdapterAnswersIDAndSlug(t *testing.T) {
	src := modrinthStub{
		projects: []api.Project{{ID: "AANobbMI", Slug: "sodium-pack", Versions: []string{"v1"}}},
		versions: []api.ProjectVersion{{ID: "v1", ProjectID: "AANobbMI", VersionNumber: "2.0.0", VersionType: "release"}},
	}

	got, err := NewModrinth(src, logging.Discard()).QueryLatest(context.Background(), []string{"AANobbMI", "sodium-pack"})
	require.NoError(t, err)
	require.Len(t, got["AANobbMI"], 1)
	require.Len(t, got["sodium-pack"], 1)
	assert.Equal(t, "v1", got["sodium-pack"][0].ID)
}

func TestModpacksOrdinals(t *testing.T) {
	src := modpackStub{95: {ID: 95, Versions: []api.PackVersion{
		{ID: 200, Name: "1.0", Type: "Release", Updated: 1000},
		{ID: 100, Name: "1.1", Type: "Beta", Updated: 2000},
	}}}
	ctx := context.Background()

	ftb, err := NewFTB(src, logging.Discard()).QueryLatest(ctx, []string{"95", "404"})
	require.NoError(t, err)
	mch, err := NewModpacksCh(src, logging.Discard()).QueryLatest(ctx, []string{"95"})
	require.NoError(t, err)

	best := func(vs []core.VersionDescriptor) string {
		return Policy{IncludePrerelease: true}.Select(vs, core.PackRef{}).Name
	}
	assert.Equal(t, "1.0", best(ftb["95"]), "ftb ranks by version id")
	assert.Equal(t, "1.1", best(mch["95"]), "modpacks.ch ranks by update time")

	_, ok := ftb["404"]
	assert.False(t, ok, "failed packs are left out")
}

func TestTechnicWithSemverRanker(t *testing.T) {
	inst := core.Instance{Name: "Tekkit", Pack: &core.PackRef{Platform: core.PlatformTechnic, ProjectID: "tekkit", VersionName: "1.2.9"}}
	gone := core.Instance{Name: "Gone", Pack: &core.PackRef{Platform: core.PlatformTechnic, ProjectID: "gone", VersionName: "1.0"}}
	inst.ID, gone.ID = [16]byte{1}, [16]byte{2}

	adapter := NewTechnic(technicStub{"tekkit": "1.2.10"}, logging.Discard())
	e := NewEngine(adapter, &fakeInstances{items: []core.Instance{inst, gone}}, fakeSettings{}, logging.Discard(), nil, WithRanker(SemverRanker{}))

	report := e.CheckForUpdates(context.Background())
	assert.Equal(t, 1, report.Updates)
	assert.Equal(t, 1, report.Missing)
	assert.True(t, e.HasUpdate(inst))
	assert.Nil(t, e.LatestVersion(gone.ID))
}

func TestSemverRanker(t *testing.T) {
	r := SemverRanker{}
	assert.True(t, r.Less(core.VersionDescriptor{Name: "1.2.9"}, core.VersionDescriptor{Name: "1.2.10"}))
	assert.False(t, r.Less(core.VersionDescriptor{Name: "2.0"}, core.VersionDescriptor{Name: "1.9"}))
	assert.True(t, r.Less(core.VersionDescriptor{Name: "a"}, core.VersionDescriptor{Name: "b"}))
}

func TestFanOutCollectsFailures(t *testing.T) {
	ids := []string{"1", "2", "3", "4", "5"}
	out, res := FanOut(context.Background(), ids, 2, func(_ context.Context, id string) ([]core.VersionDescriptor, error) {
		if id == "3" {
			return nil, errors.New("boom")
		}
		return []core.VersionDescriptor{{ID: id}}, nil
	})

	assert.Len(t, out, 4)
	assert.Equal(t, 4, res.Completed)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "3: boom")
}

func TestSchedulerChecksAllPlatforms(t *testing.T) {
	inst := modrinthInstance("p", core.ChannelRelease, 10)
	insts := &fakeInstances{items: []core.Instance{inst}}
	mr := &fakePlatform{name: core.PlatformModrinth, results: mixedCandidates()}
	cf := &fakePlatform{name: core.PlatformCurseForge}

	engines := []*Engine{newTestEngine(mr, insts, fakeSettings{}), newTestEngine(cf, insts, fakeSettings{})}
	s := NewScheduler(engines, 0, logging.Discard())

	reports := s.CheckAll(context.Background())
	require.Len(t, reports, 2)
	assert.Equal(t, core.PlatformModrinth, reports[0].Platform)
	assert.Equal(t, 0, reports[1].Checked)

	s.Start(context.Background())
	s.Stop()
	assert.EqualValues(t, 2, mr.calls.Load(), "Start runs once immediately")
}
