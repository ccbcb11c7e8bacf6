package update

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/aayushdutt/packkeeper/internal/api"
	"github.com/aayushdutt/packkeeper/internal/core"
)

// CurseForgeSource is the part of api.CurseForgeClient the adapter needs
type CurseForgeSource interface {
	GetMods(ctx context.Context, ids []int) ([]api.CurseForgeMod, error)
}

// CurseForge resolves every pack with one batch request. Candidates are each
// mod's latest files, ranked by file id.
type CurseForge struct {
	src    CurseForgeSource
	logger *slog.Logger
}

func NewCurseForge(src CurseForgeSource, logger *slog.Logger) *CurseForge {
	return &CurseForge{src: src, logger: logger}
}

func (c *CurseForge) Name() core.Platform { return core.PlatformCurseForge }

func (c *CurseForge) QueryLatest(ctx context.Context, ids []string) (map[string][]core.VersionDescriptor, error) {
	modIDs := make([]int, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			c.logger.Warn("skipping non-numeric curseforge project id", slog.String("project", id))
			continue
		}
		modIDs = append(modIDs, n)
	}
	if len(modIDs) == 0 {
		return map[string][]core.VersionDescriptor{}, nil
	}

	mods, err := c.src.GetMods(ctx, modIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]core.VersionDescriptor, len(mods))
	for _, mod := range mods {
		projectID := strconv.Itoa(mod.ID)
		versions := make([]core.VersionDescriptor, 0, len(mod.LatestFiles))
		for _, f := range mod.LatestFiles {
			if f.ModID != 0 && f.ModID != mod.ID {
				continue
			}
			versions = append(versions, core.VersionDescriptor{
				Platform:  core.PlatformCurseForge,
				ProjectID: projectID,
				ID:        strconv.Itoa(f.ID),
				Name:      f.DisplayName,
				Ordinal:   int64(f.ID),
				Channel:   core.ChannelFromCurseForge(f.ReleaseType),
				Published: f.FileDate,
			})
		}
		out[projectID] = versions
	}
	return out, nil
}

// ModrinthSource is the part of api.ModrinthClient the adapter needs
type ModrinthSource interface {
	GetProjects(ctx context.Context, ids []string) ([]api.Project, error)
	GetVersions(ctx context.Context, ids []string) ([]api.ProjectVersion, error)
}

// Modrinth resolves projects and then their versions in batches. Versions are
// ranked by publish time.
type Modrinth struct {
	src    ModrinthSource
	logger *slog.Logger
}

func NewModrinth(src ModrinthSource, logger *slog.Logger) *Modrinth {
	return &Modrinth{src: src, logger: logger}
}

func (m *Modrinth) Name() core.Platform { return core.PlatformModrinth }

func (m *Modrinth) QueryLatest(ctx context.Context, ids []string) (map[string][]core.VersionDescriptor, error) {
	projects, err := m.src.GetProjects(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Instances may reference a project by id or by slug; answer under every
	// key that was asked for.
	requested := toSet(ids)
	keysOf := make(map[string][]string, len(projects))
	out := make(map[string][]core.VersionDescriptor, len(projects))
	var versionIDs []string
	for _, p := range projects {
		var keys []string
		if requested[p.ID] {
			keys = append(keys, p.ID)
		}
		if p.Slug != "" && p.Slug != p.ID && requested[p.Slug] {
			keys = append(keys, p.Slug)
		}
		if len(keys) == 0 {
			keys = []string{p.ID}
		}
		keysOf[p.ID] = keys
		for _, key := range keys {
			out[key] = []core.VersionDescriptor{}
		}
		versionIDs = append(versionIDs, p.Versions...)
	}
	if len(versionIDs) == 0 {
		return out, nil
	}

	versions, err := m.src.GetVersions(ctx, versionIDs)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		keys, ok := keysOf[v.ProjectID]
		if !ok {
			continue
		}
		channel, err := core.ParseReleaseChannel(v.VersionType)
		if err != nil {
			m.logger.Debug("unknown modrinth version type", slog.String("type", v.VersionType))
		}
		desc := core.VersionDescriptor{
			Platform:  core.PlatformModrinth,
			ProjectID: v.ProjectID,
			ID:        v.ID,
			Name:      v.VersionNumber,
			Ordinal:   v.Published.Unix(),
			Channel:   channel,
			Published: v.Published,
		}
		for _, key := range keys {
			out[key] = append(out[key], desc)
		}
	}
	return out, nil
}

// ModpackSource is the part of api.ModpacksChClient the adapter needs
type ModpackSource interface {
	GetModpack(ctx context.Context, id int) (*api.PackManifest, error)
}

// Modpacks serves both FTB and modpacks.ch, which share a manifest format but
// rank versions differently: FTB by version id, modpacks.ch by update time.
type Modpacks struct {
	platform core.Platform
	src      ModpackSource
	ordinal  func(api.PackVersion) int64
	workers  int
	logger   *slog.Logger
}

func NewFTB(src ModpackSource, logger *slog.Logger) *Modpacks {
	return &Modpacks{
		platform: core.PlatformFTB,
		src:      src,
		ordinal:  func(v api.PackVersion) int64 { return int64(v.ID) },
		workers:  DefaultWorkers,
		logger:   logger,
	}
}

func NewModpacksCh(src ModpackSource, logger *slog.Logger) *Modpacks {
	return &Modpacks{
		platform: core.PlatformModpacksCh,
		src:      src,
		ordinal:  func(v api.PackVersion) int64 { return v.Updated },
		workers:  DefaultWorkers,
		logger:   logger,
	}
}

func (m *Modpacks) Name() core.Platform { return m.platform }

func (m *Modpacks) QueryLatest(ctx context.Context, ids []string) (map[string][]core.VersionDescriptor, error) {
	out, res := FanOut(ctx, ids, m.workers, func(ctx context.Context, id string) ([]core.VersionDescriptor, error) {
		n, err := strconv.Atoi(id)
		if err != nil {
			return nil, err
		}
		manifest, err := m.src.GetModpack(ctx, n)
		if err != nil {
			return nil, err
		}

		versions := make([]core.VersionDescriptor, 0, len(manifest.Versions))
		for _, v := range manifest.Versions {
			channel, _ := core.ParseReleaseChannel(v.Type)
			versions = append(versions, core.VersionDescriptor{
				Platform:  m.platform,
				ProjectID: id,
				ID:        strconv.Itoa(v.ID),
				Name:      v.Name,
				Ordinal:   m.ordinal(v),
				Channel:   channel,
				Published: time.Unix(v.Updated, 0),
			})
		}
		return versions, nil
	})
	logFailures(m.logger, res)
	return out, nil
}

// TechnicSource is the part of api.TechnicClient the adapter needs
type TechnicSource interface {
	GetModpack(ctx context.Context, slug string) (*api.TechnicModpack, error)
}

// Technic offers the pack's recommended build as its only candidate. Builds
// are plain version strings, so engines for it use SemverRanker.
type Technic struct {
	src     TechnicSource
	workers int
	logger  *slog.Logger
}

func NewTechnic(src TechnicSource, logger *slog.Logger) *Technic {
	return &Technic{src: src, workers: DefaultWorkers, logger: logger}
}

func (t *Technic) Name() core.Platform { return core.PlatformTechnic }

func (t *Technic) QueryLatest(ctx context.Context, ids []string) (map[string][]core.VersionDescriptor, error) {
	out, res := FanOut(ctx, ids, t.workers, func(ctx context.Context, slug string) ([]core.VersionDescriptor, error) {
		pack, err := t.src.GetModpack(ctx, slug)
		if errors.Is(err, api.ErrPackNotFound) {
			t.logger.Error("technic pack no longer exists", slog.String("pack", slug))
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		if pack.Version == "" {
			return []core.VersionDescriptor{}, nil
		}
		return []core.VersionDescriptor{{
			Platform:  core.PlatformTechnic,
			ProjectID: slug,
			ID:        pack.Version,
			Name:      pack.Version,
			Channel:   core.ChannelRelease,
		}}, nil
	})
	logFailures(t.logger, res)
	return out, nil
}
