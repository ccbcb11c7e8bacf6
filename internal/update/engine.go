// Package update checks modpack platforms for newer versions of installed packs.
//
// One Engine runs per platform. Each instance gets a lazily created slot holding
// the best known version for it; consumers subscribe to a slot and never trigger
// network I/O themselves.
package update

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"golang.org/x/sync/singleflight"

	"github.com/aayushdutt/packkeeper/internal/core"
	"github.com/aayushdutt/packkeeper/internal/logging"
	"github.com/aayushdutt/packkeeper/internal/observable"
)

// Platform resolves the available versions for a set of project ids.
// Ids missing from the result had no answer and keep their previous state.
type Platform interface {
	Name() core.Platform
	QueryLatest(ctx context.Context, ids []string) (map[string][]core.VersionDescriptor, error)
}

// Ranker orders candidates. Less reports whether a ranks below b.
type Ranker interface {
	Less(a, b core.VersionDescriptor) bool
}

// Settings gates what an engine considers
type Settings interface {
	PlatformEnabled(p core.Platform) bool
	DisabledVersions(p core.Platform) []string
	IncludePrerelease() bool
}

// InstanceSource supplies the live instances. Engines only read from it.
type InstanceSource interface {
	GetAll() []core.Instance
}

// Report summarises one CheckForUpdates run
type Report struct {
	RunID     string
	Platform  core.Platform
	Skipped   bool // platform disabled in config
	Checked   int  // instances considered
	Published int  // slots written
	Updates   int  // instances with a newer version available
	Missing   int  // instances whose pack had no result
	Err       error
	Shared    bool // merged into a run already in flight
}

// Engine tracks the latest versions of one platform's packs
type Engine struct {
	platform  Platform
	ranker    Ranker
	settings  Settings
	instances InstanceSource
	logger    *slog.Logger
	perf      *logging.Perf

	mu    sync.Mutex
	slots map[uuid.UUID]*observable.Subject[*core.VersionDescriptor]

	flight singleflight.Group
}

// Option customises an Engine
type Option func(*Engine)

// WithRanker replaces the default ordinal ranking
func WithRanker(r Ranker) Option {
	return func(e *Engine) { e.ranker = r }
}

// NewEngine creates an engine for platform p
func NewEngine(p Platform, instances InstanceSource, settings Settings, logger *slog.Logger, perf *logging.Perf, opts ...Option) *Engine {
	e := &Engine{
		platform:  p,
		ranker:    DefaultRanker{},
		settings:  settings,
		instances: instances,
		logger:    logger.With(slog.String("platform", string(p.Name()))),
		perf:      perf,
		slots:     make(map[uuid.UUID]*observable.Subject[*core.VersionDescriptor]),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Platform returns the platform this engine checks
func (e *Engine) Platform() core.Platform {
	return e.platform.Name()
}

func (e *Engine) slot(id uuid.UUID) *observable.Subject[*core.VersionDescriptor] {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.slots[id]
	if !ok {
		s = observable.NewSubject[*core.VersionDescriptor](nil)
		e.slots[id] = s
	}
	return s
}

// Observable returns the slot for an instance, creating an empty one if needed.
// It never does network I/O.
func (e *Engine) Observable(id uuid.UUID) observable.Observable[*core.VersionDescriptor] {
	return e.slot(id)
}

// LatestVersion returns the slot's current value, or nil
func (e *Engine) LatestVersion(id uuid.UUID) *core.VersionDescriptor {
	e.mu.Lock()
	s, ok := e.slots[id]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Value()
}

// HasUpdate reports whether the slot holds a version newer than the installed one
func (e *Engine) HasUpdate(inst core.Instance) bool {
	if !inst.IsFrom(e.platform.Name()) {
		return false
	}
	latest := e.LatestVersion(inst.ID)
	return latest != nil && latest.NewerThan(*inst.Pack)
}

// CheckForUpdates queries the platform for every instance installed from it and
// publishes the best eligible version to each instance's slot. Calls that overlap
// a run in flight wait for it and share its report. Failures are logged and
// leave slots as they were.
func (e *Engine) CheckForUpdates(ctx context.Context) Report {
	v, _, shared := e.flight.Do("check", func() (any, error) {
		return e.run(ctx), nil
	})
	report := v.(Report)
	report.Shared = shared
	return report
}

func (e *Engine) run(ctx context.Context) Report {
	p := e.platform.Name()
	report := Report{RunID: xid.New().String(), Platform: p}
	log := e.logger.With(slog.String("run", report.RunID))

	if !e.settings.PlatformEnabled(p) {
		log.Debug("update checks disabled")
		report.Skipped = true
		return report
	}

	defer e.perf.Start("checking " + string(p) + " updates")()

	var selected []core.Instance
	var ids []string
	seen := make(map[string]bool)
	for _, inst := range e.instances.GetAll() {
		if !inst.IsFrom(p) || inst.DisableUpdateChecks {
			continue
		}
		selected = append(selected, inst)
		if !seen[inst.Pack.ProjectID] {
			seen[inst.Pack.ProjectID] = true
			ids = append(ids, inst.Pack.ProjectID)
		}
	}
	report.Checked = len(selected)
	if len(selected) == 0 {
		return report
	}

	log.Info("checking for updates", slog.Int("instances", len(selected)), slog.Int("packs", len(ids)))

	results, err := e.platform.QueryLatest(ctx, ids)
	if err != nil {
		log.Warn("update check failed", slog.Any("error", err))
		report.Err = err
		return report
	}

	policy := Policy{
		IncludePrerelease: e.settings.IncludePrerelease(),
		Disabled:          toSet(e.settings.DisabledVersions(p)),
		Ranker:            e.ranker,
	}

	for _, inst := range selected {
		candidates, ok := results[inst.Pack.ProjectID]
		if !ok {
			report.Missing++
			log.Debug("no result for pack", slog.String("instance", inst.Name), slog.String("project", inst.Pack.ProjectID))
			continue
		}

		slot := e.slot(inst.ID)
		best := policy.Select(candidates, *inst.Pack)
		if best == nil {
			// An empty answer does not clear a version found earlier.
			if slot.Value() == nil {
				slot.Publish(nil)
				report.Published++
			}
			continue
		}

		slot.Publish(best)
		report.Published++
		if best.NewerThan(*inst.Pack) {
			report.Updates++
			log.Info("update available",
				slog.String("instance", inst.Name),
				slog.String("installed", installedName(*inst.Pack)),
				slog.String("latest", best.Name),
			)
		}
	}

	return report
}

func installedName(ref core.PackRef) string {
	if ref.VersionName != "" {
		return ref.VersionName
	}
	return ref.VersionID
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
