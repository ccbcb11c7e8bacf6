// Package app wires the launcher core together.
// Everything is constructed once in New and handed to its users explicitly.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aayushdutt/packkeeper/internal/api"
	"github.com/aayushdutt/packkeeper/internal/cache"
	"github.com/aayushdutt/packkeeper/internal/config"
	"github.com/aayushdutt/packkeeper/internal/core"
	"github.com/aayushdutt/packkeeper/internal/credentials"
	"github.com/aayushdutt/packkeeper/internal/logging"
	"github.com/aayushdutt/packkeeper/internal/update"
)

// Options override the pieces tests need to control
type Options struct {
	LogWriter  io.Writer                // defaults to os.Stderr
	HTTPClient *http.Client             // defaults to the retrying client
	BaseURLs   map[core.Platform]string // per-platform API roots
	Vault      credentials.Vault        // defaults to the OS keyring when enabled
	NoCache    bool
}

// App owns the long-lived services
type App struct {
	Config   *config.Config
	Launcher *config.Document
	Logger   *slog.Logger
	Perf     *logging.Perf

	Accounts  *core.AccountManager
	Instances *core.InstanceManager
	Servers   *core.ServerManager
	Scheduler *update.Scheduler

	engines map[core.Platform]*update.Engine
	cache   *cache.Cache
	logs    *logging.AsyncHandler
}

// New builds the application. Nothing is read from disk besides the launcher
// document and the cache database until Load.
func New(cfg *config.Config, opts Options) (*App, error) {
	w := opts.LogWriter
	if w == nil {
		w = os.Stderr
	}
	logger, logs := logging.New(w, logging.Options{Debug: cfg.Debug})
	perf := logging.NewPerf(logger)

	if err := cfg.EnsureDirs(); err != nil {
		logs.Close()
		return nil, fmt.Errorf("creating data directories: %w", err)
	}

	doc, err := config.LoadDocument(cfg.LauncherPath(), []byte(cfg.LauncherOverrides), logger)
	if err != nil {
		logs.Close()
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Launcher: doc,
		Logger:   logger,
		Perf:     perf,
		logs:     logs,
	}

	if !opts.NoCache {
		c, err := cache.Open(cfg.CachePath())
		if err != nil {
			logger.Warn("response cache unavailable", slog.Any("error", err))
		} else {
			a.cache = c
		}
	}

	clientOpts := func(p core.Platform) api.Options {
		o := api.Options{
			BaseURL:    opts.BaseURLs[p],
			HTTPClient: opts.HTTPClient,
			Logger:     logger,
		}
		if a.cache != nil {
			o.Cache = a.cache
		}
		return o
	}

	vault := opts.Vault
	if vault == nil && cfg.UseKeyring {
		vault = credentials.NewKeyring()
	}

	a.Accounts = core.NewAccountManager(cfg.DataDir, vault, logger)
	a.Instances = core.NewInstanceManager(cfg.DataDir, a.Accounts, logger, perf)
	a.Servers = core.NewServerManager(cfg.DataDir, logger, perf)

	settings := config.NewSettings(cfg, doc)
	platforms := []update.Platform{
		update.NewCurseForge(api.NewCurseForgeClient(cfg.CurseForgeAPIKey, clientOpts(core.PlatformCurseForge)), logger),
		update.NewFTB(api.NewFTBClient(clientOpts(core.PlatformFTB)), logger),
		update.NewModrinth(api.NewModrinthClient(clientOpts(core.PlatformModrinth)), logger),
		update.NewTechnic(api.NewTechnicClient(clientOpts(core.PlatformTechnic)), logger),
		update.NewModpacksCh(api.NewModpacksChClient(clientOpts(core.PlatformModpacksCh)), logger),
	}

	a.engines = make(map[core.Platform]*update.Engine, len(platforms))
	engines := make([]*update.Engine, 0, len(platforms))
	for _, p := range platforms {
		var engineOpts []update.Option
		if p.Name() == core.PlatformTechnic {
			// Technic builds carry no ordering, only version strings.
			engineOpts = append(engineOpts, update.WithRanker(update.SemverRanker{}))
		}
		e := update.NewEngine(p, a.Instances, settings, logger, perf, engineOpts...)
		a.engines[p.Name()] = e
		engines = append(engines, e)
	}
	a.Scheduler = update.NewScheduler(engines, time.Duration(cfg.UpdateCheckInterval), logger)

	return a, nil
}

// Load reads accounts, then instances (which validate against accounts), then
// servers.
func (a *App) Load(ctx context.Context) error {
	defer a.Perf.Start("loading collections")()

	if err := a.Accounts.LoadAll(ctx); err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}
	if err := a.Instances.LoadAll(ctx); err != nil {
		return fmt.Errorf("loading instances: %w", err)
	}
	if err := a.Servers.LoadAll(ctx); err != nil {
		return fmt.Errorf("loading servers: %w", err)
	}
	return nil
}

// Engine returns the update engine for p
func (a *App) Engine(p core.Platform) (*update.Engine, bool) {
	e, ok := a.engines[p]
	return e, ok
}

// PruneCache drops cached responses older than maxAge
func (a *App) PruneCache(ctx context.Context, maxAge time.Duration) (int64, error) {
	if a.cache == nil {
		return 0, nil
	}
	return a.cache.Prune(ctx, maxAge)
}

// Close stops background work and flushes logs
func (a *App) Close() error {
	a.Scheduler.Stop()

	var err error
	if a.cache != nil {
		err = a.cache.Close()
	}
	if dropped := a.logs.Dropped(); dropped > 0 {
		fmt.Fprintf(os.Stderr, "%d log records dropped\n", dropped)
	}
	a.logs.Close()
	return err
}
