package update

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs every engine on start and then on a fixed interval. Engines
// run in parallel; each engine merges its own overlapping runs.
type Scheduler struct {
	engines  []*Engine
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewScheduler creates a scheduler. An interval of zero runs the engines once.
func NewScheduler(engines []*Engine, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engines:  engines,
		interval: interval,
		logger:   logger,
	}
}

// Engines returns the engines in the order they were given
func (s *Scheduler) Engines() []*Engine {
	return s.engines
}

// CheckAll runs every engine in parallel and waits for all of them
func (s *Scheduler) CheckAll(ctx context.Context) []Report {
	reports := make([]Report, len(s.engines))

	var wg sync.WaitGroup
	for i, e := range s.engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i] = e.CheckForUpdates(ctx)
		}()
	}
	wg.Wait()

	return reports
}

// Start begins checking in the background. Calling it twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.logger.Info("starting update scheduler", slog.Int("platforms", len(s.engines)), slog.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop cancels any run in progress and waits for the loop to exit
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	s.wg.Wait()
	s.logger.Info("update scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	s.runOnce(ctx)
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	for _, r := range s.CheckAll(ctx) {
		if r.Err != nil || r.Skipped {
			continue
		}
		s.logger.Debug("update check finished",
			slog.String("platform", string(r.Platform)),
			slog.String("run", r.RunID),
			slog.Int("checked", r.Checked),
			slog.Int("updates", r.Updates),
		)
	}
}
