package logging

import (
	"log/slog"
	"time"
)

// Perf brackets timed regions and logs how long they took.
type Perf struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewPerf creates a Perf that logs at debug level.
func NewPerf(logger *slog.Logger) *Perf {
	return &Perf{logger: logger, now: time.Now}
}

// Start begins a timed region. Call the returned func to end it.
//
//	defer perf.Start("loading instances")()
func (p *Perf) Start(name string) func() time.Duration {
	if p == nil {
		return func() time.Duration { return 0 }
	}
	started := p.now()
	return func() time.Duration {
		elapsed := p.now().Sub(started)
		p.logger.Debug("timed region finished",
			slog.String("region", name),
			slog.Duration("elapsed", elapsed),
		)
		return elapsed
	}
}
