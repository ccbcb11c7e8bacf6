package update

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aayushdutt/packkeeper/internal/core"
)

// DefaultWorkers bounds concurrent requests for platforms without a batch endpoint
const DefaultWorkers = 4

// FetchFunc resolves the candidates for one project id
type FetchFunc func(ctx context.Context, id string) ([]core.VersionDescriptor, error)

// FanOutResult contains the outcome of a fan-out batch
type FanOutResult struct {
	Completed int
	Failed    int
	Errors    []error
}

// FanOut calls fetch for every id on a bounded pool of workers. Failed ids are
// left out of the map and collected in the result.
func FanOut(ctx context.Context, ids []string, workers int, fetch FetchFunc) (map[string][]core.VersionDescriptor, *FanOutResult) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	out := make(map[string][]core.VersionDescriptor, len(ids))
	if len(ids) == 0 {
		return out, &FanOutResult{}
	}

	workChan := make(chan string, len(ids))
	for _, id := range ids {
		workChan <- id
	}
	close(workChan)

	var (
		completed int64
		failed    int64
		mu        sync.Mutex
		errs      []error
	)

	var wg sync.WaitGroup
	for i := 0; i < min(workers, len(ids)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range workChan {
				if ctx.Err() != nil {
					return
				}

				versions, err := fetch(ctx, id)

				mu.Lock()
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", id, err))
				} else {
					out[id] = versions
				}
				mu.Unlock()

				if err != nil {
					atomic.AddInt64(&failed, 1)
				} else {
					atomic.AddInt64(&completed, 1)
				}
			}
		}()
	}
	wg.Wait()

	return out, &FanOutResult{
		Completed: int(completed),
		Failed:    int(failed),
		Errors:    errs,
	}
}

// logFailures writes one warning per failed id
func logFailures(logger *slog.Logger, res *FanOutResult) {
	for _, err := range res.Errors {
		logger.Warn("pack query failed", slog.Any("error", err))
	}
}
