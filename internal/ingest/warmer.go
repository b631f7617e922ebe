package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/cyramp/cyrscan/internal/workbook"
)

// JobCache is the part of the job cache the warmer needs.
type JobCache interface {
	Peek(jobNumber string) (*workbook.JobPartSet, bool)
	Get(ctx context.Context, jobNumber string) (*workbook.JobPartSet, error)
}

// Warmer parses newly dropped job workbooks ahead of the first scan. It only fills
// missing cache entries; a workbook rewritten after its job was loaded is ignored.
type Warmer struct {
	cache  JobCache
	logger *slog.Logger
}

func NewWarmer(cache JobCache, logger *slog.Logger) *Warmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Warmer{cache: cache, logger: logger}
}

// Run consumes workbook paths until paths closes or ctx ends. Watcher errors read
// from errs are logged; errs may be nil.
func (w *Warmer) Run(ctx context.Context, paths <-chan string, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("workbook watcher error", "error", err)
		case p, ok := <-paths:
			if !ok {
				return
			}
			w.warm(ctx, p)
		}
	}
}

func (w *Warmer) warm(ctx context.Context, path string) {
	job := workbook.JobNumberFromName(path)
	if job == "" {
		return
	}
	if _, ok := w.cache.Peek(job); ok {
		w.logger.Debug("cache.warm.skip", "job_number", job, "path", path)
		return
	}
	start := time.Now()
	if _, err := w.cache.Get(ctx, job); err != nil {
		w.logger.Warn("cache.warm.failed", "job_number", job, "path", path, "error", err)
		return
	}
	w.logger.Info("cache.warm.ok", "job_number", job, "elapsed_ms", time.Since(start).Milliseconds())
}
