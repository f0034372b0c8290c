package runner

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"filtersync/internal/etl"
	"filtersync/internal/history"
)

// ─────────────────────────────────────────────────────────────
// Runner — drives the engine: run-once, cron schedule, file watch
// ─────────────────────────────────────────────────────────────

// Runner wraps the engine with trigger handling and run history.
type Runner struct {
	Engine    *etl.Engine
	Endpoints []etl.Endpoint
	// History is optional; when nil, runs are not recorded locally.
	History *history.Store

	guard runningGuard

	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// RunOnce executes a single sync across all configured endpoints.
// Returns an error only when a run is already in flight.
func (r *Runner) RunOnce(ctx context.Context) (*etl.RunResult, error) {
	if !r.guard.TryLock() {
		return nil, fmt.Errorf("sync already running")
	}
	defer r.guard.Unlock()

	runID := uuid.New().String()
	log.Printf("sync: run %s starting (%d endpoints)", runID, len(r.Endpoints))

	result := r.Engine.Run(ctx, r.Endpoints)
	r.recordHistory(runID, result)

	var fetched, stored, failed int
	for _, ep := range result.Endpoints {
		fetched += ep.Fetched
		stored += ep.Stored
		if ep.Status == "error" {
			failed++
		}
	}
	log.Printf("sync: run %s done, fetched=%d stored=%d endpoints_failed=%d in %s",
		runID, fetched, stored, failed,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	return result, nil
}

func (r *Runner) recordHistory(runID string, result *etl.RunResult) {
	if r.History == nil {
		return
	}
	for _, ep := range result.Endpoints {
		rec := &history.RunRecord{
			RunID:          runID,
			Endpoint:       ep.Endpoint,
			Fetched:        ep.Fetched,
			Transformed:    ep.Transformed,
			Stored:         ep.Stored,
			DetailFailures: ep.DetailFailures,
			Status:         ep.Status,
			Error:          ep.Error,
			StartedAt:      result.StartedAt,
			FinishedAt:     result.FinishedAt,
		}
		if err := r.History.RecordRun(rec); err != nil {
			log.Printf("sync: failed to record history for %s: %v", ep.Endpoint, err)
		}
	}
}

// StartSchedule runs the sync on a cron expression until Stop.
func (r *Runner) StartSchedule(ctx context.Context, expr string) error {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			log.Printf("sync cron: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	c.Start()
	r.cronSched = c
	log.Printf("sync cron: scheduled %q", expr)
	return nil
}

// Watch re-runs the sync whenever path is written or created, with a
// debounce so editor save bursts trigger a single run.
func (r *Runner) Watch(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("bad watch path %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir %q: %w", filepath.Dir(absPath), err)
	}
	r.watcher = watcher

	watchCtx, cancel := context.WithCancel(context.Background())
	r.watchCancel = cancel

	go func() {
		var timer *time.Timer
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if evAbs, _ := filepath.Abs(event.Name); evAbs != absPath {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(500*time.Millisecond, func() {
					log.Printf("sync watcher: %q changed, running sync", absPath)
					if _, err := r.RunOnce(ctx); err != nil {
						log.Printf("sync watcher: %v", err)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("sync watcher: error: %v", err)
			}
		}
	}()

	log.Printf("sync watcher: watching %q", absPath)
	return nil
}

// WaitRunning blocks until the in-flight run finishes or ctx is
// cancelled. Used for graceful shutdown of daemon modes.
func (r *Runner) WaitRunning(ctx context.Context) {
	r.guard.Wait(ctx)
}

// Stop tears down the watcher and scheduler.
func (r *Runner) Stop() {
	if r.watchCancel != nil {
		r.watchCancel()
		r.watchCancel = nil
	}
	if r.watcher != nil {
		r.watcher.Close()
		r.watcher = nil
	}
	if r.cronSched != nil {
		r.cronSched.Stop()
		r.cronSched = nil
	}
}
