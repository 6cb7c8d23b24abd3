package autoscan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pagetrust/internal/models"
	"pagetrust/internal/pipeline"
	"pagetrust/internal/store"
)

// ScanDelay gives the page a moment to settle after navigation before a
// scan kicks off.
const ScanDelay = 2 * time.Second

// Scheduler reacts to navigation events: it drops stale analyses and,
// when auto-scan is enabled, starts a delayed pipeline run for the new
// URL.
type Scheduler struct {
	exec     *pipeline.Executor
	results  *store.ResultStore
	settings *store.SettingsStore
	healthy  *atomic.Bool // nil means "assume healthy"
	delay    time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	// gen invalidates callbacks that fired before their Stop: a fired
	// callback re-checks its generation under the lock before starting.
	gen map[string]uint64
}

func NewScheduler(exec *pipeline.Executor, results *store.ResultStore, settings *store.SettingsStore, healthy *atomic.Bool) *Scheduler {
	return &Scheduler{
		exec:     exec,
		results:  results,
		settings: settings,
		healthy:  healthy,
		delay:    ScanDelay,
		timers:   make(map[string]*time.Timer),
		gen:      make(map[string]uint64),
	}
}

// HandleNavigation is called once per completed navigation.
func (s *Scheduler) HandleNavigation(ctx context.Context, event models.NavigationEvent) {
	if event.URL == "" {
		slog.Warn("[AutoScan] Ignoring navigation event without URL")
		return
	}

	if err := s.results.InvalidateOthers(ctx, event.URL); err != nil {
		slog.Warn("[AutoScan] Failed to invalidate stale analyses",
			slog.String("url", event.URL),
			slog.String("error", err.Error()))
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		slog.Warn("[AutoScan] Failed to load settings, skipping auto-scan",
			slog.String("error", err.Error()))
		return
	}
	if !settings.AutoScan {
		return
	}
	if s.healthy != nil && !s.healthy.Load() {
		slog.Warn("[AutoScan] Analysis service unhealthy, skipping auto-scan",
			slog.String("url", event.URL))
		return
	}

	s.schedule(event.URL)
}

// schedule arms a delayed run for url and cancels any pending run for
// other URLs; the tab has moved on, their results would be stale anyway.
// Stop alone cannot cancel a timer whose callback already fired, so
// every supersede also bumps the generation the callback checks.
func (s *Scheduler) schedule(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for pending, timer := range s.timers {
		timer.Stop()
		delete(s.timers, pending)
		s.gen[pending]++
	}

	s.gen[url]++
	gen := s.gen[url]
	s.timers[url] = time.AfterFunc(s.delay, func() {
		s.fire(url, gen)
	})
	slog.Info("[AutoScan] Scan scheduled",
		slog.String("url", url),
		slog.Duration("delay", s.delay))
}

// fire starts the scheduled scan unless a later navigation superseded it
// between the timer firing and this running.
func (s *Scheduler) fire(url string, gen uint64) {
	s.mu.Lock()
	if s.gen[url] != gen {
		s.mu.Unlock()
		slog.Info("[AutoScan] Scheduled scan superseded, skipping",
			slog.String("url", url))
		return
	}
	delete(s.timers, url)
	s.mu.Unlock()

	runID, err := s.exec.Start(url)
	if err != nil {
		if errors.Is(err, pipeline.ErrScanInFlight) {
			slog.Info("[AutoScan] Scan already in flight, skipping",
				slog.String("url", url))
			return
		}
		slog.Error("[AutoScan] Failed to start scan",
			slog.String("url", url),
			slog.String("error", err.Error()))
		return
	}
	slog.Info("[AutoScan] Started scheduled scan",
		slog.String("url", url),
		slog.String("run_id", runID))
}
