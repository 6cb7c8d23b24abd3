package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const HEALTHCHECK_INTERVAL = 15 * time.Second

// HealthChecker is anything that can probe the analysis service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// MonitorAnalysisServiceHealth keeps the shared flag in sync with the
// service's reachability. Auto-scan skips runs while it is down.
func MonitorAnalysisServiceHealth(ctx context.Context, checker HealthChecker, healthy *atomic.Bool) {
	ticker := time.NewTicker(HEALTHCHECK_INTERVAL)
	defer ticker.Stop()

	probe(ctx, checker, healthy)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe(ctx, checker, healthy)
		}
	}
}

func probe(ctx context.Context, checker HealthChecker, healthy *atomic.Bool) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := checker.HealthCheck(probeCtx)
	wasHealthy := healthy.Load()
	healthy.Store(err == nil)

	if err != nil && wasHealthy {
		slog.Warn("[HealthCheck] Analysis service is unhealthy",
			slog.String("error", err.Error()))
	} else if err == nil && !wasHealthy {
		slog.Info("[HealthCheck] Analysis service recovered")
	}
}
