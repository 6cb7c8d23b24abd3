package autoscan

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagetrust/internal/models"
	"pagetrust/internal/pipeline"
	"pagetrust/internal/store"
)

type stubService struct {
	scrapes atomic.Int64

	mu   sync.Mutex
	urls []string
}

func (s *stubService) Scrape(_ context.Context, url string) (*models.ScrapedContent, error) {
	s.scrapes.Add(1)
	s.mu.Lock()
	s.urls = append(s.urls, url)
	s.mu.Unlock()
	return &models.ScrapedContent{URL: url, Text: "text"}, nil
}

func (s *stubService) scrapedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.urls))
	copy(out, s.urls)
	return out
}

func (s *stubService) DetectText(context.Context, string) (*models.DetectionResult, error) {
	return &models.DetectionResult{}, nil
}

func (s *stubService) FactCheck(context.Context, string) ([]models.FactCheckClaim, error) {
	return nil, nil
}

func (s *stubService) Sentiment(context.Context, string) (*models.SentimentResult, error) {
	return &models.SentimentResult{}, nil
}

func (s *stubService) DetectImage(context.Context, string) (*models.ImageDetectionResult, error) {
	return &models.ImageDetectionResult{}, nil
}

func (s *stubService) Summarize(context.Context, string) (*models.SummarizationResult, error) {
	return &models.SummarizationResult{}, nil
}

func newTestScheduler(t *testing.T, autoScan bool) (*Scheduler, *stubService, *store.ResultStore) {
	t.Helper()
	ctx := context.Background()
	kv := store.NewMemoryStore()
	results := store.NewResultStore(kv)
	settings := store.NewSettingsStore(kv)

	s := models.DefaultSettings()
	s.AutoScan = autoScan
	require.NoError(t, settings.Save(ctx, s))

	svc := &stubService{}
	exec := pipeline.NewExecutor(svc, results, pipeline.Config{})
	sched := NewScheduler(exec, results, settings, nil)
	sched.delay = 10 * time.Millisecond
	return sched, svc, results
}

func TestHandleNavigationInvalidates(t *testing.T) {
	ctx := context.Background()
	sched, _, results := newTestScheduler(t, false)

	require.NoError(t, results.Save(ctx, &models.PageAnalysis{URL: "https://x.com"}))
	require.NoError(t, results.Save(ctx, &models.PageAnalysis{URL: "https://y.com"}))

	sched.HandleNavigation(ctx, models.NavigationEvent{URL: "https://y.com", Timestamp: time.Now()})

	gone, err := results.Load(ctx, "https://x.com")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := results.Load(ctx, "https://y.com")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestHandleNavigationAutoScanDisabled(t *testing.T) {
	sched, svc, _ := newTestScheduler(t, false)

	sched.HandleNavigation(context.Background(), models.NavigationEvent{URL: "https://example.com"})

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, svc.scrapes.Load())
}

func TestHandleNavigationAutoScanRuns(t *testing.T) {
	sched, svc, results := newTestScheduler(t, true)

	sched.HandleNavigation(context.Background(), models.NavigationEvent{URL: "https://example.com"})

	require.Eventually(t, func() bool {
		return svc.scrapes.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		analysis, err := results.Load(context.Background(), "https://example.com")
		return err == nil && analysis != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandleNavigationSupersedesPendingScan(t *testing.T) {
	sched, svc, _ := newTestScheduler(t, true)
	ctx := context.Background()

	// the first pending scan is canceled by the navigation away
	sched.HandleNavigation(ctx, models.NavigationEvent{URL: "https://first.example.com"})
	sched.HandleNavigation(ctx, models.NavigationEvent{URL: "https://second.example.com"})

	require.Eventually(t, func() bool {
		return svc.scrapes.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, svc.scrapes.Load(), "only the latest navigation should be scanned")
}

func TestFireSupersededGeneration(t *testing.T) {
	sched, svc, _ := newTestScheduler(t, true)
	sched.delay = time.Hour // timers never fire on their own here

	sched.schedule("https://first.example.com")
	sched.mu.Lock()
	staleGen := sched.gen["https://first.example.com"]
	sched.mu.Unlock()

	sched.schedule("https://second.example.com")

	// the first timer's callback ran after being superseded: it must
	// notice the bumped generation and not start a scan
	sched.fire("https://first.example.com", staleGen)

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, svc.scrapes.Load())
	assert.NotContains(t, svc.scrapedURLs(), "https://first.example.com")

	// the live generation still fires
	sched.mu.Lock()
	liveGen := sched.gen["https://second.example.com"]
	sched.mu.Unlock()
	sched.fire("https://second.example.com", liveGen)

	require.Eventually(t, func() bool {
		return svc.scrapes.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, svc.scrapedURLs(), "https://second.example.com")
}

func TestHandleNavigationSkipsWhenUnhealthy(t *testing.T) {
	sched, svc, _ := newTestScheduler(t, true)
	healthy := &atomic.Bool{}
	healthy.Store(false)
	sched.healthy = healthy

	sched.HandleNavigation(context.Background(), models.NavigationEvent{URL: "https://example.com"})

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, svc.scrapes.Load())
}
