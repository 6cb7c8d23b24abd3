package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagetrust/internal/models"
	"pagetrust/internal/store"
)

// fakeService stubs the analysis service. Unset hooks succeed with
// benign defaults.
type fakeService struct {
	mu    sync.Mutex
	calls map[string]int

	scrape      func(url string) (*models.ScrapedContent, error)
	detectText  func(text string) (*models.DetectionResult, error)
	factCheck   func(text string) ([]models.FactCheckClaim, error)
	sentiment   func(text string) (*models.SentimentResult, error)
	detectImage func(url string) (*models.ImageDetectionResult, error)
	summarize   func(text string) (*models.SummarizationResult, error)
}

func newFakeService() *fakeService {
	return &fakeService{calls: make(map[string]int)}
}

func (f *fakeService) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeService) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeService) Scrape(_ context.Context, url string) (*models.ScrapedContent, error) {
	f.count("scrape")
	if f.scrape != nil {
		return f.scrape(url)
	}
	return &models.ScrapedContent{URL: url, Text: "some page text", Images: nil}, nil
}

func (f *fakeService) DetectText(_ context.Context, text string) (*models.DetectionResult, error) {
	f.count("detect")
	if f.detectText != nil {
		return f.detectText(text)
	}
	return &models.DetectionResult{TextPreview: text, AILikelihoodPercent: 10}, nil
}

func (f *fakeService) FactCheck(_ context.Context, text string) ([]models.FactCheckClaim, error) {
	f.count("factcheck")
	if f.factCheck != nil {
		return f.factCheck(text)
	}
	return []models.FactCheckClaim{}, nil
}

func (f *fakeService) Sentiment(_ context.Context, text string) (*models.SentimentResult, error) {
	f.count("sentiment")
	if f.sentiment != nil {
		return f.sentiment(text)
	}
	return &models.SentimentResult{Summary: "neutral"}, nil
}

func (f *fakeService) DetectImage(_ context.Context, url string) (*models.ImageDetectionResult, error) {
	f.count("image")
	if f.detectImage != nil {
		return f.detectImage(url)
	}
	return &models.ImageDetectionResult{URL: url, AILikelihoodPercent: 5, RawModelReply: "ok"}, nil
}

func (f *fakeService) Summarize(_ context.Context, text string) (*models.SummarizationResult, error) {
	f.count("summarize")
	if f.summarize != nil {
		return f.summarize(text)
	}
	return &models.SummarizationResult{Summary: "short", Model: "test", InputLength: len(text), SummaryLength: 5}, nil
}

func statusByID(steps []models.AnalysisStep) map[string]models.AnalysisStep {
	out := make(map[string]models.AnalysisStep, len(steps))
	for _, s := range steps {
		out[s.ID] = s
	}
	return out
}

func assertAllSettled(t *testing.T, steps []models.AnalysisStep) {
	t.Helper()
	for _, s := range steps {
		assert.Contains(t, []models.StepStatus{models.StepStatusCompleted, models.StepStatusError}, s.Status,
			"step %s left in status %s", s.ID, s.Status)
	}
}

func TestRunAllStepsSucceed(t *testing.T) {
	svc := newFakeService()
	kv := store.NewMemoryStore()
	exec := NewExecutor(svc, store.NewResultStore(kv), Config{})

	analysis, err := exec.Run(context.Background(), "https://example.com/article")
	require.NoError(t, err)
	require.NotNil(t, analysis)

	assertAllSettled(t, analysis.Steps)
	for _, s := range analysis.Steps {
		assert.Equal(t, models.StepStatusCompleted, s.Status, "step %s", s.ID)
	}

	// one call per step, no retries
	for _, name := range []string{"scrape", "detect", "factcheck", "sentiment", "summarize"} {
		assert.Equal(t, 1, svc.callCount(name), "call count for %s", name)
	}

	// persisted
	saved, err := store.NewResultStore(kv).Load(context.Background(), "https://example.com/article")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, analysis.RunID, saved.RunID)
}

func TestRunScrapeFailureContainsDependents(t *testing.T) {
	svc := newFakeService()
	svc.scrape = func(string) (*models.ScrapedContent, error) {
		return nil, errors.New("scraping failed")
	}
	exec := NewExecutor(svc, nil, Config{})

	analysis, err := exec.Run(context.Background(), "https://example.com")
	require.NoError(t, err, "partial failure must still produce a report")

	byID := statusByID(analysis.Steps)
	assert.Equal(t, models.StepStatusCompleted, byID[models.StepGetURL].Status)
	assert.Equal(t, models.StepStatusError, byID[models.StepScrapeContent].Status)
	assert.Equal(t, "scraping failed", byID[models.StepScrapeContent].Error)
	for _, id := range []string{models.StepDetectAI, models.StepFactCheck, models.StepSentiment, models.StepImageAnalysis, models.StepSummarization} {
		assert.Equal(t, models.StepStatusError, byID[id].Status, "step %s", id)
		assert.Contains(t, byID[id].Error, "scraping failed", "step %s names the upstream cause", id)
	}
	assert.Equal(t, models.StepStatusCompleted, byID[models.StepReport].Status)

	// dependent calls never attempted
	for _, name := range []string{"detect", "factcheck", "sentiment", "image", "summarize"} {
		assert.Equal(t, 0, svc.callCount(name), "%s must not be called after scrape failure", name)
	}

	assert.Equal(t, 0, analysis.AIScore)
	assert.Equal(t, 0, analysis.FakeNewsScore)
	assert.Equal(t, models.RiskLow, analysis.OverallRisk)
	assert.Len(t, analysis.Results, 2)
}

func TestRunEmptyURL(t *testing.T) {
	exec := NewExecutor(newFakeService(), nil, Config{})
	_, err := exec.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestRunInvalidURL(t *testing.T) {
	svc := newFakeService()
	exec := NewExecutor(svc, nil, Config{})

	analysis, err := exec.Run(context.Background(), "not a url")
	require.Error(t, err)
	assert.Nil(t, analysis)
	assert.Equal(t, 0, svc.callCount("scrape"), "fatal precondition aborts before any remote call")
}

func TestIndependentStepFailures(t *testing.T) {
	svc := newFakeService()
	svc.detectText = func(string) (*models.DetectionResult, error) {
		return nil, errors.New("detector offline")
	}
	svc.summarize = func(string) (*models.SummarizationResult, error) {
		return nil, errors.New("summarizer offline")
	}
	exec := NewExecutor(svc, nil, Config{})

	analysis, err := exec.Run(context.Background(), "https://example.com")
	require.NoError(t, err)

	byID := statusByID(analysis.Steps)
	assert.Equal(t, models.StepStatusError, byID[models.StepDetectAI].Status)
	assert.Equal(t, "detector offline", byID[models.StepDetectAI].Error)
	assert.Equal(t, models.StepStatusError, byID[models.StepSummarization].Status)
	// the independent siblings still ran and completed
	assert.Equal(t, models.StepStatusCompleted, byID[models.StepFactCheck].Status)
	assert.Equal(t, models.StepStatusCompleted, byID[models.StepSentiment].Status)
	assert.Equal(t, 1, svc.callCount("factcheck"))
	assert.Equal(t, 1, svc.callCount("sentiment"))

	assert.Equal(t, 0, analysis.AIScore)
	assertAllSettled(t, analysis.Steps)
}

func TestEndToEndScenario(t *testing.T) {
	svc := newFakeService()
	svc.scrape = func(url string) (*models.ScrapedContent, error) {
		return &models.ScrapedContent{
			URL:    url,
			Text:   strings.Repeat("word ", 100),
			Images: []string{"img1"},
		}, nil
	}
	svc.detectText = func(string) (*models.DetectionResult, error) {
		return &models.DetectionResult{AILikelihoodPercent: 85}, nil
	}
	svc.factCheck = func(string) ([]models.FactCheckClaim, error) {
		return []models.FactCheckClaim{
			{Claim: "a", IsLikelyTrue: false},
			{Claim: "b", IsLikelyTrue: false},
			{Claim: "c", IsLikelyTrue: true},
		}, nil
	}
	svc.detectImage = func(url string) (*models.ImageDetectionResult, error) {
		return &models.ImageDetectionResult{URL: url, AILikelihoodPercent: 20, RawModelReply: "synthetic unlikely"}, nil
	}
	exec := NewExecutor(svc, nil, Config{})

	analysis, err := exec.Run(context.Background(), "https://example.com/story")
	require.NoError(t, err)

	assert.Equal(t, 85, analysis.AIScore)
	assert.Equal(t, 67, analysis.FakeNewsScore)
	assert.Equal(t, models.RiskHigh, analysis.OverallRisk)
	require.Len(t, analysis.Results, 2)
	assert.Equal(t, 85, analysis.Results[0].Confidence)
	assert.Equal(t, 67, analysis.Results[1].Confidence)
	require.Len(t, analysis.ImageResults, 1)
	assert.Equal(t, 20, analysis.ImageResults[0].AILikelihoodPercent)
}

func TestImageAnalysisNoImages(t *testing.T) {
	svc := newFakeService() // default scrape returns no images
	exec := NewExecutor(svc, nil, Config{})

	analysis, err := exec.Run(context.Background(), "https://example.com")
	require.NoError(t, err)

	byID := statusByID(analysis.Steps)
	assert.Equal(t, models.StepStatusCompleted, byID[models.StepImageAnalysis].Status)
	assert.Empty(t, analysis.ImageResults)
	assert.Equal(t, 0, svc.callCount("image"))
}

func TestImageAnalysisPartialFailure(t *testing.T) {
	svc := newFakeService()
	svc.scrape = func(url string) (*models.ScrapedContent, error) {
		return &models.ScrapedContent{URL: url, Text: "text", Images: []string{"a", "b"}}, nil
	}
	svc.detectImage = func(url string) (*models.ImageDetectionResult, error) {
		if url == "b" {
			return nil, errors.New("image fetch timed out")
		}
		return &models.ImageDetectionResult{URL: url, AILikelihoodPercent: 30, RawModelReply: "fine"}, nil
	}
	exec := NewExecutor(svc, nil, Config{})

	analysis, err := exec.Run(context.Background(), "https://example.com")
	require.NoError(t, err)

	byID := statusByID(analysis.Steps)
	assert.Equal(t, models.StepStatusCompleted, byID[models.StepImageAnalysis].Status,
		"an individual image failure must not fail the step")

	require.Len(t, analysis.ImageResults, 2)
	assert.Equal(t, "a", analysis.ImageResults[0].URL)
	assert.Equal(t, 30, analysis.ImageResults[0].AILikelihoodPercent)
	assert.Equal(t, "b", analysis.ImageResults[1].URL)
	assert.Equal(t, 0, analysis.ImageResults[1].AILikelihoodPercent)
	assert.Contains(t, analysis.ImageResults[1].RawModelReply, "image fetch timed out")
}

func TestImageAnalysisSequentialByDefault(t *testing.T) {
	var mu sync.Mutex
	var order []string
	active := 0
	maxActive := 0

	svc := newFakeService()
	svc.scrape = func(url string) (*models.ScrapedContent, error) {
		return &models.ScrapedContent{URL: url, Text: "text", Images: []string{"a", "b", "c"}}, nil
	}
	svc.detectImage = func(url string) (*models.ImageDetectionResult, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		order = append(order, url)
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return &models.ImageDetectionResult{URL: url}, nil
	}
	exec := NewExecutor(svc, nil, Config{})

	_, err := exec.Run(context.Background(), "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 1, maxActive, "default concurrency must be strictly sequential")
}

func TestLocalSentimentMode(t *testing.T) {
	svc := newFakeService()
	exec := NewExecutor(svc, nil, Config{LocalSentiment: true})

	analysis, err := exec.Run(context.Background(), "https://example.com")
	require.NoError(t, err)

	byID := statusByID(analysis.Steps)
	assert.Equal(t, models.StepStatusCompleted, byID[models.StepSentiment].Status)
	assert.Equal(t, 0, svc.callCount("sentiment"), "local mode must not call the remote endpoint")
	require.NotNil(t, analysis.APIData.Sentiment)
	assert.NotEmpty(t, analysis.APIData.Sentiment.Summary)
}

func TestInFlightGuard(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once

	svc := newFakeService()
	svc.scrape = func(url string) (*models.ScrapedContent, error) {
		// only the guarded URL blocks; other URLs proceed immediately
		if url == "https://example.com" {
			startedOnce.Do(func() { close(started) })
			<-release
		}
		return &models.ScrapedContent{URL: url, Text: "text"}, nil
	}
	exec := NewExecutor(svc, nil, Config{})

	done := make(chan error, 1)
	go func() {
		_, err := exec.Run(context.Background(), "https://example.com")
		done <- err
	}()
	<-started

	_, err := exec.Run(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, ErrScanInFlight)

	// a different URL is not blocked
	_, err = exec.Run(context.Background(), "https://other.example.com")
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	// slot released after completion
	_, err = exec.Run(context.Background(), "https://example.com")
	assert.NoError(t, err)
}

func TestTrackerEvictionAfterSettle(t *testing.T) {
	svc := newFakeService()
	exec := NewExecutor(svc, nil, Config{})
	exec.trackerTTL = 100 * time.Millisecond

	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
		"https://example.com/d",
		"https://example.com/e",
	}
	var lastRunID string
	for _, u := range urls {
		analysis, err := exec.Run(context.Background(), u)
		require.NoError(t, err)
		lastRunID = analysis.RunID
	}

	// within the grace period the settled run is still subscribable
	_, ok := exec.Tracker(lastRunID)
	assert.True(t, ok, "tracker must survive until the grace period ends")

	// afterwards per-URL state is gone, however many URLs were scanned
	require.Eventually(t, func() bool {
		exec.mu.Lock()
		defer exec.mu.Unlock()
		return len(exec.trackers) == 0 && len(exec.lastRun) == 0 && len(exec.inflight) == 0
	}, 2*time.Second, 10*time.Millisecond, "settled trackers and lastRun entries must be evicted")

	_, ok = exec.Tracker(lastRunID)
	assert.False(t, ok)
}

func TestTrackerEvictionSparesNewerRun(t *testing.T) {
	svc := newFakeService()
	exec := NewExecutor(svc, nil, Config{})
	exec.trackerTTL = 100 * time.Millisecond

	first, err := exec.Run(context.Background(), "https://example.com")
	require.NoError(t, err)

	// a fresh run for the same URL before the first eviction fires
	second, err := exec.Run(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.NotEqual(t, first.RunID, second.RunID)

	// the first run's eviction must not tear down the second run's state
	_, ok := exec.Tracker(second.RunID)
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		exec.mu.Lock()
		defer exec.mu.Unlock()
		return len(exec.trackers) == 0 && len(exec.lastRun) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestProgressSubscription(t *testing.T) {
	svc := newFakeService()
	exec := NewExecutor(svc, nil, Config{})

	runID, err := exec.Start("https://example.com")
	require.NoError(t, err)

	tracker, ok := exec.Tracker(runID)
	require.True(t, ok)

	ch, cancel := tracker.Subscribe()
	defer cancel()

	var updates int
	timeout := time.After(5 * time.Second)
	for {
		select {
		case update, open := <-ch:
			if !open {
				require.Positive(t, updates)
				assert.True(t, tracker.Done())
				assertAllSettled(t, tracker.Steps())
				return
			}
			assert.Equal(t, runID, update.RunID)
			updates++
		case <-timeout:
			t.Fatal("run did not settle in time")
		}
	}
}
