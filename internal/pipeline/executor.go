package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pagetrust/internal/aggregate"
	"pagetrust/internal/models"
	"pagetrust/internal/sentiment"
	"pagetrust/internal/steps"
	"pagetrust/internal/store"
)

var (
	// ErrNoURL means the run was rejected before any step executed.
	ErrNoURL = errors.New("no page URL to analyze")
	// ErrScanInFlight rejects a second run for a URL that is already
	// being analyzed.
	ErrScanInFlight = errors.New("a scan for this URL is already in flight")
)

// Settled trackers stay subscribable for this long after a run finishes,
// then they are evicted. Without eviction a long-running server keeps a
// tracker per distinct URL it ever scanned.
const defaultTrackerTTL = 5 * time.Minute

// AnalysisService is the slice of the content-analysis client the
// executor needs.
type AnalysisService interface {
	Scrape(ctx context.Context, pageURL string) (*models.ScrapedContent, error)
	DetectText(ctx context.Context, text string) (*models.DetectionResult, error)
	FactCheck(ctx context.Context, text string) ([]models.FactCheckClaim, error)
	Sentiment(ctx context.Context, text string) (*models.SentimentResult, error)
	DetectImage(ctx context.Context, imageURL string) (*models.ImageDetectionResult, error)
	Summarize(ctx context.Context, text string) (*models.SummarizationResult, error)
}

type Config struct {
	// ImageConcurrency bounds parallel image-detection calls. The
	// default of 1 keeps them strictly sequential so a page full of
	// images cannot overwhelm the analysis service.
	ImageConcurrency int
	// LocalSentiment scores sentiment with VADER instead of calling
	// the remote endpoint.
	LocalSentiment bool
}

// Executor runs the analysis pipeline: a fixed sequence of steps with
// independent failure containment. A run that passes the URL
// precondition always ends in a PageAnalysis, whatever fails along the
// way.
type Executor struct {
	svc        AnalysisService
	results    *store.ResultStore
	cfg        Config
	trackerTTL time.Duration

	mu       sync.Mutex
	inflight map[string]string   // page URL -> run ID
	trackers map[string]*Tracker // run ID -> tracker
	lastRun  map[string]string   // page URL -> most recent run ID
}

// NewExecutor wires the pipeline. results may be nil (one-shot CLI use);
// the report is then returned but not persisted.
func NewExecutor(svc AnalysisService, results *store.ResultStore, cfg Config) *Executor {
	if cfg.ImageConcurrency < 1 {
		cfg.ImageConcurrency = 1
	}
	return &Executor{
		svc:        svc,
		results:    results,
		cfg:        cfg,
		trackerTTL: defaultTrackerTTL,
		inflight:   make(map[string]string),
		trackers:   make(map[string]*Tracker),
		lastRun:    make(map[string]string),
	}
}

// Tracker returns the progress tracker for a run ID.
func (e *Executor) Tracker(runID string) (*Tracker, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.trackers[runID]
	return t, ok
}

// Run executes the pipeline synchronously and returns the aggregate.
func (e *Executor) Run(ctx context.Context, pageURL string) (*models.PageAnalysis, error) {
	t, err := e.begin(pageURL)
	if err != nil {
		return nil, err
	}
	defer e.release(strings.TrimSpace(pageURL))
	return e.run(ctx, strings.TrimSpace(pageURL), t)
}

// Start launches a run in the background and returns its run ID so the
// caller can subscribe to progress.
func (e *Executor) Start(pageURL string) (string, error) {
	t, err := e.begin(pageURL)
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(pageURL)
	go func() {
		defer e.release(trimmed)
		if _, err := e.run(context.Background(), trimmed, t); err != nil {
			slog.Error("[Executor] Background run failed",
				slog.String("url", trimmed),
				slog.String("error", err.Error()))
		}
	}()
	return t.RunID(), nil
}

// begin validates the precondition, takes the per-URL in-flight slot and
// registers a tracker so subscribers can attach before the first step.
func (e *Executor) begin(pageURL string) (*Tracker, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, ErrNoURL
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[pageURL]; busy {
		return nil, ErrScanInFlight
	}

	t := newTracker(uuid.NewString())
	e.inflight[pageURL] = t.RunID()
	if prev, ok := e.lastRun[pageURL]; ok {
		delete(e.trackers, prev)
	}
	e.trackers[t.RunID()] = t
	e.lastRun[pageURL] = t.RunID()
	return t, nil
}

// release frees the in-flight slot and schedules eviction of the run's
// tracker. The grace period keeps the final snapshot available to the
// progress endpoint; a newer run for the same URL takes over lastRun and
// is unaffected by the older run's eviction.
func (e *Executor) release(pageURL string) {
	e.mu.Lock()
	runID := e.inflight[pageURL]
	delete(e.inflight, pageURL)
	e.mu.Unlock()

	time.AfterFunc(e.trackerTTL, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if cur, ok := e.lastRun[pageURL]; ok && cur == runID {
			delete(e.lastRun, pageURL)
		}
		delete(e.trackers, runID)
	})
}

func (e *Executor) run(ctx context.Context, pageURL string, t *Tracker) (*models.PageAnalysis, error) {
	defer t.finish()

	slog.Info("[Executor] Starting analysis run",
		slog.String("url", pageURL),
		slog.String("run_id", t.RunID()))

	// get-url is a fatal precondition: without a usable URL there is
	// nothing to analyze and no report to produce.
	t.loading(models.StepGetURL)
	if _, err := url.ParseRequestURI(pageURL); err != nil {
		t.fail(models.StepGetURL, errMessage(err, "Could not determine the page URL"))
		return nil, fmt.Errorf("[Executor] invalid page URL %q: %w", pageURL, err)
	}
	t.complete(models.StepGetURL)

	data := &models.APIData{}
	factCheckOK := false

	t.loading(models.StepScrapeContent)
	content, err := e.svc.Scrape(ctx, pageURL)
	if err != nil {
		// every content-dependent step is reported as errored without
		// being attempted; the run still reaches generate-report
		t.fail(models.StepScrapeContent, errMessage(err, "Failed to scrape page content"))
		for _, id := range steps.ContentDependent {
			t.fail(id, "Content scraping failed; nothing to analyze")
		}
		slog.Warn("[Executor] Scraping failed, skipping content steps",
			slog.String("url", pageURL),
			slog.String("error", err.Error()))
	} else {
		data.Scrape = content
		t.complete(models.StepScrapeContent)
		factCheckOK = e.runContentSteps(ctx, t, content, data)
	}

	// generate-report always runs last and always completes: it is pure
	// aggregation over whatever was collected, including nothing.
	t.loading(models.StepReport)
	title := pageURL
	if data.Scrape != nil && data.Scrape.Title != "" {
		title = data.Scrape.Title
	}
	analysis := aggregate.BuildPageAnalysis(t.RunID(), pageURL, title, data, factCheckOK)
	t.complete(models.StepReport)
	analysis.Steps = t.Steps()

	if e.results != nil {
		if err := e.results.Save(ctx, analysis); err != nil {
			slog.Warn("[Executor] Failed to persist analysis",
				slog.String("url", pageURL),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("[Executor] Analysis run finished",
		slog.String("url", pageURL),
		slog.String("risk", string(analysis.OverallRisk)),
		slog.Int("ai_score", analysis.AIScore),
		slog.Int("fake_news_score", analysis.FakeNewsScore))
	return analysis, nil
}

// runContentSteps executes everything that needs scraped content. The
// four text steps are independent of each other: each is called at most
// once and a failure in one never blocks the rest.
func (e *Executor) runContentSteps(ctx context.Context, t *Tracker, content *models.ScrapedContent, data *models.APIData) (factCheckOK bool) {
	text := sentiment.PrepareText(content.Text)

	t.loading(models.StepDetectAI)
	if det, err := e.svc.DetectText(ctx, text); err != nil {
		t.fail(models.StepDetectAI, errMessage(err, "AI detection failed"))
	} else {
		data.Detection = det
		t.complete(models.StepDetectAI)
	}

	t.loading(models.StepFactCheck)
	if claims, err := e.svc.FactCheck(ctx, text); err != nil {
		t.fail(models.StepFactCheck, errMessage(err, "Fact check failed"))
	} else {
		data.Claims = claims
		factCheckOK = true
		t.complete(models.StepFactCheck)
	}

	t.loading(models.StepSentiment)
	if e.cfg.LocalSentiment {
		data.Sentiment = sentiment.Analyze(content.Text)
		t.complete(models.StepSentiment)
	} else if res, err := e.svc.Sentiment(ctx, text); err != nil {
		t.fail(models.StepSentiment, errMessage(err, "Sentiment analysis failed"))
	} else {
		data.Sentiment = res
		t.complete(models.StepSentiment)
	}

	// zero images is a completed step with zero results, not an error
	t.loading(models.StepImageAnalysis)
	data.Images = e.analyzeImages(ctx, content.Images)
	t.complete(models.StepImageAnalysis)

	t.loading(models.StepSummarization)
	if sum, err := e.svc.Summarize(ctx, text); err != nil {
		t.fail(models.StepSummarization, errMessage(err, "Summarization failed"))
	} else {
		data.Summary = sum
		t.complete(models.StepSummarization)
	}

	return factCheckOK
}

// analyzeImages checks each image, at most cfg.ImageConcurrency at a
// time. An individual failure yields a synthetic zero-likelihood result;
// it never aborts the remaining images or the step.
func (e *Executor) analyzeImages(ctx context.Context, images []string) []models.ImageDetectionResult {
	results := make([]models.ImageDetectionResult, len(images))
	if len(images) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.ImageConcurrency)
	for i, imageURL := range images {
		g.Go(func() error {
			res, err := e.svc.DetectImage(ctx, imageURL)
			if err != nil {
				slog.Warn("[Executor] Image analysis failed",
					slog.String("image", imageURL),
					slog.String("error", err.Error()))
				results[i] = models.ImageDetectionResult{
					URL:           imageURL,
					RawModelReply: fmt.Sprintf("Image analysis failed: %s", errMessage(err, "request error")),
				}
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	g.Wait()
	return results
}

// errMessage prefers the error's own message, falling back to a
// step-specific default.
func errMessage(err error, fallback string) string {
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		return err.Error()
	}
	return fallback
}
