package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pagetrust/internal/models"
)

const (
	scrapeEndpoint      = "/api/scrape"
	detectEndpoint      = "/api/detect"
	factCheckEndpoint   = "/api/factcheck"
	sentimentEndpoint   = "/api/sentiment"
	imageDetectEndpoint = "/api/image-detect-ai"
	summarizeEndpoint   = "/api/summarize"
	healthEndpoint      = "/api/health"

	USER_AGENT = "pagetrust/1.0"
)

// AnalysisClient talks to the content-analysis service. Calls are made at
// most once; a failed call fails its pipeline step for the whole run, so
// there is no retry layer here.
type AnalysisClient struct {
	BaseURL string
	Client  *http.Client
}

func NewAnalysisClient(baseURL string, timeout time.Duration) *AnalysisClient {
	slog.Info("[AnalysisClient] Initializing client",
		slog.String("base_url", baseURL),
		slog.Duration("timeout", timeout))
	return &AnalysisClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *AnalysisClient) Scrape(ctx context.Context, pageURL string) (*models.ScrapedContent, error) {
	var result models.ScrapedContent
	err := c.postJSON(ctx, scrapeEndpoint, map[string]string{"url": pageURL}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *AnalysisClient) DetectText(ctx context.Context, text string) (*models.DetectionResult, error) {
	var result models.DetectionResult
	err := c.postJSON(ctx, detectEndpoint, map[string]string{"text": text}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *AnalysisClient) FactCheck(ctx context.Context, text string) ([]models.FactCheckClaim, error) {
	var result models.FactCheckResponse
	err := c.postJSON(ctx, factCheckEndpoint, map[string]string{"text": text}, &result)
	if err != nil {
		return nil, err
	}
	return result.Claims, nil
}

func (c *AnalysisClient) Sentiment(ctx context.Context, text string) (*models.SentimentResult, error) {
	var result models.SentimentResult
	err := c.postJSON(ctx, sentimentEndpoint, map[string]string{"text": text}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *AnalysisClient) DetectImage(ctx context.Context, imageURL string) (*models.ImageDetectionResult, error) {
	var result models.ImageDetectionResult
	err := c.postJSON(ctx, imageDetectEndpoint, map[string]string{"url": imageURL}, &result)
	if err != nil {
		return nil, err
	}
	result.URL = imageURL
	return &result, nil
}

func (c *AnalysisClient) Summarize(ctx context.Context, text string) (*models.SummarizationResult, error) {
	var result models.SummarizationResult
	err := c.postJSON(ctx, summarizeEndpoint, map[string]string{"text": text}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// HealthCheck probes the service; any 2xx counts as reachable.
func (c *AnalysisClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("analysis service unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("analysis service unhealthy: status code %d", resp.StatusCode)
	}
	return nil
}

// helper for posting data to the analysis service
func (c *AnalysisClient) postJSON(ctx context.Context, endpoint string, input interface{}, output interface{}) error {
	body, err := json.Marshal(input)
	if err != nil {
		slog.Error("[AnalysisClient] Failed to marshal input",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		slog.Error("[AnalysisClient] Failed to build request",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)

	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		slog.Error("[AnalysisClient] Request failed",
			slog.String("endpoint", endpoint),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("[AnalysisClient] Failed to read response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to read response: %w", err)
	}

	// any non-2xx is a failure; the body is not interpreted further
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("[AnalysisClient] Request rejected",
			slog.String("endpoint", endpoint),
			slog.Int("status_code", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return fmt.Errorf("analysis service returned status code %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[AnalysisClient] Failed to unmarshal response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	slog.Info("[AnalysisClient] Request successful",
		slog.String("endpoint", endpoint),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}
