package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"pagetrust/internal/models"
)

const (
	defaultModel   = openai.GPT4oMini
	requestTimeout = 60 * time.Second
	// keep prompts inside model context limits
	maxContextChars = 12000
)

var ErrNoContent = errors.New("no scraped content available for this page")

// Answerer answers free-form questions about a scraped page. It is an
// optional capability; the rest of the pipeline works without it.
type Answerer struct {
	client *openai.Client
	model  string
}

func NewAnswerer(apiKey, model string) *Answerer {
	if model == "" {
		model = defaultModel
	}
	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = &http.Client{Timeout: requestTimeout}

	slog.Info("[Answerer] OpenAI client initialized",
		slog.String("model", model),
		slog.Duration("timeout", requestTimeout))
	return &Answerer{client: openai.NewClientWithConfig(config), model: model}
}

func (a *Answerer) Answer(ctx context.Context, content *models.ScrapedContent, question string) (string, error) {
	if content == nil || strings.TrimSpace(content.Text) == "" {
		return "", ErrNoContent
	}

	text := content.Text
	if len(text) > maxContextChars {
		text = text[:maxContextChars]
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You answer questions about a scraped web page. " +
					"Answer only from the provided page text; say so when the page does not contain the answer.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Page URL: %s\n\nPage text:\n%s\n\nQuestion: %s", content.URL, text, question),
			},
		},
	})
	if err != nil {
		slog.Error("[Answerer] Chat completion failed",
			slog.String("url", content.URL),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("[Answerer] chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("[Answerer] model returned no choices")
	}

	slog.Info("[Answerer] Question answered",
		slog.String("url", content.URL),
		slog.Duration("elapsed", time.Since(start)))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
