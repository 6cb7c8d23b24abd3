package sentiment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"pagetrust/internal/models"
)

var analyzer = govader.NewSentimentIntensityAnalyzer()

var (
	markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	bareURLPattern      = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// StripLinks drops URLs from scraped text; link targets skew both the
// detector and VADER without carrying tone.
func StripLinks(input string) string {
	input = markdownLinkPattern.ReplaceAllString(input, "$1")
	return bareURLPattern.ReplaceAllString(input, "")
}

// FlattenMarkdown renders markdown and collapses the result to a single
// plain-text line.
func FlattenMarkdown(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	return strings.Join(strings.Fields(string(output)), " ")
}

// PrepareText is the shared preprocessing applied to scraped text before
// any analysis call.
func PrepareText(input string) string {
	return strings.TrimSpace(StripLinks(FlattenMarkdown(input)))
}

// Analyze scores text locally with VADER. It is the offline substitute
// for the remote sentiment endpoint and cannot fail.
func Analyze(text string) *models.SentimentResult {
	score := analyzer.PolarityScores(PrepareText(text)).Compound

	var label string
	if score >= 0.20 {
		label = "positive"
	} else if score <= -0.20 {
		label = "negative"
	} else {
		label = "neutral"
	}

	return &models.SentimentResult{
		Summary: fmt.Sprintf("The overall tone of the page is %s (compound score %.2f)", label, score),
	}
}
