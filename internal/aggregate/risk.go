package aggregate

import (
	"fmt"
	"math"
	"time"

	"pagetrust/internal/models"
)

// Signals carries whatever the pipeline managed to collect. Nil Detection
// means the detect-ai step failed; FactCheckOK distinguishes a factcheck
// run that returned zero claims from one that failed outright.
type Signals struct {
	Detection   *models.DetectionResult
	Claims      []models.FactCheckClaim
	FactCheckOK bool
}

// AIScore maps a detection result to a 0-100 score. A failed detection
// scores 0 rather than erroring; missing data must never block a report.
func AIScore(det *models.DetectionResult) int {
	if det == nil {
		return 0
	}
	return clampPercent(det.AILikelihoodPercent)
}

// FakeNewsScore is the rounded percentage of claims judged false.
// Zero claims (or a failed factcheck) scores 0.
func FakeNewsScore(claims []models.FactCheckClaim) int {
	if len(claims) == 0 {
		return 0
	}
	return clampPercent(int(math.Round(100 * float64(falseCount(claims)) / float64(len(claims)))))
}

// OverallRisk is a pure function of the two scores. Thresholds are strict:
// a score of exactly 70 or 50 stays in the lower tier.
func OverallRisk(aiScore, fakeNewsScore int) models.RiskLevel {
	switch {
	case aiScore > 70 || fakeNewsScore > 50:
		return models.RiskHigh
	case aiScore > 40 || fakeNewsScore > 30:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// BuildFindings produces the per-category entries for a report. Both
// categories always appear; a failed step yields a confidence-0 entry
// with an explanation instead of being dropped.
func BuildFindings(sig Signals) []models.Finding {
	aiScore := AIScore(sig.Detection)
	fakeScore := FakeNewsScore(sig.Claims)

	ai := models.Finding{
		Category:   "ai-generated",
		Title:      "AI-generated content",
		Confidence: aiScore,
	}
	if sig.Detection != nil {
		ai.Description = fmt.Sprintf("Text is %d%% likely to be AI-generated", aiScore)
	} else {
		ai.Description = "AI detection was unavailable for this page"
	}

	fake := models.Finding{
		Category:   "fake-news",
		Title:      "Potentially false claims",
		Confidence: fakeScore,
	}
	switch {
	case !sig.FactCheckOK:
		fake.Description = "Fact checking was unavailable for this page"
	case len(sig.Claims) == 0:
		fake.Description = "No checkable claims were found"
	default:
		fake.Description = fmt.Sprintf("%d of %d claims look false", falseCount(sig.Claims), len(sig.Claims))
	}

	return []models.Finding{ai, fake}
}

// BuildPageAnalysis assembles the persisted aggregate for one run. It is
// pure aggregation over the snapshot and always succeeds, including over
// an entirely empty snapshot.
func BuildPageAnalysis(runID, pageURL, title string, data *models.APIData, factCheckOK bool) *models.PageAnalysis {
	if data == nil {
		data = &models.APIData{}
	}

	sig := Signals{
		Detection:   data.Detection,
		Claims:      data.Claims,
		FactCheckOK: factCheckOK,
	}
	aiScore := AIScore(sig.Detection)
	fakeScore := FakeNewsScore(sig.Claims)

	claims := data.Claims
	if claims == nil {
		claims = []models.FactCheckClaim{}
	}
	images := data.Images
	if images == nil {
		images = []models.ImageDetectionResult{}
	}

	return &models.PageAnalysis{
		RunID:           runID,
		URL:             pageURL,
		Title:           title,
		AIScore:         aiScore,
		FakeNewsScore:   fakeScore,
		OverallRisk:     OverallRisk(aiScore, fakeScore),
		Results:         BuildFindings(sig),
		FactCheckClaims: claims,
		ImageResults:    images,
		APIData:         data,
		Timestamp:       time.Now().UTC(),
	}
}

func falseCount(claims []models.FactCheckClaim) int {
	n := 0
	for _, c := range claims {
		if !c.IsLikelyTrue {
			n++
		}
	}
	return n
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
