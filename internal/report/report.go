// Package report renders a PageAnalysis as a plain-text report for the
// command line.
package report

import (
	"fmt"
	"strings"

	"pagetrust/internal/models"
)

// Render formats a completed analysis as a human-readable report.
func Render(analysis *models.PageAnalysis) string {
	var b strings.Builder

	title := analysis.Title
	if title == "" {
		title = analysis.URL
	}

	fmt.Fprintf(&b, "Page Trust Report\n")
	fmt.Fprintf(&b, "=================\n\n")
	fmt.Fprintf(&b, "Page:    %s\n", title)
	fmt.Fprintf(&b, "URL:     %s\n", analysis.URL)
	fmt.Fprintf(&b, "Scanned: %s\n", analysis.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Risk:    %s\n\n", strings.ToUpper(string(analysis.OverallRisk)))

	fmt.Fprintf(&b, "Scores\n")
	fmt.Fprintf(&b, "------\n")
	fmt.Fprintf(&b, "AI-generated content: %d%%\n", analysis.AIScore)
	fmt.Fprintf(&b, "Fake news:            %d%%\n\n", analysis.FakeNewsScore)

	if len(analysis.Results) > 0 {
		fmt.Fprintf(&b, "Findings\n")
		fmt.Fprintf(&b, "--------\n")
		for _, finding := range analysis.Results {
			fmt.Fprintf(&b, "- %s (%d%%): %s\n", finding.Title, finding.Confidence, finding.Description)
		}
		b.WriteString("\n")
	}

	if len(analysis.FactCheckClaims) > 0 {
		fmt.Fprintf(&b, "Fact-checked claims\n")
		fmt.Fprintf(&b, "-------------------\n")
		for _, claim := range analysis.FactCheckClaims {
			verdict := "likely false"
			if claim.IsLikelyTrue {
				verdict = "likely true"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", verdict, claim.Claim)
			for _, src := range claim.SupportingSources {
				fmt.Fprintf(&b, "    source: %s (%s)\n", src.Title, src.Link)
			}
		}
		b.WriteString("\n")
	}

	if len(analysis.ImageResults) > 0 {
		fmt.Fprintf(&b, "Images\n")
		fmt.Fprintf(&b, "------\n")
		for _, img := range analysis.ImageResults {
			fmt.Fprintf(&b, "- %s: %d%% AI likelihood\n", img.URL, img.AILikelihoodPercent)
		}
		b.WriteString("\n")
	}

	if analysis.APIData != nil && analysis.APIData.Summary != nil && analysis.APIData.Summary.Summary != "" {
		fmt.Fprintf(&b, "Summary\n")
		fmt.Fprintf(&b, "-------\n")
		fmt.Fprintf(&b, "%s\n\n", analysis.APIData.Summary.Summary)
	}

	fmt.Fprintf(&b, "Steps\n")
	fmt.Fprintf(&b, "-----\n")
	for _, step := range analysis.Steps {
		line := fmt.Sprintf("- %-20s %s", step.ID, step.Status)
		if step.Error != "" {
			line += " (" + step.Error + ")"
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}
