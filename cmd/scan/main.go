package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"pagetrust/config"
	"pagetrust/internal/clients"
	"pagetrust/internal/logging"
	"pagetrust/internal/models"
	"pagetrust/internal/pipeline"
	"pagetrust/internal/report"
	"pagetrust/internal/store"
)

// One-shot scanner: runs the full pipeline against a single URL and
// prints the report. Useful for smoke-testing an analysis service
// deployment without the extension in the loop.
func main() {
	jsonOut := flag.Bool("json", false, "print the raw analysis as JSON instead of a report")
	quiet := flag.Bool("quiet", false, "suppress per-step progress output")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scan [-json] [-quiet] <url>")
		os.Exit(2)
	}
	pageURL := flag.Arg(0)

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	cfg := config.FromEnv()
	client := clients.NewAnalysisClient(cfg.AnalysisAPIURL, cfg.AnalysisTimeout)

	kv := store.NewMemoryStore()
	results := store.NewResultStore(kv)
	exec := pipeline.NewExecutor(client, results, pipeline.Config{
		ImageConcurrency: cfg.ImageConcurrency,
		LocalSentiment:   cfg.LocalSentiment,
	})

	runID, err := exec.Start(pageURL)
	if err != nil {
		slog.Error("[Scan] Failed to start scan",
			slog.String("url", pageURL),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	tracker, ok := exec.Tracker(runID)
	if !ok {
		slog.Error("[Scan] Run tracker missing", slog.String("run_id", runID))
		os.Exit(1)
	}

	updates, cancel := tracker.Subscribe()
	defer cancel()

	seen := make(map[string]models.StepStatus)
	for update := range updates {
		if *quiet {
			continue
		}
		for _, step := range update.Steps {
			if seen[step.ID] == step.Status {
				continue
			}
			seen[step.ID] = step.Status
			line := fmt.Sprintf("%-20s %s", step.ID, step.Status)
			if step.Error != "" {
				line += "  " + step.Error
			}
			fmt.Fprintln(os.Stderr, line)
		}
	}

	analysis, err := results.Load(context.Background(), pageURL)
	if err != nil || analysis == nil {
		slog.Error("[Scan] Scan produced no analysis",
			slog.String("url", pageURL))
		os.Exit(1)
	}

	if *jsonOut {
		data, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			slog.Error("[Scan] Failed to encode analysis",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}
	fmt.Print(report.Render(analysis))
}
