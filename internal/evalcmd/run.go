package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/tourlens/internal/eval/dataset"
	"github.com/lehigh-university-libraries/tourlens/internal/eval/metrics"
	"github.com/lehigh-university-libraries/tourlens/internal/eval/results"
	"github.com/lehigh-university-libraries/tourlens/internal/guide"
	"github.com/lehigh-university-libraries/tourlens/internal/providers"
	"github.com/lehigh-university-libraries/tourlens/internal/storage"
)

// RunOptions controls one evaluation run
type RunOptions struct {
	DatasetPath string
	SampleSize  int
	Concurrency int
	OutputDir   string
	Model       string
	Guide       guide.Options
}

// executeRun analyzes every dataset frame in its own session, then saves
// and prints the report. It returns the path of the saved report.
func executeRun(ctx context.Context, oracle providers.Provider, opts RunOptions, out io.Writer) (string, error) {
	slog.Info("Starting evaluation run", "dataset", opts.DatasetPath, "provider", oracle.Name(), "model", opts.Model)

	records, err := dataset.NewLoader(opts.DatasetPath).LoadSample(opts.SampleSize)
	if err != nil {
		return "", fmt.Errorf("failed to load dataset: %w", err)
	}
	slog.Info("Dataset loaded", "records", len(records))

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	svc := guide.NewService(storage.New(), oracle, opts.Guide)
	frames := make([]metrics.FrameResult, len(records))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, opts.Concurrency)
	for i, record := range records {
		wg.Add(1)
		go func(idx int, record dataset.FrameRecord) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			slog.Info("Processing frame", "id", record.ID, "progress", fmt.Sprintf("%d/%d", idx+1, len(records)))
			frames[idx] = processFrame(ctx, svc, record)
		}(i, record)
	}
	wg.Wait()

	report := results.EvalReport{
		Config: results.EvalConfig{
			Provider:    oracle.Name(),
			Model:       opts.Model,
			Temperature: opts.Guide.Temperature,
			DatasetPath: opts.DatasetPath,
			SampleSize:  len(records),
			Concurrency: opts.Concurrency,
		},
		Summary: metrics.Aggregate(frames),
		Results: frames,
	}

	path, err := results.Save(opts.OutputDir, report, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to save results: %w", err)
	}

	report.Summary.PrintSummary(out, report.Config.Provider, report.Config.Model)
	fmt.Fprintf(out, "\nResults saved to: %s\n", path)
	fmt.Fprintf(out, "\nPrint the report again with:\n  tourlens eval report --results %s\n", path)
	return path, nil
}

// processFrame runs one frame through a brand new session so results never
// depend on dataset order.
func processFrame(ctx context.Context, svc *guide.Service, record dataset.FrameRecord) metrics.FrameResult {
	result := metrics.FrameResult{ID: record.ID}

	if err := record.Validate(); err != nil {
		result.Outcome = metrics.OutcomeInvalidRequest
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	scene, err := svc.Analyze(ctx, guide.AnalyzeRequest{
		Image:        record.ImagePayload(),
		SessionID:    "eval_" + record.ID + "_" + uuid.NewString(),
		LocationHint: record.LocationHint,
		Interests:    record.Interests,
	})
	result.ProcessingTime = time.Since(start)
	result.Outcome = guide.Category(err)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Title = scene.SceneTitle
	result.POICount = len(scene.POIs)
	result.MatchedKeyword, result.KeywordHit = metrics.MatchKeyword(scene, record.ExpectedKeywords)
	return result
}
