package evalcmd

import (
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/tourlens/internal/eval/results"
	"gopkg.in/yaml.v3"
)

func executeReport(path, format string, out io.Writer) error {
	report, err := results.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	switch format {
	case "text":
		printTextReport(report, out)
		return nil
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(report)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printTextReport(report *results.EvalReport, out io.Writer) {
	fmt.Fprintf(out, "Dataset:   %s\n", report.Config.DatasetPath)
	fmt.Fprintf(out, "Run:       %s\n", report.Config.Timestamp)
	report.Summary.PrintSummary(out, report.Config.Provider, report.Config.Model)

	fmt.Fprintln(out, "\nFrames:")
	for i, r := range report.Results {
		if r.Error != "" {
			fmt.Fprintf(out, "[%d] %s  %s  %s\n", i+1, r.ID, r.Outcome, truncate(r.Error, 80))
			continue
		}
		hit := "-"
		if r.KeywordHit {
			hit = r.MatchedKeyword
		}
		fmt.Fprintf(out, "[%d] %s  %s  %q  pois=%d  keyword=%s  %s\n",
			i+1, r.ID, r.Outcome, truncate(r.Title, 40), r.POICount, hit, r.ProcessingTime)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
