package evalcmd

import (
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/tourlens/internal/config"
	"github.com/lehigh-university-libraries/tourlens/internal/oracle"
	"github.com/spf13/cobra"
)

// ConfigLoader resolves the effective configuration for a command
type ConfigLoader func(cmd *cobra.Command) (*config.Config, error)

// NewRunCmd creates the run command for scoring scene analysis on a dataset
func NewRunCmd(loadConfig ConfigLoader) *cobra.Command {
	var datasetPath string
	var outputDir string
	var sampleSize int
	var concurrency int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze a labelled frame dataset and score the results",
		Long: `Runs scene analysis over every frame in a dataset (.parquet or .jsonl) and
records the outcome, latency, POI count and keyword hits for each frame.

Each frame is analyzed in a fresh session. A YAML report is written to
<output>/evals/<timestamp>.yaml.`,
		Example: `  # Score 20 frames with the configured provider
  tourlens eval run --dataset frames.parquet --sample 20

  # Smoke-test the harness without credentials
  tourlens eval run --dataset frames.jsonl --provider demo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(datasetPath); err != nil {
				return fmt.Errorf("dataset file not found: %s", datasetPath)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := oracle.New(cfg)
			if err != nil {
				return err
			}

			model := cfg.ProviderModel()
			if model == "" {
				model = oracle.DefaultModel(cfg.Provider)
			}

			_, err = executeRun(cmd.Context(), p, RunOptions{
				DatasetPath: datasetPath,
				SampleSize:  sampleSize,
				Concurrency: concurrency,
				OutputDir:   outputDir,
				Model:       model,
				Guide:       cfg.GuideOptions(),
			}, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to frame dataset (.parquet or .jsonl)")
	cmd.Flags().StringVar(&outputDir, "output", ".", "Directory under which evals/ is created")
	cmd.Flags().IntVar(&sampleSize, "sample", 0, "Number of frames to evaluate (0 for all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Frames analyzed in parallel")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

// NewReportCmd creates the report command for printing a saved run
func NewReportCmd() *cobra.Command {
	var resultsPath string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a saved evaluation report",
		Example: `  tourlens eval report --results evals/2026-01-02_15-04-05.yaml
  tourlens eval report --results evals/2026-01-02_15-04-05.yaml --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(resultsPath, format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&resultsPath, "results", "", "Path to a results YAML file")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text or yaml)")
	_ = cmd.MarkFlagRequired("results")

	return cmd
}
