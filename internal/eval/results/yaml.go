package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/tourlens/internal/eval/metrics"
	"gopkg.in/yaml.v3"
)

// EvalConfig records how an evaluation run was configured
type EvalConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	DatasetPath string  `yaml:"dataset_path"`
	SampleSize  int     `yaml:"sample_size"`
	Concurrency int     `yaml:"concurrency"`
	Timestamp   string  `yaml:"timestamp"`
}

// EvalReport is the complete YAML document written for one run
type EvalReport struct {
	Config  EvalConfig               `yaml:"config"`
	Summary metrics.AggregateResults `yaml:"summary"`
	Results []metrics.FrameResult    `yaml:"results"`
}

const timestampLayout = "2006-01-02_15-04-05"

// Save writes the report to <outputDir>/evals/<timestamp>.yaml and returns the path
func Save(outputDir string, report EvalReport, now time.Time) (string, error) {
	dir := filepath.Join(outputDir, "evals")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evals directory: %w", err)
	}

	timestamp := now.Format(timestampLayout)
	report.Config.Timestamp = timestamp

	data, err := yaml.Marshal(&report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	filename := filepath.Join(dir, timestamp+".yaml")
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}
	return filename, nil
}

// Load reads a report written by Save
func Load(path string) (*EvalReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	var report EvalReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse results file: %w", err)
	}
	return &report, nil
}
