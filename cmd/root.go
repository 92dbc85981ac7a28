package cmd

import (
	"io"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/tourlens/internal/config"
	"github.com/lehigh-university-libraries/tourlens/internal/logging"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	provider   string
	model      string
	logLevel   string
	logFile    string
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	var logCloser io.Closer

	cmd := &cobra.Command{
		Use:   "tourlens",
		Short: "AR tour guide backend powered by vision LLMs",
		Long: `Tourlens turns camera frames into guided tour narration.

It analyzes frames with a vision-capable LLM (Gemini, OpenAI or Ollama),
anchors points of interest on screen and answers follow-up questions
while remembering the tour so far.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := flags.logLevel
			file := flags.logFile
			if level == "" || file == "" {
				// the config file may name them
				if cfg, err := config.Load(flags.configPath); err == nil {
					if level == "" {
						level = cfg.Log.Level
					}
					if file == "" {
						file = cfg.Log.File
					}
				}
			}

			closer, err := logging.Setup(level, file)
			if err != nil {
				return err
			}
			logCloser = closer
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				if err := logCloser.Close(); err != nil {
					slog.Error("Unable to close log file", "err", err)
				}
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&flags.provider, "provider", "", "Vision provider (gemini, openai, ollama, demo)")
	cmd.PersistentFlags().StringVar(&flags.model, "model", "", "Model name (defaults to provider's default)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Also write logs to this rotating file")

	// Add subcommands
	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newAnalyzeCmd(flags))
	cmd.AddCommand(newAskCmd(flags))
	cmd.AddCommand(newEvalCmd(flags))

	return cmd
}

// load resolves config file, environment and flag overrides, in that order
func (f *rootFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	if f.provider != "" {
		cfg.Provider = strings.ToLower(f.provider)
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFile != "" {
		cfg.Log.File = f.logFile
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
