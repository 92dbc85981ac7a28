package cmd

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/tourlens/internal/guide"
	"github.com/lehigh-university-libraries/tourlens/internal/oracle"
	"github.com/lehigh-university-libraries/tourlens/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newAskCmd(flags *rootFlags) *cobra.Command {
	var imagePath string
	var sceneContext string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the guide one question and print the answer as YAML",
		Example: `  tourlens ask "Who built this?" --scene-context "Charles Bridge: a stone bridge in Prague"
  tourlens ask "What is on the left?" --image bridge.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var image string
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
				image = base64.StdEncoding.EncodeToString(data)
			}

			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			p, err := oracle.New(cfg)
			if err != nil {
				return err
			}

			svc := guide.NewService(storage.New(), p, cfg.GuideOptions())
			result, err := svc.Ask(cmd.Context(), guide.AskRequest{
				Question:     strings.Join(args, " "),
				SessionID:    "cli",
				SceneContext: sceneContext,
				Image:        image,
			})
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Optional image file for context")
	cmd.Flags().StringVar(&sceneContext, "scene-context", "", "Description of what the visitor is looking at")

	return cmd
}
