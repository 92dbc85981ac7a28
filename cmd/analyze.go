package cmd

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/tourlens/internal/guide"
	"github.com/lehigh-university-libraries/tourlens/internal/oracle"
	"github.com/lehigh-university-libraries/tourlens/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newAnalyzeCmd(flags *rootFlags) *cobra.Command {
	var locationHint string
	var interests []string
	var sessionID string

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Analyze one image file and print the scene as YAML",
		Example: `  tourlens analyze bridge.jpg --location-hint "Prague" --interest history --interest architecture
  tourlens analyze plaza.png --provider demo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
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
			scene, err := svc.Analyze(cmd.Context(), guide.AnalyzeRequest{
				Image:        base64.StdEncoding.EncodeToString(data),
				SessionID:    sessionID,
				LocationHint: locationHint,
				Interests:    interests,
			})
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(scene)
		},
	}

	cmd.Flags().StringVar(&locationHint, "location-hint", "", "Where the photo was taken")
	cmd.Flags().StringArrayVar(&interests, "interest", nil, "Topic the visitor cares about (repeatable)")
	cmd.Flags().StringVar(&sessionID, "session", "cli", "Session id to record the scene under")

	return cmd
}
