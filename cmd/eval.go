package cmd

import (
	"github.com/lehigh-university-libraries/tourlens/internal/evalcmd"
	"github.com/spf13/cobra"
)

func newEvalCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Scene analysis evaluation tools",
		Long: `Evaluation tools for measuring how reliably a vision provider produces
usable scene analyses.

Runs labelled frame datasets through the same validation as the API and
reports success rate, keyword hit rate and latency.`,
	}

	// Add eval subcommands
	cmd.AddCommand(evalcmd.NewRunCmd(flags.load))
	cmd.AddCommand(evalcmd.NewReportCmd())

	return cmd
}
