package cli

import (
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <run-id>",
	Short: "Watch a running index's progress",
	Long: `Attach a live progress view to an already-started run.

Example:
  driveindex watch a1b2c3d4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunIndexProgress(apiClient, args[0])
	},
}
