package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <run-id>",
	Short: "Stop a running indexing run",
	Long: `Request cooperative cancellation of a run. The run keeps its partial
progress and already-indexed documents.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applied, err := apiClient.StopIndex(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("stop run: %w", err)
		}
		if !applied {
			fmt.Printf("Run %s was not running\n", args[0])
			return nil
		}
		fmt.Printf("Stop requested for run %s\n", args[0])
		return nil
	},
}
