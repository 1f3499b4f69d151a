package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List or inspect indexing runs",
	Long: `List recent indexing runs or inspect a specific run by ID.

Examples:
  driveindex runs --user u1        # List recent runs
  driveindex runs abc123           # Show details for run abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) == 1 {
		return showRun(ctx, args[0])
	}
	return listRuns(ctx)
}

func listRuns(ctx context.Context) error {
	if err := requireUser(); err != nil {
		return err
	}

	runs, err := apiClient.ListRuns(ctx, userID, runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-10s %-10s %-12s %-12s %-20s %s\n", "ID", "PROVIDER", "STATUS", "PROGRESS", "FOLDER", "STARTED")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, run := range runs {
		progress := fmt.Sprintf("%d/%d", run.ProcessedFiles, run.TotalFiles)
		started := run.CreatedAt.Format("01-02 15:04:05")
		fmt.Printf("%-10s %-10s %-12s %-12s %-20s %s\n",
			run.ProgressID, run.Provider, run.Status, progress, run.FolderID, started)
	}

	return nil
}

func showRun(ctx context.Context, id string) error {
	run, err := apiClient.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	fmt.Printf("Run: %s\n", run.ProgressID)
	fmt.Printf("  User: %s\n", run.UserID)
	fmt.Printf("  Provider: %s\n", run.Provider)
	fmt.Printf("  Folder: %s\n", run.FolderID)
	fmt.Printf("  Status: %s\n", run.Status)
	fmt.Printf("  Progress: %d/%d files (%.0f%%)\n", run.ProcessedFiles, run.TotalFiles, run.Percent()*100)
	if run.LastProcessedFile != "" {
		fmt.Printf("  Last file: %s\n", run.LastProcessedFile)
	}
	if run.CurrentFolderID != "" {
		fmt.Printf("  Current folder: %s (depth %d)\n", run.CurrentFolderID, run.Depth)
	}
	fmt.Printf("  Started: %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  Updated: %s\n", run.UpdatedAt.Format(time.RFC3339))
	if run.Terminal() {
		duration := run.UpdatedAt.Sub(run.CreatedAt)
		fmt.Printf("  Duration: %s\n", duration.Round(time.Second))
	}

	if run.Error != nil {
		fmt.Printf("\nError [%s]: %s\n", run.Error.Code, run.Error.Message)
		if run.Error.Details != "" {
			fmt.Printf("  %s\n", run.Error.Details)
		}
	}

	return nil
}
