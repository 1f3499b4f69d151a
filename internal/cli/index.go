package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/driveindex/internal/client"
	"github.com/raphaelgruber/driveindex/internal/models"
)

var (
	indexProvider  string
	indexNoRecurse bool
	indexMaxDepth  int
	indexBatchSize int
	indexFileTypes []string
	indexExcludes  []string
	indexDetach    bool
)

var indexCmd = &cobra.Command{
	Use:   "index <folder-id>",
	Short: "Index a drive folder",
	Long: `Start indexing a drive folder and watch its progress.

Examples:
  driveindex index root --user u1                      # Google Drive, recursive
  driveindex index folder-123 --user u1 --provider microsoft
  driveindex index root --user u1 --file-type text/plain --max-depth 3
  driveindex index root --user u1 --detach             # don't watch`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexProvider, "provider", "p", "google", "drive provider (google or microsoft)")
	indexCmd.Flags().BoolVar(&indexNoRecurse, "no-recursive", false, "index only the folder itself, not subfolders")
	indexCmd.Flags().IntVar(&indexMaxDepth, "max-depth", models.DefaultMaxDepth, "maximum traversal depth")
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", models.DefaultBatchSize, "listing page size")
	indexCmd.Flags().StringSliceVar(&indexFileTypes, "file-type", nil, "restrict to MIME types (repeatable)")
	indexCmd.Flags().StringSliceVar(&indexExcludes, "exclude", nil, "folder IDs to skip (repeatable)")
	indexCmd.Flags().BoolVarP(&indexDetach, "detach", "d", false, "start the run and return immediately")
}

func runIndex(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}

	opts := models.IndexingOptions{
		Recursive:      !indexNoRecurse,
		MaxDepth:       indexMaxDepth,
		BatchSize:      indexBatchSize,
		FileTypes:      indexFileTypes,
		ExcludeFolders: indexExcludes,
	}

	result, err := apiClient.StartIndex(cmd.Context(), client.StartIndexInput{
		UserID:   userID,
		FolderID: args[0],
		Provider: indexProvider,
		Mode:     "batch",
		Options:  &opts,
	})
	if err != nil {
		return fmt.Errorf("start indexing: %w", err)
	}

	if indexDetach {
		fmt.Printf("Started run %s\n", result.ProgressID)
		fmt.Printf("Use 'driveindex runs %s --user %s' to check status.\n", result.ProgressID, userID)
		return nil
	}

	return RunIndexProgress(apiClient, result.ProgressID)
}
