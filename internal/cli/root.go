// Package cli provides the command-line interface for driveindex.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/driveindex/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	userID    string

	// API client, initialized before every command
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "driveindex",
	Short: "Cloud drive folder indexer",
	Long: `Driveindex recursively indexes Google Drive and Microsoft 365 folders
into a searchable document store.

Runs execute on the driveindex server; this CLI starts, watches and
stops them over the REST API.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		apiClient = client.New(serverURL)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "driveindex server URL (default $DRIVEINDEX_SERVER_URL or http://localhost:8486)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user ID")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(documentsCmd)
}

// requireUser validates that --user was given.
func requireUser() error {
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}
