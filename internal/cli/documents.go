package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentsLimit int

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}

		page, err := apiClient.ListDocuments(cmd.Context(), userID, documentsLimit)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}

		if len(page.Documents) == 0 {
			fmt.Println("No documents found")
			return nil
		}

		fmt.Printf("%-24s %-10s %-30s %-28s %s\n", "ID", "PROVIDER", "NAME", "MIME TYPE", "STATUS")
		fmt.Println("--------------------------------------------------------------------------------------------")
		for _, doc := range page.Documents {
			fmt.Printf("%-24s %-10s %-30s %-28s %s\n",
				doc.ExternalID, doc.Provider, truncateName(doc.Title, 30), doc.MimeType, doc.Status)
		}
		fmt.Printf("\n%d of %d documents\n", len(page.Documents), page.Count)
		return nil
	},
}

func init() {
	documentsCmd.Flags().IntVar(&documentsLimit, "limit", 50, "maximum documents to list")
}

func truncateName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
