// ABOUTME: CLI command for listing the local history of posted tweets.
// ABOUTME: Prints recent posts with their share URLs, most recent first.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently posted tweets",
	Long:  "List the local record of tweets posted through this server.",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of posts to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	records, err := globalHistory.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No posts recorded yet.")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("---\n%s", rec.CreatedAt.Format("2006-01-02 15:04:05"))
		if rec.UserID != "" || rec.ServerID != "" {
			fmt.Printf("  [%s:%s]", rec.UserID, rec.ServerID)
		}
		if rec.ReplyToID != "" {
			fmt.Printf("  (reply to %s)", rec.ReplyToID)
		}
		fmt.Printf("\n%s\n", rec.Text)
		if rec.URL != "" {
			fmt.Printf("%s\n", rec.URL)
		}
	}
	return nil
}
