package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var defaultCmd = &cobra.Command{
	Use:   "default <category>",
	Short: "Show a category's current default template version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Category  string `json:"category"`
			VersionID string `json:"versionId"`
		}
		path := fmt.Sprintf("%s/categories/%s/default", apiBase, args[0])
		if err := client.getJSON(path, &result); err != nil {
			return fmt.Errorf("failed to get current default: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		fmt.Printf("%s\t%s\n", result.Category, result.VersionID)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <category>",
	Short: "Show a category's default-version deployment ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Entries []struct {
				ID          string   `json:"id"`
				Action      string   `json:"action"`
				FromVersion string   `json:"fromVersion"`
				ToVersion   string   `json:"toVersion"`
				ConfirmedBy string   `json:"confirmedBy"`
				Approvers   []string `json:"approvers"`
				DeployedAt  string   `json:"deployedAt"`
			} `json:"entries"`
			TotalSize int `json:"totalSize"`
		}
		path := fmt.Sprintf("%s/categories/%s/history", apiBase, args[0])
		if err := client.getJSON(path, &result); err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"ID", "Action", "Change", "Confirmed By", "Approvers", "Deployed"}
		rows := make([][]string, 0, len(result.Entries))
		for _, e := range result.Entries {
			rows = append(rows, []string{
				truncate(e.ID, 12),
				e.Action,
				fmt.Sprintf("%s -> %s", e.FromVersion, e.ToVersion),
				e.ConfirmedBy,
				strings.Join(e.Approvers, ", "),
				e.DeployedAt,
			})
		}
		printTable(headers, rows)
		fmt.Printf("Total: %d\n", result.TotalSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(defaultCmd)
	rootCmd.AddCommand(historyCmd)
}
