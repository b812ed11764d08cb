package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Manage registered template versions",
}

var versionsListCmd = &cobra.Command{
	Use:   "list <category>",
	Short: "List registered versions for a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Versions []struct {
				VersionID             string   `json:"versionId"`
				Title                 string   `json:"title"`
				ChangeType            string   `json:"changeType"`
				BreakingChanges       []string `json:"breakingChanges"`
				DataMigrationRequired bool     `json:"dataMigrationRequired"`
				ValidationStatus      string   `json:"validationStatus"`
				CreatedAt             string   `json:"createdAt"`
			} `json:"versions"`
			TotalSize int `json:"totalSize"`
		}
		path := fmt.Sprintf("%s/categories/%s/versions", apiBase, args[0])
		if err := client.getJSON(path, &result); err != nil {
			return fmt.Errorf("failed to list versions: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"Version", "Title", "Change", "Breaking", "Migration", "Validation", "Created"}
		rows := make([][]string, 0, len(result.Versions))
		for _, v := range result.Versions {
			rows = append(rows, []string{
				v.VersionID,
				truncate(v.Title, 32),
				v.ChangeType,
				strconv.Itoa(len(v.BreakingChanges)),
				strconv.FormatBool(v.DataMigrationRequired),
				v.ValidationStatus,
				v.CreatedAt,
			})
		}
		printTable(headers, rows)
		fmt.Printf("Total: %d\n", result.TotalSize)
		return nil
	},
}

var (
	versionTitle       string
	versionDescription string
	versionChangeType  string
	versionBreaking    []string
	versionMigration   bool
	versionTraining    bool
	versionValidation  string
	versionScore       float64
)

var versionsRegisterCmd = &cobra.Command{
	Use:   "register <category> <version-id>",
	Short: "Register a template version for governance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"versionId":             args[1],
			"title":                 versionTitle,
			"description":           versionDescription,
			"changeType":            versionChangeType,
			"breakingChanges":       versionBreaking,
			"dataMigrationRequired": versionMigration,
			"userTrainingRequired":  versionTraining,
			"validationStatus":      versionValidation,
			"performanceScore":      versionScore,
		}

		var result map[string]any
		path := fmt.Sprintf("%s/categories/%s/versions", apiBase, args[0])
		if err := client.postJSON(path, body, &result); err != nil {
			return fmt.Errorf("failed to register version: %w", err)
		}

		return printOutput(result)
	},
}

var versionsImpactCmd = &cobra.Command{
	Use:   "impact <category> <to-version>",
	Short: "Preview the impact of switching the default to a version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		path := fmt.Sprintf("%s/categories/%s/impact?to=%s", apiBase, args[0], args[1])
		if err := client.getJSON(path, &result); err != nil {
			return fmt.Errorf("failed to preview impact: %w", err)
		}

		return printOutput(result)
	},
}

func init() {
	versionsRegisterCmd.Flags().StringVar(&versionTitle, "title", "", "Version title")
	versionsRegisterCmd.Flags().StringVar(&versionDescription, "description", "", "Version description")
	versionsRegisterCmd.Flags().StringVar(&versionChangeType, "change-type", "patch", "Change type: major, minor, patch")
	versionsRegisterCmd.Flags().StringSliceVar(&versionBreaking, "breaking", nil, "Breaking change description (repeatable)")
	versionsRegisterCmd.Flags().BoolVar(&versionMigration, "data-migration", false, "Data migration required")
	versionsRegisterCmd.Flags().BoolVar(&versionTraining, "user-training", false, "User training required")
	versionsRegisterCmd.Flags().StringVar(&versionValidation, "validation-status", "", "Validation status recorded at registration")
	versionsRegisterCmd.Flags().Float64Var(&versionScore, "performance-score", 0, "Render performance score")

	versionsCmd.AddCommand(versionsListCmd)
	versionsCmd.AddCommand(versionsRegisterCmd)
	versionsCmd.AddCommand(versionsImpactCmd)

	rootCmd.AddCommand(versionsCmd)
}
