package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	approvalRole       string
	approvalNotes      string
	approvalConditions []string
)

var approveCmd = &cobra.Command{
	Use:   "approve <request-id>",
	Short: "Record a stakeholder approval on a change request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if approvalRole == "" {
			return fmt.Errorf("--role is required")
		}

		client := newClient()

		body := map[string]any{
			"role":       approvalRole,
			"notes":      approvalNotes,
			"conditions": approvalConditions,
		}

		var result map[string]any
		path := fmt.Sprintf("%s/requests/%s/approvals", apiBase, args[0])
		if err := client.postJSON(path, body, &result); err != nil {
			return fmt.Errorf("failed to approve: %w", err)
		}

		return printOutput(result)
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Show the risk-to-required-roles approval matrix",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string][]string
		if err := client.getJSON(apiBase+"/roles", &result); err != nil {
			return fmt.Errorf("failed to get approval matrix: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"Risk", "Required Roles"}
		rows := make([][]string, 0, len(result))
		for _, risk := range []string{"low", "medium", "high", "critical"} {
			roles := result[risk]
			row := []string{risk, ""}
			for i, role := range roles {
				if i > 0 {
					row[1] += ", "
				}
				row[1] += role
			}
			rows = append(rows, row)
		}
		printTable(headers, rows)
		return nil
	},
}

func init() {
	approveCmd.Flags().StringVar(&approvalRole, "role", "", "Approval role (technical_lead, design_lead, product_owner, business_owner)")
	approveCmd.Flags().StringVar(&approvalNotes, "notes", "", "Approval notes")
	approveCmd.Flags().StringSliceVar(&approvalConditions, "condition", nil, "Approval condition (repeatable)")

	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rolesCmd)
}
