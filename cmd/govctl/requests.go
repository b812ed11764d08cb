package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Manage template change requests",
}

var listAllRequests bool

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List change requests (active only by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		path := apiBase + "/requests"
		if listAllRequests {
			path += "?all=true"
		}

		var result struct {
			Requests []struct {
				ID          string `json:"id"`
				Category    string `json:"category"`
				FromVersion string `json:"fromVersion"`
				ToVersion   string `json:"toVersion"`
				Status      string `json:"status"`
				Requester   string `json:"requester"`
				Impact      struct {
					RiskLevel string `json:"riskLevel"`
				} `json:"impact"`
				CreatedAt string `json:"createdAt"`
			} `json:"requests"`
			TotalSize int `json:"totalSize"`
		}
		if err := client.getJSON(path, &result); err != nil {
			return fmt.Errorf("failed to list change requests: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"ID", "Category", "Change", "Risk", "Status", "Requester", "Created"}
		rows := make([][]string, 0, len(result.Requests))
		for _, r := range result.Requests {
			rows = append(rows, []string{
				truncate(r.ID, 12),
				r.Category,
				fmt.Sprintf("%s -> %s", r.FromVersion, r.ToVersion),
				r.Impact.RiskLevel,
				r.Status,
				r.Requester,
				r.CreatedAt,
			})
		}
		printTable(headers, rows)
		fmt.Printf("Total: %d\n", result.TotalSize)
		return nil
	},
}

var requestsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get change request details, approvals, and confirmation text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.getJSON(fmt.Sprintf("%s/requests/%s", apiBase, args[0]), &result); err != nil {
			return fmt.Errorf("failed to get change request: %w", err)
		}

		return printOutput(result)
	},
}

var (
	requestFromVersion string
	requestReason      string
)

var requestsCreateCmd = &cobra.Command{
	Use:   "create <category> <to-version>",
	Short: "Open a change request to make a version the category default",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"fromVersion": requestFromVersion,
			"toVersion":   args[1],
			"reason":      requestReason,
		}

		var result map[string]any
		path := fmt.Sprintf("%s/categories/%s/requests", apiBase, args[0])
		if err := client.postJSON(path, body, &result); err != nil {
			return fmt.Errorf("failed to create change request: %w", err)
		}

		return printOutput(result)
	},
}

var confirmationText string

var requestsConfirmCmd = &cobra.Command{
	Use:   "confirm <id>",
	Short: "Confirm a fully approved change request",
	Long: `Confirm a fully approved change request and deploy the new default.

The --text value must reproduce the request's stored confirmation text exactly.
Retrieve it with "govctl requests get <id>".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"confirmationText": confirmationText,
		}

		var result map[string]any
		path := fmt.Sprintf("%s/requests/%s/confirm", apiBase, args[0])
		if err := client.postJSON(path, body, &result); err != nil {
			return fmt.Errorf("failed to confirm change request: %w", err)
		}

		return printOutput(result)
	},
}

var cancelReason string

var requestsCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel an active change request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"reason": cancelReason,
		}

		var result map[string]any
		path := fmt.Sprintf("%s/requests/%s/cancel", apiBase, args[0])
		if err := client.postJSON(path, body, &result); err != nil {
			return fmt.Errorf("failed to cancel change request: %w", err)
		}

		return printOutput(result)
	},
}

var requestsAuditCmd = &cobra.Command{
	Use:   "audit <id>",
	Short: "List the audit trail of a change request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.getJSON(fmt.Sprintf("%s/requests/%s/audit", apiBase, args[0]), &result); err != nil {
			return fmt.Errorf("failed to list audit events: %w", err)
		}

		return printOutput(result)
	},
}

func init() {
	requestsListCmd.Flags().BoolVar(&listAllRequests, "all", false, "Include resolved requests")
	requestsCreateCmd.Flags().StringVar(&requestFromVersion, "from", "", "Expected current default version (default: live default)")
	requestsCreateCmd.Flags().StringVar(&requestReason, "reason", "", "Reason for the change")
	requestsConfirmCmd.Flags().StringVar(&confirmationText, "text", "", "Exact confirmation text")
	requestsCancelCmd.Flags().StringVar(&cancelReason, "reason", "", "Cancellation reason")

	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsGetCmd)
	requestsCmd.AddCommand(requestsCreateCmd)
	requestsCmd.AddCommand(requestsConfirmCmd)
	requestsCmd.AddCommand(requestsCancelCmd)
	requestsCmd.AddCommand(requestsAuditCmd)

	rootCmd.AddCommand(requestsCmd)
}
