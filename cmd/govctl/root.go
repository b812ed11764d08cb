package main

import (
	"os"

	"github.com/spf13/cobra"
)

const apiBase = "/api/governance/v1alpha1"

var (
	serverURL string
	outputFmt string
	actAs     string
)

var rootCmd = &cobra.Command{
	Use:   "govctl",
	Short: "CLI for the template governance server",
	Long: `govctl manages default business-document template versions through the
governance workflow: registering versions, opening change requests, collecting
stakeholder approvals, and confirming deployments.

The acting identity is sent as the X-User-Principal header; set it with --as
or the GOVERNANCE_USER environment variable.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Governance server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&actAs, "as", "", "Acting identity (default: from GOVERNANCE_USER env)")
}

// resolvedActor returns the effective acting identity.
// Priority: --as flag > GOVERNANCE_USER env var > "".
func resolvedActor() string {
	if actAs != "" {
		return actAs
	}
	return os.Getenv("GOVERNANCE_USER")
}
