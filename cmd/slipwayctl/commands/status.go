package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/slipway-sh/slipway/internal/cli/output"
	"github.com/slipway-sh/slipway/pkg/apiclient"
	"github.com/spf13/cobra"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current deployment",
	Long: `Display the current deployment on the slipway host.

Examples:
  # Show host status
  slipwayctl status

  # Output as JSON
  slipwayctl status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := apiclient.New(serverURL)
	status, err := client.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", serverURL, err)
	}

	switch statusOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	case "table":
		current := "none"
		if status.CurrentDeployment != nil {
			current = *status.CurrentDeployment
		}
		return output.SimpleTable(os.Stdout, [][2]string{
			{"Current deployment", current},
			{"Upload port", strconv.Itoa(status.UploadPort)},
			{"Deployments dir", status.DeploymentsDir},
			{"Uptime", (time.Duration(status.Uptime) * time.Second).String()},
		})
	default:
		return fmt.Errorf("invalid output format: %s (valid: table, json)", statusOutput)
	}
}
