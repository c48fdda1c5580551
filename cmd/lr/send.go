package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	sendScore float64
	sendName  string
	sendStdin bool
)

var sendCmd = &cobra.Command{
	Use:     "send <leadId>",
	Short:   "Post a dashboard-update webhook for a lead",
	GroupID: "leads",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID := args[0]

		var payload map[string]any
		if sendStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("parsing stdin JSON: %w", err)
			}
		} else {
			payload = map[string]any{
				"leadScore": sendScore,
				"leadData": map[string]any{
					"name":    sendName,
					"email":   "",
					"phone":   "",
					"message": "",
				},
			}
		}

		resp, err := relayClient.SendDashboardUpdate(cmd.Context(), leadID, payload)
		if err != nil {
			return fmt.Errorf("sending dashboard update: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("lead %s: score %.0f", resp.LeadID, resp.LeadScore)
		if resp.LeadName != "" {
			fmt.Printf(" (%s)", resp.LeadName)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	sendCmd.Flags().Float64Var(&sendScore, "score", 72, "lead score")
	sendCmd.Flags().StringVar(&sendName, "name", "Demo Lead", "lead name")
	sendCmd.Flags().BoolVar(&sendStdin, "stdin", false, "read the raw payload JSON from stdin")
}
