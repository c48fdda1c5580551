package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status <leadId>",
	Short:   "Show the stored state for a lead",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID := args[0]

		resp, err := relayClient.LeadStatus(cmd.Context(), leadID)
		if err != nil {
			return fmt.Errorf("fetching lead status: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("lead: %s\n", resp.LeadID)
		if resp.Dashboard != nil {
			if score, ok := resp.Dashboard["leadScore"].(float64); ok {
				fmt.Printf("score: %.0f\n", score)
			}
			if ld, ok := resp.Dashboard["leadData"].(map[string]any); ok {
				if name, ok := ld["name"].(string); ok && name != "" {
					fmt.Printf("name: %s\n", name)
				}
			}
		}

		if len(resp.StatusUpdates) == 0 {
			fmt.Println("no status updates")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STEP\tSTATUS\tMESSAGE\tTIME")
		for _, u := range resp.StatusUpdates {
			ts := ""
			if !u.Timestamp.IsZero() {
				ts = u.Timestamp.Format("15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Step, u.Status, u.Message, ts)
		}
		return w.Flush()
	},
}
