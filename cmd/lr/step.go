package main

import (
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/leadrelay/internal/client"
	"github.com/spf13/cobra"
)

var stepMessage string

var stepCmd = &cobra.Command{
	Use:     "step <leadId> <step> <status>",
	Short:   "Post a status-update webhook for one workflow step",
	GroupID: "leads",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID, step, status := args[0], args[1], args[2]

		resp, err := relayClient.SendStatusUpdate(cmd.Context(), leadID, &client.StatusUpdateRequest{
			Step:    step,
			Status:  status,
			Message: stepMessage,
		})
		if err != nil {
			return fmt.Errorf("sending status update: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("lead %s: %s -> %s\n", resp.LeadID, resp.Step, resp.Status)
		return nil
	},
}

func init() {
	stepCmd.Flags().StringVar(&stepMessage, "message", "", "optional status message")
}
