package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/leadrelay/internal/client"
	"github.com/alfredjeanlab/leadrelay/internal/idgen"
	"github.com/alfredjeanlab/leadrelay/internal/model"
	"github.com/spf13/cobra"
)

var (
	runInterval time.Duration
	runScore    float64
	runName     string
	runFailAt   string
)

// runCmd drives a full simulated automation run against the relay: each
// workflow step goes in-progress then completed, and the run finishes with
// the dashboard-update webhook.
var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Simulate a full automation run for a new lead",
	GroupID: "leads",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		leadID, err := idgen.Generate()
		if err != nil {
			return fmt.Errorf("minting lead id: %w", err)
		}
		fmt.Printf("lead %s\n", leadID)

		for _, ws := range model.WorkflowSteps() {
			// The dashboard webhook below emits the final step itself.
			if ws.ID == model.StepDashboardUpdate {
				break
			}

			if ws.ID == runFailAt {
				_, err := relayClient.SendStatusUpdate(ctx, leadID, &client.StatusUpdateRequest{
					Step:    ws.ID,
					Status:  string(model.StatusError),
					Message: "simulated failure",
				})
				if err != nil {
					return fmt.Errorf("posting %s failure: %w", ws.ID, err)
				}
				fmt.Printf("  %s: error (simulated)\n", ws.ID)
				return nil
			}

			if err := postStep(ctx, leadID, ws.ID, model.StatusInProgress); err != nil {
				return err
			}
			sleepCtx(ctx, runInterval)
			if err := postStep(ctx, leadID, ws.ID, model.StatusCompleted); err != nil {
				return err
			}
			fmt.Printf("  %s: completed\n", ws.ID)
		}

		resp, err := relayClient.SendDashboardUpdate(ctx, leadID, map[string]any{
			"leadScore": runScore,
			"leadData": map[string]any{
				"name":    runName,
				"email":   "",
				"phone":   "",
				"message": "",
			},
		})
		if err != nil {
			return fmt.Errorf("posting dashboard update: %w", err)
		}
		fmt.Printf("  dashboard-update: score %.0f\n", resp.LeadScore)
		fmt.Printf("done: %s\n", leadID)
		return nil
	},
}

func postStep(ctx context.Context, leadID, stepID string, status model.Status) error {
	_, err := relayClient.SendStatusUpdate(ctx, leadID, &client.StatusUpdateRequest{
		Step:   stepID,
		Status: string(status),
	})
	if err != nil {
		return fmt.Errorf("posting %s %s: %w", stepID, status, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func init() {
	runCmd.Flags().DurationVar(&runInterval, "interval", 500*time.Millisecond, "delay between step transitions")
	runCmd.Flags().Float64Var(&runScore, "score", 72, "lead score for the final dashboard update")
	runCmd.Flags().StringVar(&runName, "name", "Demo Lead", "lead name for the final dashboard update")
	runCmd.Flags().StringVar(&runFailAt, "fail-at", "", "step id to fail at instead of completing the run")
}
