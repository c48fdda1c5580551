package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alfredjeanlab/leadrelay/internal/events"
	"github.com/alfredjeanlab/leadrelay/internal/model"
	"github.com/alfredjeanlab/leadrelay/internal/progress"
	"github.com/alfredjeanlab/leadrelay/internal/ui"
	"github.com/spf13/cobra"
)

var watchNATSURL string

var watchCmd = &cobra.Command{
	Use:     "watch <leadId>",
	Short:   "Watch a lead's automation progress live",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID := args[0]

		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		dial := sseDial(leadID)
		if watchNATSURL != "" {
			dial = natsDial(watchNATSURL, leadID)
		}

		tracker := progress.NewTracker()
		runner := progress.NewRunner(tracker, dial)
		runner.Start(ctx)
		defer runner.Stop()

		render := time.NewTicker(200 * time.Millisecond)
		defer render.Stop()

		for {
			select {
			case <-ctx.Done():
				fmt.Println()
				return nil
			case <-runner.Updates():
			case <-render.C:
			}

			printProgress(leadID, tracker, runner)

			if runner.State() == progress.StateFailed {
				return fmt.Errorf("%s", tracker.Err())
			}
			if tracker.IsComplete() {
				fmt.Println(ui.RenderSuccess("workflow complete"))
				return nil
			}
		}
	},
}

// sseDial streams the lead's events over the relay's SSE endpoint.
func sseDial(leadID string) progress.DialFunc {
	return func(ctx context.Context) (<-chan *model.Event, error) {
		return relayClient.StreamEvents(ctx, leadID)
	}
}

// natsDial streams the lead's events from the NATS mirror instead.
func natsDial(natsURL, leadID string) progress.DialFunc {
	return func(ctx context.Context) (<-chan *model.Event, error) {
		sub, err := events.NewNATSSubscriber(natsURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}
		raw, cancel, err := sub.Subscribe(events.LeadTopic(leadID))
		if err != nil {
			sub.Close()
			return nil, fmt.Errorf("subscribing to events: %w", err)
		}

		out := make(chan *model.Event)
		go func() {
			defer close(out)
			defer sub.Close()
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case data, ok := <-raw:
					if !ok {
						return
					}
					var evt model.Event
					if err := json.Unmarshal(data, &evt); err != nil || evt.Type == "" {
						continue
					}
					select {
					case out <- &evt:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out, nil
	}
}

// printProgress redraws the step list in place.
func printProgress(leadID string, tracker *progress.Tracker, runner *progress.Runner) {
	steps := tracker.Steps()

	// Redraw from the top of the screen each frame.
	fmt.Print("\x1b[H\x1b[2J")

	fmt.Printf("%s  %s\n\n", ui.RenderAccent(leadID), ui.RenderConnection(runner.State(), runner.Attempt()))
	for _, st := range steps {
		fmt.Println(ui.RenderStep(st))
	}
	if dash := tracker.Dashboard(); dash != nil {
		if score, ok := dash["leadScore"].(float64); ok {
			fmt.Printf("\n%s %.0f\n", ui.RenderMuted("lead score:"), score)
		}
	}
	if msg := tracker.Err(); msg != "" {
		fmt.Printf("\n%s\n", ui.RenderError(msg))
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchNATSURL, "nats", "", "watch the NATS mirror at this URL instead of SSE")
}
