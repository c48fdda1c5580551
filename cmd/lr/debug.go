package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var debugLimit int

var debugCmd = &cobra.Command{
	Use:     "debug",
	Short:   "Show the server's recent webhook request log",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := relayClient.DebugRequests(cmd.Context(), debugLimit)
		if err != nil {
			return fmt.Errorf("fetching request log: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if resp.Total == 0 {
			fmt.Println("no recorded requests")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ENDPOINT\tLEAD\tSTATUS\tOK\tMS")
		for _, r := range resp.Requests {
			fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
				r["endpoint"], r["leadId"], r["status"], r["success"], r["durationMs"])
		}
		return w.Flush()
	},
}

func init() {
	debugCmd.Flags().IntVar(&debugLimit, "limit", 20, "maximum records to fetch")
}
