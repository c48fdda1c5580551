package main

import (
	"os"

	"github.com/alfredjeanlab/leadrelay/internal/client"
	"github.com/spf13/cobra"
)

var (
	httpURL    string
	jsonOutput bool

	relayClient client.RelayClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("LEADRELAY_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:   "lr <command>",
	Short: "CLI for the lead automation relay",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		relayClient = client.NewHTTPClient(httpURL)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if relayClient != nil {
			relayClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "url", defaultHTTPURL(), "relay server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "leads", Title: "Leads:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false

	// Leads
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(stepCmd)

	// Views
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(debugCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
