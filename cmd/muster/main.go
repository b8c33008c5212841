package main

import (
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/alfredjeanlab/muster/internal/client"
	"github.com/alfredjeanlab/muster/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverURL   string
	authToken   string
	jsonOutput  bool
	participant string
	timezone    string

	musterClient client.MusterClient
	displayLoc   *time.Location
)

func defaultParticipant() string {
	if s := os.Getenv("MUSTER_PARTICIPANT"); s != "" {
		return s
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

func envOr(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

var rootCmd = &cobra.Command{
	Use:           "muster <command>",
	Short:         "Event role registration for chat communities",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return fmt.Errorf("invalid --tz: %w", err)
		}
		displayLoc = loc
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		musterClient = client.NewHTTPClient(serverURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if musterClient != nil {
			musterClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", envOr("MUSTER_URL", "http://localhost:8080"), "muster server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("MUSTER_AUTH_TOKEN"), "bearer token for the server")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&participant, "as", defaultParticipant(), "participant to act as")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", envOr("MUSTER_TIMEZONE", "UTC"), "timezone for displayed times")

	rootCmd.AddGroup(
		&cobra.Group{ID: "events", Title: "Events:"},
		&cobra.Group{ID: "roles", Title: "Roles:"},
		&cobra.Group{ID: "board", Title: "Board:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Events
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(formCmd)
	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(journalCmd)

	// Roles
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(unregisterCmd)
	rootCmd.AddCommand(switchCmd)

	// Board
	rootCmd.AddCommand(channelCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(tickCmd)
	rootCmd.AddCommand(calendarCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
