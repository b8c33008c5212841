package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alfredjeanlab/muster/internal/calendar"
	"github.com/alfredjeanlab/muster/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var calendarCmd = &cobra.Command{
	Use:     "calendar",
	Short:   "Calendar backend setup",
	GroupID: "system",
}

var calendarAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize muster to write to Google Calendar",
	Long: `Run the OAuth consent flow for the google calendar backend and store
the token in MUSTER_GOOGLE_TOKEN_FILE. Needs MUSTER_GOOGLE_CLIENT_ID and
MUSTER_GOOGLE_CLIENT_SECRET.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		gc := cfg.Calendar
		if gc.GoogleClientID == "" || gc.GoogleClientSecret == "" {
			return fmt.Errorf("MUSTER_GOOGLE_CLIENT_ID and MUSTER_GOOGLE_CLIENT_SECRET must be set")
		}

		oc := calendar.OAuthConfig(gc.GoogleClientID, gc.GoogleClientSecret)
		url := oc.AuthCodeURL("muster", oauth2.AccessTypeOffline)
		fmt.Fprintf(stdout, "Open this URL in a browser and authorize access:\n\n  %s\n\nPaste the authorization code: ", url)

		code, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading authorization code: %w", err)
		}
		code = strings.TrimSpace(code)
		if code == "" {
			return fmt.Errorf("no authorization code given")
		}

		token, err := oc.Exchange(context.Background(), code)
		if err != nil {
			return fmt.Errorf("exchanging authorization code: %w", err)
		}
		if err := calendar.SaveToken(gc.GoogleTokenFile, token); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Token saved to %s\n", gc.GoogleTokenFile)
		return nil
	},
}

func init() {
	calendarCmd.AddCommand(calendarAuthCmd)
}
