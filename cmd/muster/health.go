package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the muster server",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := musterClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			if err := printJSON(map[string]string{"status": status}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(stdout, "Health: %s\n", status)
		}

		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

var tickCmd = &cobra.Command{
	Use:   "tick [DD/MM/YYYY HH:MM]",
	Short: "Run one reminder scan now or at a given minute",
	Long: `Run one reminder scan. Events scheduled for the scanned minute get
their start reminder and are removed. The optional time is read in --tz.`,
	GroupID: "system",
	Args:    cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var at *time.Time
		if len(args) > 0 {
			t, err := time.ParseInLocation("02/01/2006 15:04", strings.Join(args, " "), displayLoc)
			if err != nil {
				return fmt.Errorf("invalid time %q: use DD/MM/YYYY HH:MM", strings.Join(args, " "))
			}
			at = &t
		}
		names, err := musterClient.Tick(context.Background(), at)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string][]string{"reminded": names})
		}
		if len(names) == 0 {
			fmt.Fprintln(stdout, "No events due.")
			return nil
		}
		for _, n := range names {
			fmt.Fprintf(stdout, "Reminded %s\n", n)
		}
		return nil
	},
}
