package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/muster/internal/client"
	"github.com/alfredjeanlab/muster/internal/ui"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create <name> <HH:MM>",
	Short:   "Create an event from a role template",
	GroupID: "events",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		template, _ := cmd.Flags().GetString("template")
		date, _ := cmd.Flags().GetString("date")
		mount, _ := cmd.Flags().GetString("mount")
		desc, _ := cmd.Flags().GetString("description")
		channel, _ := cmd.Flags().GetString("channel")

		res, err := musterClient.CreateEvent(context.Background(), &client.CreateEventRequest{
			Name:        args[0],
			Template:    template,
			Date:        date,
			Time:        args[1],
			MountType:   mount,
			Description: desc,
			Channel:     channel,
			CreatedBy:   participant,
		})
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var formCmd = &cobra.Command{
	Use:     "form <template> <HH:MM>",
	Short:   "Create an event named after its template",
	GroupID: "events",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mount, _ := cmd.Flags().GetString("mount")
		desc, _ := cmd.Flags().GetString("description")
		channel, _ := cmd.Flags().GetString("channel")

		res, err := musterClient.SubmitForm(context.Background(), &client.FormRequest{
			Template:    args[0],
			Time:        args[1],
			MountType:   mount,
			Description: desc,
			Channel:     channel,
			CreatedBy:   participant,
		})
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var sayCmd = &cobra.Command{
	Use:   "say <message...>",
	Short: "Send a chat message to the bot",
	Long: `Send a chat message as if posted in a channel. Messages of the form

  create event <name> at <HH:MM> mount <type> description <text...>

create an event; anything else is ignored.`,
	GroupID: "events",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, _ := cmd.Flags().GetString("channel")
		res, err := musterClient.SendMessage(context.Background(), &client.MessageRequest{
			Channel: channel,
			Author:  participant,
			Content: strings.Join(args, " "),
		})
		if err != nil {
			return err
		}
		if res.Ignored {
			fmt.Fprintln(stdout, ui.RenderMuted("(ignored)"))
			return nil
		}
		return printResult(res)
	},
}

var showCmd = &cobra.Command{
	Use:     "show <name>",
	Short:   "Show an event and its role slots",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := musterClient.GetEvent(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(e)
		}
		fmt.Fprint(stdout, ui.RenderEvent(e, displayLoc))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List scheduled events",
	GroupID: "events",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := musterClient.ListEvents(context.Background())
		if err != nil {
			return err
		}
		return printEventList(events)
	},
}

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Short:   "List role templates",
	GroupID: "events",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tmpls, err := musterClient.ListTemplates(context.Background())
		if err != nil {
			return err
		}
		return printTemplates(tmpls)
	},
}

var journalCmd = &cobra.Command{
	Use:     "journal <name>",
	Short:   "Show the notification history of an event",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := musterClient.GetJournal(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJournal(entries)
	},
}

func init() {
	for _, c := range []*cobra.Command{createCmd, formCmd} {
		c.Flags().String("mount", "", "mount type")
		c.Flags().StringP("description", "d", "", "event description")
		c.Flags().String("channel", "", "channel to announce in")
	}
	createCmd.Flags().StringP("template", "t", "", "role template (defaults to the event name)")
	createCmd.Flags().String("date", "", "date as DD/MM/YYYY (defaults to the next occurrence of the time)")

	sayCmd.Flags().String("channel", "general", "channel the message is posted in")
}
