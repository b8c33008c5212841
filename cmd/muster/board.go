package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alfredjeanlab/muster/internal/client"
	"github.com/spf13/cobra"
)

var channelCmd = &cobra.Command{
	Use:     "channel <channel>",
	Short:   "Show the bot's posts in a channel",
	GroupID: "board",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("ref")
		if ref != "" {
			m, err := musterClient.GetAnnouncement(context.Background(), ref)
			if err != nil {
				return err
			}
			return printMessages([]*client.Message{m})
		}
		msgs, err := musterClient.ListChannel(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printMessages(msgs)
	},
}

var clearCmd = &cobra.Command{
	Use:     "clear <channel> <amount>",
	Short:   "Delete the most recent messages in a channel",
	GroupID: "board",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		perms, _ := cmd.Flags().GetStringSlice("permission")
		resp, err := musterClient.ClearChannel(context.Background(), args[0], &client.ClearRequest{
			Amount:      amount,
			Actor:       participant,
			Permissions: perms,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(resp)
		}
		fmt.Fprintln(stdout, resp.Text)
		return nil
	},
}

func init() {
	channelCmd.Flags().String("ref", "", "show a single message by ref")
	clearCmd.Flags().StringSlice("permission", []string{"manage_messages"}, "permissions held by the caller")
}
