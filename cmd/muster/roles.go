package main

import (
	"context"

	"github.com/alfredjeanlab/muster/internal/client"
	"github.com/spf13/cobra"
)

// roleCommand builds one of the register/unregister/switch commands; they
// differ only in the client call.
func roleCommand(use, short string, call func(ctx context.Context, event, who, role string) (*client.Result, error)) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <event> <role>",
		Short:   short,
		GroupID: "roles",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := call(context.Background(), args[0], participant, args[1])
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}
}

var registerCmd = roleCommand("register", "Take an open role in an event",
	func(ctx context.Context, event, who, role string) (*client.Result, error) {
		return musterClient.Register(ctx, event, who, role)
	})

var unregisterCmd = roleCommand("unregister", "Give up your role in an event",
	func(ctx context.Context, event, who, role string) (*client.Result, error) {
		return musterClient.Unregister(ctx, event, who, role)
	})

var switchCmd = roleCommand("switch", "Move to a different open role",
	func(ctx context.Context, event, who, role string) (*client.Result, error) {
		return musterClient.SwitchRole(ctx, event, who, role)
	})
