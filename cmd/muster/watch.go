package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alfredjeanlab/muster/internal/client"
	"github.com/alfredjeanlab/muster/internal/events"
	"github.com/alfredjeanlab/muster/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [topic...]",
	Short: "Stream notifications as they happen",
	Long: `Stream notifications. With MUSTER_NATS_URL set (or --nats), subscribes
to the bus directly; otherwise reads the server's SSE stream. Topics use
NATS wildcards: muster.event.* or muster.>`,
	GroupID: "board",
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if natsURL != "" {
			return watchNATS(ctx, natsURL, args)
		}
		return musterClient.Stream(ctx, args, printNotification)
	},
}

func watchNATS(ctx context.Context, natsURL string, patterns []string) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			slog.Info("nats reconnected")
		}),
	)
	if err != nil {
		return err
	}
	defer sub.Close()

	msgs, err := sub.Subscribe(ctx, patterns...)
	if err != nil {
		return err
	}
	for m := range msgs {
		if err := printNotification(client.Notification{Topic: m.Topic, Data: m.Data}); err != nil {
			return err
		}
	}
	if n := sub.Dropped(); n > 0 {
		slog.Warn("notifications dropped while printing", "count", n)
	}
	return nil
}

func printNotification(n client.Notification) error {
	if jsonOutput {
		fmt.Fprintln(stdout, string(n.Data))
		return nil
	}
	fmt.Fprintf(stdout, "%s %s\n", ui.RenderAccent(n.Topic), n.Data)
	return nil
}

func init() {
	watchCmd.Flags().String("nats", os.Getenv("MUSTER_NATS_URL"), "NATS URL to subscribe to directly")
}
