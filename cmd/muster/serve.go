package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/muster/internal/announce"
	"github.com/alfredjeanlab/muster/internal/calendar"
	"github.com/alfredjeanlab/muster/internal/catalog"
	"github.com/alfredjeanlab/muster/internal/config"
	"github.com/alfredjeanlab/muster/internal/events"
	"github.com/alfredjeanlab/muster/internal/journal"
	"github.com/alfredjeanlab/muster/internal/journal/postgres"
	"github.com/alfredjeanlab/muster/internal/roster"
	"github.com/alfredjeanlab/muster/internal/server"
	"github.com/alfredjeanlab/muster/internal/store/memory"
	mustersync "github.com/alfredjeanlab/muster/internal/sync"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the muster server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't build a client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level, _ := config.ParseLevel(cfg.LogLevel)
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		// Role templates.
		cat := catalog.Default()
		if cfg.TemplatesFile != "" {
			if cat, err = catalog.Load(cfg.TemplatesFile); err != nil {
				return err
			}
			logger.Info("templates loaded", "file", cfg.TemplatesFile, "count", cat.Len())
		}

		store := memory.New()
		reg := roster.New(store, cat,
			roster.WithLocation(cfg.Location),
			roster.WithDuration(cfg.EventDuration),
		)

		// Journal.
		var jrnl journal.Journal
		if cfg.DatabaseURL != "" {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			jrnl = pg
			logger.Info("journal enabled", "backend", "postgres")
		} else {
			jrnl = journal.NewMemory()
			logger.Info("journal in memory (MUSTER_DATABASE_URL not set)")
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL,
				nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
					logger.Warn("notification bus disconnected", "error", err)
				}),
				nats.ReconnectHandler(func(nc *nats.Conn) {
					logger.Info("notification bus reconnected", "url", nc.ConnectedUrlRedacted())
				}),
			)
			if err != nil {
				jrnl.Close()
				return err
			}
			publisher = pub
			logger.Info("publishing notifications to NATS", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.LogPublisher{Logger: logger}
			logger.Info("no notification bus (MUSTER_NATS_URL not set); notifications go to the debug log")
		}

		opts := []server.Option{
			server.WithChannelFilter(cfg.ChannelAllowed),
			server.WithReminderSchedule(cfg.ReminderSchedule),
			server.WithKeepalive(cfg.StreamKeepalive),
		}
		calOpts, err := calendarOptions(context.Background(), cfg, logger)
		if err != nil {
			publisher.Close()
			jrnl.Close()
			return err
		}
		opts = append(opts, calOpts...)

		srv := server.New(reg, announce.NewBoard(cfg.Location), jrnl, publisher, opts...)
		if err := srv.Start(); err != nil {
			publisher.Close()
			jrnl.Close()
			return fmt.Errorf("starting reminder scanner: %w", err)
		}
		logger.Info("reminder scanner started", "schedule", cfg.ReminderSchedule)

		// Start gRPC listener (health checks).
		var grpcStop func()
		if cfg.GRPCEnabled() {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				srv.Stop()
				publisher.Close()
				jrnl.Close()
				return err
			}
			grpcServer := srv.NewGRPCServer(cfg.AuthToken)
			grpcStop = grpcServer.GracefulStop
			go func() {
				logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
				if err := grpcServer.Serve(lis); err != nil {
					logger.Error("gRPC server error", "err", err)
				}
			}()
		}

		// Start HTTP server.
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		var exporter *mustersync.Exporter
		if cfg.Sync.Interval > 0 {
			sink, err := mustersync.NewS3Sink(context.Background(), mustersync.S3Config{
				Bucket:   cfg.Sync.S3Bucket,
				Key:      cfg.Sync.S3Key,
				Region:   cfg.Sync.S3Region,
				Endpoint: cfg.Sync.S3Endpoint,
			})
			if err != nil {
				logger.Error("snapshot export disabled", "error", err)
			} else {
				exporter = mustersync.NewExporter(store, cfg.Sync.Interval, logger, sink)
				exporter.Start()
				logger.Info("snapshot export started", "interval", cfg.Sync.Interval, "sink", sink.String())
			}
		}

		logger.Info("muster server started",
			"http_addr", cfg.HTTPAddr,
			"grpc_addr", cfg.GRPCAddr,
			"timezone", cfg.Location.String(),
			"calendar", cfg.Calendar.Backend,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		srv.Stop()
		logger.Info("reminder scanner stopped")

		if exporter != nil {
			exporter.Stop()
			logger.Info("snapshot export stopped")
		}

		if grpcStop != nil {
			grpcStop()
			logger.Info("gRPC server stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := jrnl.Close(); err != nil {
			logger.Error("error closing journal", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// calendarOptions builds the server options for the configured calendar
// backend.
func calendarOptions(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]server.Option, error) {
	switch cfg.Calendar.Backend {
	case config.CalendarICS:
		feed := calendar.NewFeed("muster")
		logger.Info("calendar feed enabled", "path", "/v1/calendar.ics")
		return []server.Option{server.WithCalendar(feed), server.WithFeed(feed)}, nil
	case config.CalendarCalDAV:
		c, err := calendar.NewCalDAV(ctx, calendar.CalDAVConfig{
			URL:      cfg.Calendar.CalDAVURL,
			Username: cfg.Calendar.CalDAVUsername,
			Password: cfg.Calendar.CalDAVPassword,
			Calendar: cfg.Calendar.CalDAVCalendar,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("calendar enabled", "backend", "caldav", "url", cfg.Calendar.CalDAVURL)
		return []server.Option{server.WithCalendar(c)}, nil
	case config.CalendarGoogle:
		g, err := calendar.NewGoogle(ctx, calendar.GoogleConfig{
			CalendarID:   cfg.Calendar.GoogleCalendarID,
			ClientID:     cfg.Calendar.GoogleClientID,
			ClientSecret: cfg.Calendar.GoogleClientSecret,
			TokenFile:    cfg.Calendar.GoogleTokenFile,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("calendar enabled", "backend", "google", "calendar_id", cfg.Calendar.GoogleCalendarID)
		return []server.Option{server.WithCalendar(g)}, nil
	default:
		logger.Info("calendar disabled (MUSTER_CALENDAR=none)")
		return nil, nil
	}
}
