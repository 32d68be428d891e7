package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/custodia-labs/sea-rag/internal/adapters/driving/http"
	"github.com/custodia-labs/sea-rag/internal/adapters/driving/watcher"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

var (
	serveAddr        string
	serveNoWatch     bool
	serveNoScheduler bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API under /api/v1.

When the scheduler is enabled, the inbox is ingested on its configured
interval and a file watcher starts a run as soon as a PDF lands in it.
The server shuts down gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not watch the inbox")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "do not run scheduled ingestion")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if app == nil {
		return errors.New("application not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := httpapi.Config{
		Addr:        app.Server.Addr,
		CORSOrigins: app.Server.CORSOrigins,
		Version:     version,
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	server := httpapi.NewServer(cfg, httpapi.Ports{
		Chat:   app.Chat,
		Ingest: app.Ingest,
		Files:  app.Files,
		Search: app.Search,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(gctx)
	})

	sched := app.Scheduler
	if sched != nil && app.SchedulerConfig.Enabled && !serveNoScheduler {
		g.Go(func() error {
			err := sched.Start(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-gctx.Done()
			return sched.Stop()
		})

		if app.Inbox != "" && !serveNoWatch {
			w := watcher.New(app.Inbox, sched)
			if err := w.Start(gctx); err != nil {
				logger.Warn("inbox watcher disabled: %v", err)
			} else {
				defer func() { _ = w.Stop() }()
			}
		}
	} else {
		logger.Debug("scheduler disabled")
	}

	cmd.Printf("sea-rag %s listening on %s\n", version, server.Addr())
	if app.AIErr != nil {
		cmd.Printf("warning: chat and search disabled: %v\n", app.AIErr)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
