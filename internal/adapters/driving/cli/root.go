// Package cli provides the sea-rag command line interface.
// It is a driving adapter: commands call the core through driving ports
// assembled by the bootstrap registered from main.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// version is overridden at build time or by SetVersion.
var version = "dev"

var (
	verbose    bool
	configPath string
	logFormat  string
)

// Scheduler runs background ingestion and accepts immediate run requests.
type Scheduler interface {
	driving.Scheduler
	Trigger()
}

// App bundles the services the commands drive.
type App struct {
	Settings driving.SettingsService
	Chat     driving.ChatService
	Ingest   driving.IngestService
	Batch    driving.BatchService
	Files    driving.FileService
	Search   driving.SearchService

	Scheduler       Scheduler
	SchedulerConfig domain.SchedulerConfig

	Server domain.ServerSettings

	// Inbox is the directory batch ingestion and the watcher use.
	Inbox string

	// AIErr explains why Chat and Search are missing, when they are.
	AIErr error

	// Close releases stores and provider clients. It may be nil.
	Close func() error
}

// Bootstrap assembles the application for the given config file path.
type Bootstrap func(ctx context.Context, configPath string) (*App, error)

var (
	bootstrap Bootstrap
	app       *App
)

// SetBootstrap registers the function that wires services on first use.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetApp installs an already assembled application.
func SetApp(a *App) {
	app = a
}

var rootCmd = &cobra.Command{
	Use:   "sea-rag",
	Short: "Question answering over your PDF documents",
	Long: `sea-rag ingests PDF documents, indexes them in a vector store and answers
questions about them with cited sources.

It serves an HTTP API with streaming chat, an MCP server for AI assistants
and an interactive terminal chat.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.sea-rag/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")
}

// Execute runs the root command and releases the application afterwards.
func Execute() error {
	defer closeApp()
	return rootCmd.Execute()
}

func persistentPreRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	switch logFormat {
	case "", "console":
		logger.SetJSON(false)
	case "json":
		logger.SetJSON(true)
	default:
		return fmt.Errorf("unknown log format %q: %w", logFormat, domain.ErrInvalidInput)
	}

	if skipsBootstrap(cmd) {
		return nil
	}
	return ensureApp(cmd.Context())
}

// skipsBootstrap reports whether cmd runs without services.
func skipsBootstrap(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

func ensureApp(ctx context.Context) error {
	if app != nil {
		return nil
	}
	if bootstrap == nil {
		return errors.New("application not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := bootstrap(ctx, configPath)
	if err != nil {
		return fmt.Errorf("starting sea-rag: %w", err)
	}
	app = a
	if app.AIErr != nil {
		logger.Warn("AI services unavailable: %v", app.AIErr)
	}
	return nil
}

func closeApp() {
	if app == nil || app.Close == nil {
		return
	}
	if err := app.Close(); err != nil {
		logger.Warn("shutdown: %v", err)
	}
}

// unavailable explains a missing service, surfacing the AI init failure.
func unavailable(what string) error {
	if app != nil && app.AIErr != nil {
		return fmt.Errorf("%s unavailable: %w", what, app.AIErr)
	}
	return fmt.Errorf("%s service not configured", what)
}

func chatService() (driving.ChatService, error) {
	if app == nil || app.Chat == nil {
		return nil, unavailable("chat")
	}
	return app.Chat, nil
}

func searchService() (driving.SearchService, error) {
	if app == nil || app.Search == nil {
		return nil, unavailable("search")
	}
	return app.Search, nil
}

func ingestService() (driving.IngestService, error) {
	if app == nil || app.Ingest == nil {
		return nil, unavailable("ingest")
	}
	return app.Ingest, nil
}

func batchService() (driving.BatchService, error) {
	if app == nil || app.Batch == nil {
		return nil, unavailable("batch ingest")
	}
	return app.Batch, nil
}

func fileService() (driving.FileService, error) {
	if app == nil || app.Files == nil {
		return nil, unavailable("file")
	}
	return app.Files, nil
}

func settingsService() (driving.SettingsService, error) {
	if app == nil || app.Settings == nil {
		return nil, errNoSettings
	}
	return app.Settings, nil
}
