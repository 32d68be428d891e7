package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sea-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sea-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sea-rag/internal/adapters/driven/filestore/local"
	"github.com/custodia-labs/sea-rag/internal/adapters/driven/parser/fitz"
	"github.com/custodia-labs/sea-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sea-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sea-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sea-rag/internal/core/services"
	"github.com/custodia-labs/sea-rag/internal/logger"
	"github.com/custodia-labs/sea-rag/internal/normalisers/pdf"
	"github.com/custodia-labs/sea-rag/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires every adapter into the core services. A broken AI
// configuration is not fatal: settings stay usable and the failure is
// reported through App.AIErr.
func bootstrap(ctx context.Context, configPath string) (*cli.App, error) {
	logger.Section("Bootstrap")

	configStore, err := file.NewConfigStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	prompts, err := file.NewPromptStore(promptsPath(configPath), file.WithDefaultPrompts(services.DefaultPrompts()))
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	settingsSvc := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	logger.Debug("data root: %s, inbox: %s", settings.Data.Root, settings.Data.Inbox)

	a := &cli.App{
		Settings:        settingsSvc,
		Server:          settings.Server,
		Inbox:           settings.Data.Inbox,
		SchedulerConfig: settingsSvc.GetSchedulerConfig(),
	}

	files, err := local.New(settings.Data.Root)
	if err != nil {
		return nil, fmt.Errorf("opening file store: %w", err)
	}
	db, err := sqlite.NewStore(settings.Data.Root)
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}

	aiResult, err := ai.Init(ctx, settings, files.IndexDir(), prompts)
	if err != nil {
		a.AIErr = err
		a.Close = db.Close
		return a, nil
	}

	index := services.NewIndexManager(aiResult.EmbeddingService, aiResult.VectorStore)
	if _, err := index.Load(ctx); err != nil {
		aiResult.Close()
		_ = db.Close()
		return nil, fmt.Errorf("loading index: %w", err)
	}

	chunker, err := postprocessors.NewChunker(settings.Chunker)
	if err != nil {
		aiResult.Close()
		_ = db.Close()
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	parser := fitz.New()
	jobs := db.JobStore()
	tracker := services.NewUploadTracker()
	sessions := memory.NewSessionStore(memory.WithMaxTurns(settings.Chat.MaxHistoryTurns))

	retriever := services.NewRetriever(index, aiResult.LLMService, settings.Retrieval)
	retriever.SetPromptStore(prompts)
	generator := services.NewGenerator(aiResult.LLMService, sessions,
		services.WithAnswerTemperature(settings.LLM.Temperature))
	generator.SetPromptStore(prompts)

	ingest := services.NewIngestService(files, parser, pdf.New(), chunker, index, jobs,
		services.WithCaptioner(aiResult.Captioner),
		services.WithUploadTracker(tracker),
	)
	batch := services.NewBatchIngester(ingest, files, parser, db.RegistryStore())

	a.Chat = services.NewChatService(retriever, generator, sessions)
	a.Ingest = ingest
	a.Batch = batch
	a.Files = services.NewFileService(files, parser, index, jobs, tracker)
	a.Search = index
	a.Scheduler = services.NewScheduler(a.SchedulerConfig, db.SchedulerStore(), batch, settings.Data.Inbox)

	a.Close = func() error {
		var errs []error
		errs = append(errs, ingest.Close())
		// The vector store is closed by aiResult, not the index manager.
		// Persist skips an index nothing was ever added to.
		errs = append(errs, index.Persist(context.Background()))
		aiResult.Close()
		errs = append(errs, db.Close())
		return errors.Join(errs...)
	}
	return a, nil
}

// promptsPath places prompts.yaml next to the config file.
func promptsPath(configPath string) string {
	if configPath == "" {
		return ""
	}
	if filepath.Ext(configPath) == ".toml" {
		return filepath.Dir(configPath)
	}
	return configPath
}
