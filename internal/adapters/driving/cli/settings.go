package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings stored in the config file.

Values resolve from the config file first, then the environment, then
built-in defaults.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Change one setting",
	Long: `Change one setting and save it to the config file.

Run 'sea-rag settings keys' for the accepted keys. When the value of an
api_key setting is omitted it is read from the terminal without echo.

Examples:
  sea-rag settings set llm.model gpt-4o-mini
  sea-rag settings set retrieval.k 8
  sea-rag settings set server.cors_origins http://localhost:3000,http://127.0.0.1:3000
  sea-rag settings set llm.api_key`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys accepted by 'settings set'",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, k := range services.SettableKeys() {
			cmd.Println(k)
		}
	},
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider interactively",
	Args:  cobra.NoArgs,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the answer model interactively",
	Args:  cobra.NoArgs,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	s, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Printf("Config file: %s\n\n", svc.ConfigPath())

	cmd.Println("[Data]")
	cmd.Printf("  Root: %s\n", s.Data.Root)
	cmd.Printf("  Inbox: %s\n", s.Data.Inbox)
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, s.Embedding.Provider, s.Embedding.Model, s.Embedding.BaseURL, s.Embedding.APIKey, s.Embedding.APIKeyEnv)
	cmd.Printf("  Status: %s\n", configuredLabel(s.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, s.LLM.Provider, s.LLM.Model, s.LLM.BaseURL, s.LLM.APIKey, s.LLM.APIKeyEnv)
	cmd.Printf("  Temperature: %.2f\n", s.LLM.Temperature)
	cmd.Printf("  Status: %s\n", configuredLabel(s.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[VLM]")
	cmd.Printf("  Model: %s\n", s.VLM.Model)
	cmd.Printf("  Base URL: %s\n", s.VLM.BaseURL)
	cmd.Printf("  API Key: %s\n", keyLabel(s.VLM.APIKey, s.VLM.APIKeyEnv))
	cmd.Printf("  Retries: %d (base %s)\n", s.VLM.MaxRetries, s.VLM.RetryBase)
	cmd.Printf("  Rate: %.1f req/s\n", s.VLM.RequestsPerSecond)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  K: %d\n", s.Retrieval.K)
	cmd.Printf("  Top-1 threshold: %.2f\n", s.Retrieval.TauTop1)
	cmd.Printf("  Mean-3 threshold: %.2f\n", s.Retrieval.TauMean3)
	cmd.Printf("  Snippet chars: %d\n", s.Retrieval.SnippetChars)
	cmd.Printf("  Chunk size/overlap: %d/%d\n", s.Chunker.Size, s.Chunker.Overlap)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", s.Server.Addr)
	cmd.Printf("  CORS origins: %s\n", strings.Join(s.Server.CORSOrigins, ", "))
	cmd.Printf("  Vector backend: %s\n", s.Vector.Backend)
	if s.Vector.Backend == domain.VectorBackendPgvector {
		cmd.Printf("  DSN: %s\n", maskDSN(s.Vector.DSN))
	}
	if s.Scheduler.InboxInterval > 0 {
		cmd.Printf("  Inbox interval: %s\n", s.Scheduler.InboxInterval)
	} else {
		cmd.Printf("  Inbox interval: off\n")
	}
	cmd.Println()

	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sea-rag settings set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func printProvider(cmd *cobra.Command, p domain.AIProvider, model, baseURL, apiKey, apiKeyEnv string) {
	cmd.Printf("  Provider: %s\n", p.Description())
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if p.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", keyLabel(apiKey, apiKeyEnv))
	}
}

func keyLabel(key, env string) string {
	switch {
	case key != "":
		return maskAPIKey(key)
	case env != "":
		return fmt.Sprintf("(not set, reads $%s)", env)
	default:
		return "(not set)"
	}
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		if !strings.HasSuffix(key, ".api_key") {
			return fmt.Errorf("missing value for %s: %w", key, domain.ErrInvalidInput)
		}
		cmd.Printf("Enter value for %s: ", key)
		value = readPassword(cmd.InOrStdin())
		cmd.Println()
		if value == "" {
			return fmt.Errorf("empty value for %s: %w", key, domain.ErrInvalidInput)
		}
	}

	if err := svc.Set(key, value); err != nil {
		return err
	}

	shown := value
	if strings.HasSuffix(key, ".api_key") {
		shown = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, shown)
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if _, err := settingsService(); err != nil {
		return err
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if _, err := settingsService(); err != nil {
		return err
	}
	return configureLLMProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

type providerSetter func(provider domain.AIProvider, model, apiKey string) error

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	return configureProvider(cmd, reader, "Embedding",
		domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels(),
		app.Settings.SetEmbeddingProvider, app.Settings.ValidateEmbeddingConfig)
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	return configureProvider(cmd, reader, "LLM",
		domain.AllLLMProviders(), domain.DefaultLLMModels(),
		app.Settings.SetLLMProvider, app.Settings.ValidateLLMConfig)
}

func configureProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	label string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
	set providerSetter,
	validate func() error,
) error {
	cmd.Printf("Select %s Provider\n", label)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	defaultModel := defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Printf("Enter API key (empty reads $%s): ", provider.APIKeyEnv())
		apiKey = readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	if err := set(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", strings.ToLower(label), err)
	}

	cmd.Print("Validating configuration... ")
	if err := validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", strings.ToLower(label), err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", label, provider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads without echo from a terminal, otherwise a line from
// the already buffered reader.
func readSecret(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if b, err := term.ReadPassword(int(f.Fd())); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return readLine(reader)
}

// readPassword reads a secret from in without echo when in is a terminal.
func readPassword(in io.Reader) string {
	return readSecret(in, bufio.NewReader(in))
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// maskDSN hides the password of a postgres connection string.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	user, _, hasPass := strings.Cut(creds, ":")
	if !hasPass {
		return dsn
	}
	return dsn[:scheme+3] + user + ":****" + dsn[at:]
}

var errNoSettings = errors.New("settings service not configured")
