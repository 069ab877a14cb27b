package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and edit the configuration file (~/.medindex/config.toml).

Environment variables override the file: QDRANT_URL, QDRANT_API_KEY,
QDRANT_COLLECTION, EMBED_MODEL_NAME, OPENAI_API_KEY and OLLAMA_HOST.
A .env file in the working directory is loaded first.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration key",
	Long: `Set a configuration key in the config file.

Secret keys (API keys) may omit the value to be prompted for it without echo.
Run 'medindex config keys' to list the keys.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Args:  cobra.NoArgs,
	Run:   runConfigKeys,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configPathCmd, configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := loadSettingsService()
	if err != nil {
		return err
	}

	settings, loadErr := svc.Load()

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", secretOrUnset(settings.Embedding.APIKey))
	}
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.EmbeddingDimension())
	cmd.Printf("  Cache: %t\n", settings.Embedding.Cache)
	cmd.Println()

	cmd.Println("[Vector Store]")
	cmd.Printf("  Backend: %s\n", settings.VectorStore.Backend)
	if settings.VectorStore.Backend == domain.VectorBackendQdrant {
		cmd.Printf("  URL: %s\n", settings.VectorStore.URL)
		cmd.Printf("  API Key: %s\n", secretOrUnset(settings.VectorStore.APIKey))
	}
	cmd.Printf("  Collection: %s\n", settings.VectorStore.Collection)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d words\n", settings.Chunking.Size)
	cmd.Printf("  Overlap: %d words\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Extract]")
	cmd.Printf("  OCR: %t (%s)\n", settings.Extract.OCR, settings.Extract.OCRLanguage)
	cmd.Println()

	cmd.Printf("Config file: %s\n", svc.Path())
	for _, e := range svc.Entries() {
		cmd.Println(mutedStyle.Render(fmt.Sprintf("  %s = %s", e[0], e[1])))
	}
	if loadErr != nil {
		cmd.Println(errorStyle.Render(fmt.Sprintf("Warning: %v", loadErr)))
		cmd.Println("Run 'medindex config set' to fix configuration issues.")
	} else {
		cmd.Println(successStyle.Render("Configuration is valid."))
	}

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := loadSettingsService()
	if err != nil {
		return err
	}

	key := args[0]
	k, ok := services.LookupConfigKey(key)
	if !ok {
		return fmt.Errorf("%w: unknown config key %q (see 'medindex config keys')", domain.ErrInvalidInput, key)
	}

	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case k.Secret:
		cmd.Printf("%s: ", key)
		value = readSecret(cmd.InOrStdin())
		cmd.Println()
	default:
		return fmt.Errorf("%w: %s needs a value", domain.ErrInvalidInput, key)
	}

	if err := svc.Set(key, value); err != nil {
		return err
	}

	shown := value
	if k.Secret {
		shown = services.Mask(value)
	}
	cmd.Printf("%s = %s\n", key, shown)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	svc, err := loadSettingsService()
	if err != nil {
		return err
	}
	cmd.Println(svc.Path())
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) {
	for _, k := range services.ConfigKeys() {
		cmd.Printf("  %-32s %-6s %s\n", k.Name, k.Kind, k.Description)
	}
}

func secretOrUnset(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return services.Mask(secret)
}

// readSecret reads a line without echo when in is a terminal.
func readSecret(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	// Fallback to regular input
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line)
}
