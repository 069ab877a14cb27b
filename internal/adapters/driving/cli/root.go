// Package cli provides the medindex command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/medindex/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

var (
	verbose   bool
	configDir string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:   "medindex",
	Short: "Index and search clinical records",
	Long: `medindex turns clinical documents (PDF or text) into searchable vectors.

Documents are extracted, split into overlapping word windows, embedded and
stored in a vector collection tagged with their patient. Search embeds a
natural language query and returns the closest chunks, optionally scoped to
one patient.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.medindex)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")
}

// setup runs before every command.
func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	return loadEnvFile(envFile)
}

// loadEnvFile loads KEY=value pairs into the process environment.
// Variables already set win. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	logger.Debug("loaded environment from %s", path)
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeServices()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, mutedStyle.Render(hint))
		}
		return exitCode(err)
	}
	return exitOK
}
