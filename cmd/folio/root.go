package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/folio/internal/app"
	"github.com/dshills/folio/internal/config"
	"github.com/dshills/folio/internal/engine/schema"
	"github.com/dshills/folio/internal/logging"
	"github.com/dshills/folio/internal/preset"
	"github.com/dshills/folio/internal/serial"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Structured rich documents for museum content",
	Long: `Folio edits structured rich documents: headings, callouts, cards,
galleries and the rest of the museum block set. Documents are JSON trees
checked against a schema on every load and every edit.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := logging.DefaultConfig()
		if verbose {
			cfg.Level = slog.LevelDebug
		}
		slog.SetDefault(logging.New(cfg))
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// newApp starts the application from the configuration flags.
func newApp(ctx context.Context) (*app.Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return app.New(ctx, app.Options{ConfigPath: configPath, Config: cfg, LogOutput: os.Stderr})
}

func museumSchema() *schema.Registry {
	reg, err := preset.NewMuseumSchema()
	if err != nil {
		fatal("Error building schema", err)
	}
	return reg
}

// readInput reads a file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// readTree reads and checks a JSON document.
func readTree(reg *schema.Registry, path string) (*serial.PortableNode, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return serial.DecodeTree(reg, data)
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
