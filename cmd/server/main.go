package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ganot/forge-registry/internal/app"
	"github.com/ganot/forge-registry/internal/config"
)

var version = "dev"

var (
	cfg       config.Config
	logger    *slog.Logger
	closeLogs = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:           "forge",
	Short:         "Community project registry and background scanner",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside local development.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}

		// Stdio transport owns stdout for JSON-RPC.
		var w io.Writer = os.Stdout
		if cmd.Name() == "serve" && cfg.Transport.Mode == "stdio" {
			w = os.Stderr
		}
		if path := os.Getenv("FORGE_LOG_PATH"); path != "" {
			fw, err := openCappedLog(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
			} else {
				w = fw
				closeLogs = fw.Close
			}
		}
		logger = app.NewLogger(w, cfg.Log.Level)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogs()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
