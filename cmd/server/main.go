// Package main is the entry point for the Chat Memo server.
//
// The main package stays small: load the configuration, build the logger,
// hand both to internal/server and block until shutdown. All actual logic
// lives in imported packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sakif/chat-memo/internal/config"
	"github.com/sakif/chat-memo/internal/server"
)

var rootFlags struct {
	ConfigFile string
	LogLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "chatmemo-server",
	Short: "Chat Memo API server",
	Long:  `Serves the Chat Memo JSON API: snippets, messages, tags, AI providers and settings.`,
	Example: `chatmemo-server --config config.yml
  chatmemo-server -c /etc/chatmemo/config.yml --log-level debug
  CHATMEMO_AUTH_JWT_SECRET=... chatmemo-server  # searches for config in default locations`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE:         serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.ConfigFile, "config", "c", "", "Path to config file (default: search for config.yml in current dir, ~/.chatmemo, /etc/chatmemo)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.LogLevel, "log-level", "", "Log level (debug, info, warn, error) - overrides config file setting")
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(rootFlags.ConfigFile)
	if err != nil {
		return err
	}
	if rootFlags.LogLevel != "" {
		cfg.LogLevel = rootFlags.LogLevel
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	// charmbracelet/log renders; the rest of the code only sees *slog.Logger.
	handler := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
	log.SetDefault(handler)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if cfg.Database.Path != ":memory:" {
		dir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			return err
		}
	}

	srv, err := server.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	// Start blocks until SIGINT/SIGTERM.
	return srv.Start()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
