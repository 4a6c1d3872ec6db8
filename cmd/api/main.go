// AngelaMos | 2026
// main.go

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/studyvault/studyvault/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "studyvault",
	Short: "StudyVault textbook library service",
	Long: `StudyVault serves a library of PDF textbooks organised by semester and
subject. Students browse and read; administrators upload and manage books.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	rootCmd.AddCommand(serveCmd, keysCmd, filesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// optionalConfig returns configPath, or "" when the default file is absent
// so that environment-only deployments still start.
func optionalConfig() string {
	if _, err := os.Stat(configPath); err != nil && !rootCmd.PersistentFlags().Changed("config") {
		return ""
	}
	return configPath
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
