// Package main is the entry point for the radio server. The serve command
// loads configuration, connects MariaDB and Redis, wires the plugins and
// starts the HTTP server; migrate and useradd are maintenance commands.
//
// Usage:
//
//	radio serve
//	radio migrate up
//	radio useradd alice --admin
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/radio/internal/config"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "radio",
		Short:         "Self-hosted internet radio controller",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(useraddCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the logger every command
// shares.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg)
	return cfg, nil
}

// setupLogging configures the global slog logger. Development uses the text
// handler for readability, production JSON for log aggregation.
func setupLogging(cfg *config.Config) {
	level := parseLevel(cfg.LogLevel)

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
