package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/radio/internal/app"
	"github.com/keyxmakerx/radio/internal/database"
	"github.com/keyxmakerx/radio/internal/player"
)

func serveCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			slog.Info("starting radio",
				slog.String("version", version),
				slog.String("env", cfg.Env),
				slog.Int("port", cfg.Port),
			)

			db, err := database.NewMariaDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			slog.Info("connected to MariaDB")

			if !skipMigrations {
				if err := database.RunMigrations(db); err != nil {
					return err
				}
			}

			rdb, err := database.NewRedis(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()
			slog.Info("connected to Redis")

			backend := player.NewMPV(cfg.Player.MPVBinary, cfg.Player.SocketDir)
			application, err := app.New(cfg, db, rdb, backend)
			if err != nil {
				return err
			}
			if err := application.RegisterRoutes(ctx); err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- application.Start() }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := application.Shutdown(shutdownCtx); err != nil {
				slog.Error("server forced shutdown", slog.Any("error", err))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
	return cmd
}
