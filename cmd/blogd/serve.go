package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/blogsite/internal/auth"
	"github.com/sakif/blogsite/internal/config"
	"github.com/sakif/blogsite/internal/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the blog API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}

			logger, err := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			// SIGINT (Ctrl+C) or SIGTERM (docker stop, k8s) cancel ctx and
			// start the graceful shutdown.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

// serve opens every dependency, runs the server until ctx is cancelled and
// closes the dependencies in reverse order once the server has stopped.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer closeLogged(logger, "database", store.Close)

	status, err := store.MigrationStatus()
	if err != nil {
		return err
	}
	logger.Info("database ready",
		slog.String("driver", cfg.DBDriver),
		slog.Uint64("schemaVersion", uint64(status.Version)),
	)

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}
	defer closeLogged(logger, "blob store", blobs.Close)

	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer closeLogged(logger, "event publisher", publisher.Close)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return err
	}

	var github *auth.GitHubProvider
	if cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	srv, err := server.New(server.Config{
		Addr:            cfg.Addr,
		MaxImageBytes:   cfg.MaxImageBytes,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, server.Deps{
		Store:     store,
		Blobs:     blobs,
		Publisher: publisher,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(),
		GitHub:    github,
	}, logger)
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}

func closeLogged(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error("failed to close "+name, slog.String("error", err.Error()))
	}
}
