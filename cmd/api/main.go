package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/birthapp/birthapp-go/internal/blob"
	"github.com/birthapp/birthapp-go/internal/config"
	"github.com/birthapp/birthapp-go/internal/crypto"
	"github.com/birthapp/birthapp-go/internal/github"
	"github.com/birthapp/birthapp-go/internal/handler"
	"github.com/birthapp/birthapp-go/internal/kv"
	"github.com/birthapp/birthapp-go/internal/repository"
	"github.com/birthapp/birthapp-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	ctx := context.Background()

	kvStore, err := openKV(ctx, cfg)
	if err != nil {
		slog.Error("key-value store unavailable", "backend", cfg.ResolveKVBackend(), "error", err)
		os.Exit(1)
	}

	store, err := openBlob(ctx, cfg, kvStore)
	if err != nil {
		slog.Error("blob store unavailable", "backend", cfg.ResolveBlobBackend(), "error", err)
		os.Exit(1)
	}

	gh := github.NewClient(github.Config{
		Token:        cfg.GitHubToken,
		Owner:        cfg.GitHubOwner,
		Repo:         cfg.GitHubRepo,
		Branch:       cfg.GitHubBranch,
		Path:         cfg.GitHubPath,
		APIURL:       cfg.GitHubAPIURL,
		RawURL:       cfg.GitHubRawURL,
		BranchPrefix: cfg.GitHubBranchPrefix,
	})

	// Local mode: an in-memory store with no repository configured keeps
	// writes local instead of failing every one of them.
	var source service.SnapshotSource = gh
	var proposer service.Proposer = gh
	if store.Kind() == config.BackendMemory && !gh.Config().Configured() {
		slog.Warn("GitHub is not configured; running in local mode without pull requests")
		source, proposer = nil, nil
	}

	if cfg.AuthSecret == "" {
		slog.Warn("AUTH_SECRET is not set; sign-in is disabled")
	}
	tokens := crypto.NewTokenService(cfg.AuthSecret, cfg.TokenTTL())

	authService := service.NewAuthService(
		repository.NewUserRepository(kvStore),
		repository.NewInviteRepository(kvStore),
		tokens,
		cfg.AdminInitialPassword,
	)
	peopleService := service.NewPeopleService(store, source, proposer)
	syncService := service.NewSyncService(gh, gh.Config(), store)
	healthService := service.NewHealthService(cfg, store, kvStore)

	router := handler.NewRouter(handler.Routes{
		Tokens:         tokens,
		BootstrapToken: cfg.BootstrapToken,
		Auth:           handler.NewAuthHandler(authService, handler.CookieOptions{Secure: cfg.CookieSecure, TTL: tokens.TTL()}),
		People:         handler.NewPeopleHandler(peopleService),
		Sync:           handler.NewSyncHandler(syncService),
		Health:         handler.NewHealthHandler(healthService),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "kv", kvStore.Kind(), "blob", store.Kind())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openKV(ctx context.Context, cfg config.Config) (kv.Store, error) {
	switch cfg.ResolveKVBackend() {
	case config.BackendUpstash:
		return kv.NewUpstash(cfg.KVRestURL, cfg.KVRestToken)
	case config.BackendMySQL:
		if cfg.DatabaseDSN == "" {
			return nil, errors.New("DATABASE_DSN is required for the mysql backend")
		}
		db, err := repository.NewDB(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		store := kv.NewMySQL(db)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Warn("could not ensure kv schema", "error", err)
		}
		return store, nil
	default:
		slog.Warn("using in-memory key-value store; accounts are lost on restart")
		return kv.NewMemory(), nil
	}
}

func openBlob(ctx context.Context, cfg config.Config, kvStore kv.Store) (blob.Store, error) {
	switch cfg.ResolveBlobBackend() {
	case config.BackendVercel:
		return blob.NewVercel(blob.VercelConfig{
			BaseURL: cfg.BlobBaseURL,
			APIURL:  cfg.BlobAPIURL,
			Token:   cfg.BlobReadWriteToken,
			Key:     cfg.BlobJSONKey,
		})
	case config.BackendS3:
		return blob.NewS3(ctx, blob.S3Config{
			Bucket:          cfg.S3Bucket,
			Key:             cfg.BlobJSONKey,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case config.BackendKV:
		return blob.NewKV(kvStore), nil
	default:
		return blob.NewMemoryFromFile(cfg.LocalSnapshotPath)
	}
}
