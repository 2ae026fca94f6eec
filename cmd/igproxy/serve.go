package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"igproxy/internal/server"
	"igproxy/pkg/auth"
	"igproxy/pkg/config"
	"igproxy/pkg/instagram"
	"igproxy/pkg/logger"
	"igproxy/pkg/scraper"
	"igproxy/pkg/session"
	"igproxy/pkg/stats"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server that exposes highlights, posts, profile summaries,
session management and stats endpoints.`,
	Example: `  # Serve with defaults (port 8000)
  igproxy serve

  # Serve with a config file
  igproxy serve --config ./igproxy.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := logger.Initialize(logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("igproxy starting")

	sessions, err := buildSessionManager(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build session storage: %w", err)
	}

	challenges := buildChallengeStore(cfg, log)

	factory := func() instagram.API {
		client := instagram.NewClient(cfg.Instagram.RequestTimeout, log)
		client.SetHeader("User-Agent", cfg.Instagram.UserAgent)
		return client
	}

	authenticator := auth.New(sessions, challenges, factory, log, auth.Options{
		ChallengeTTL: cfg.Challenge.TTL,
		MaxAttempts:  cfg.Challenge.MaxAttempts,
	})

	counter := stats.NewCounter(log)
	service := scraper.New(authenticator, counter, log)
	srv := server.New(cfg, service, sessions, counter, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go counter.RunPeriodicReset(ctx, cfg.Stats.ResetInterval)

	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("server stopped with error")
		return err
	}
	log.Info("server stopped")
	return nil
}

// buildSessionManager assembles the store chain for the configured backend.
// The keyring backend falls back to plain files when no keychain is usable.
func buildSessionManager(cfg *config.Config, log logger.Logger) (*session.Manager, error) {
	fileStore, err := session.NewFileStore(cfg.Session.Directory)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Session.Backend) {
	case "keyring":
		keyringStore, err := session.NewKeyringStore()
		if err != nil {
			log.WithError(err).Warn("keyring unavailable, using file sessions only")
			return session.NewManager(log, fileStore)
		}
		return session.NewManager(log, keyringStore, fileStore)
	case "encrypted":
		encryptedStore, err := session.NewEncryptedFileStore(
			cfg.Session.Directory+"/sessions.enc", os.Getenv("IGPROXY_PASSPHRASE"))
		if err != nil {
			return nil, err
		}
		return session.NewManager(log, encryptedStore)
	default:
		return session.NewManager(log, fileStore)
	}
}

// buildChallengeStore uses Redis when configured, in-process memory otherwise
func buildChallengeStore(cfg *config.Config, log logger.Logger) auth.ChallengeStore {
	if cfg.Challenge.RedisAddr == "" {
		return auth.NewMemoryChallengeStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Challenge.RedisAddr,
		Password: cfg.Challenge.RedisPassword,
		DB:       cfg.Challenge.RedisDB,
	})
	log.WithField("addr", cfg.Challenge.RedisAddr).Info("using redis challenge store")
	return auth.NewRedisChallengeStore(client)
}
