package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/applyflow/applyflow/pkg/backend"
	"github.com/applyflow/applyflow/pkg/capabilities"
	"github.com/applyflow/applyflow/pkg/config"
	"github.com/applyflow/applyflow/pkg/conversation"
	"github.com/applyflow/applyflow/pkg/inference/openai"
	"github.com/applyflow/applyflow/pkg/orchestrator"
	"github.com/applyflow/applyflow/pkg/sessions"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "applyflow",
	Short: "Multi-agent assistant for managing a job search",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log)
	return cfg, nil
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func buildStore(cfg *config.Config) (sessions.Store, error) {
	switch cfg.Sessions.Backend {
	case "redis":
		return sessions.NewRedisStore(sessions.RedisOptions{
			Addr:     cfg.Sessions.Redis.Addr,
			Password: cfg.Sessions.Redis.Password,
			DB:       cfg.Sessions.Redis.DB,
		}), nil
	case "file":
		return sessions.NewFileStore(cfg.Sessions.Dir)
	default:
		return nil, errors.Errorf("unknown sessions backend %q", cfg.Sessions.Backend)
	}
}

func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, sessions.Store, error) {
	eng, err := openai.NewEngine(openai.Settings{
		APIKey:  cfg.Model.APIKey,
		BaseURL: cfg.Model.BaseURL,
		Model:   cfg.Model.Name,
	})
	if err != nil {
		return nil, nil, err
	}

	applicationsClient := backend.NewApplicationsClient(cfg.Backend.ApplicationsURL)
	resumesClient := backend.NewResumesClient(cfg.Backend.ResumesURL)

	analytics, err := capabilities.NewJobAnalytics(eng, applicationsClient)
	if err != nil {
		return nil, nil, err
	}
	management, err := capabilities.NewApplicationManagement(eng, applicationsClient)
	if err != nil {
		return nil, nil, err
	}
	resume, err := capabilities.NewResume(eng, resumesClient)
	if err != nil {
		return nil, nil, err
	}

	store, err := buildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	orch, err := orchestrator.New(
		orchestrator.WithEngine(eng),
		orchestrator.WithStore(store),
		orchestrator.WithCapabilities(analytics, management, resume),
		orchestrator.WithWindowPolicy(conversation.Policy{
			MaxTurns:        cfg.Sessions.WindowSize,
			TruncateResults: cfg.Sessions.TruncateResults,
			MaxResultBytes:  cfg.Sessions.MaxResultBytes,
		}),
		orchestrator.WithMaxIterations(cfg.Model.MaxIterations),
		orchestrator.WithPersistToolTurns(cfg.Sessions.PersistToolTurns),
	)
	if err != nil {
		return nil, nil, err
	}
	return orch, store, nil
}
