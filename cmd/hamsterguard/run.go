package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hamsterguard/internal/channel"
	"hamsterguard/internal/classify"
	"hamsterguard/internal/config"
	"hamsterguard/internal/extract"
	"hamsterguard/internal/guard"
	"hamsterguard/internal/metrics"
	"hamsterguard/internal/moderate"
	"hamsterguard/internal/openrouter"
	"hamsterguard/internal/summarizer"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and start moderating",
		RunE:  runGuard,
	}
}

func runGuard(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.General.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ruleset, err := classify.LoadRuleset(cfg.Ruleset.Path, logger)
	if err != nil {
		return fmt.Errorf("ruleset: %w", err)
	}

	// One pooled HTTP client for the whole process; closed on shutdown.
	httpClient := openrouter.SharedHTTPClient(0)
	defer httpClient.CloseIdleConnections()

	orClient := openrouter.New(openrouter.Config{
		APIKey:  cfg.OpenRouter.APIKey,
		APIBase: cfg.OpenRouter.APIBase,
		Client:  httpClient,
		Logger:  logger,
	})

	if err := orClient.Healthy(ctx); err != nil {
		logger.Warn("openrouter unhealthy at startup", "err", err)
	} else {
		logger.Info("openrouter healthy")
	}

	vision := classify.NewVision(classify.VisionConfig{
		Client:  orClient,
		Model:   cfg.OpenRouter.VisionModel,
		Prompt:  ruleset.VisionPrompt,
		Timeout: time.Duration(cfg.OpenRouter.TimeoutSeconds) * time.Second,
		Logger:  logger,
	})

	discord := channel.NewDiscord(channel.DiscordConfig{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
		Logger:  logger,
	})

	executor := moderate.New(moderate.Config{
		Platform:        discord,
		NoticeTemplate:  ruleset.NoticeTemplate,
		NoticeOverrides: ruleset.NoticeOverrides,
		Logger:          logger,
	})

	g := guard.New(guard.Config{
		Extractor: extract.New(ruleset.ImageExtensions, ruleset.VideoExtensions),
		Metadata:  classify.NewMetadata(ruleset),
		Vision:    vision,
		Executor:  executor,
		Logger:    logger,
	})
	discord.SetScanner(g)

	if cfg.Summarizer.Enabled {
		model := cfg.Summarizer.Model
		if model == "" {
			model = cfg.OpenRouter.VisionModel
		}
		discord.SetHandler(summarizer.New(summarizer.Config{
			Platform:     discord,
			Client:       orClient,
			Model:        model,
			RoleID:       cfg.Summarizer.RoleID,
			HistoryLimit: cfg.Summarizer.HistoryLimit,
			Timeout:      time.Duration(cfg.OpenRouter.TimeoutSeconds) * time.Second,
			Logger:       logger,
		}))
		logger.Info("summarizer enabled", "role_id", cfg.Summarizer.RoleID)
	}

	if cfg.Metrics.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Collector.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "err", err)
			}
		}()
		defer srv.Close()
		logger.Info("metrics listening", "addr", addr)
	}

	logger.Info("starting guard", "version", version)
	return discord.Start(ctx)
}
