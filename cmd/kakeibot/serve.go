package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kakeibot/internal/channel"
	"kakeibot/internal/compose"
	"kakeibot/internal/dispatch"
	"kakeibot/internal/journal"
	"kakeibot/internal/metrics"
	"kakeibot/internal/parser"
	"kakeibot/internal/persona"
	"kakeibot/internal/provider"
	"kakeibot/internal/sink"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		Long:  "Serves the chat webhook (plus the optional Telegram webhook and metrics endpoint) until interrupted.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.General.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pers := persona.Default()
	if cfg.Persona.File != "" {
		p, err := persona.Load(cfg.Persona.File, logger)
		if err != nil {
			return fmt.Errorf("persona: %w", err)
		}
		pers = p
	}

	factory := provider.NewFactory(cfg, pers.AckTurn, nil, logger)
	prov, err := factory.DefaultProvider()
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	if err := prov.Healthy(ctx); err != nil {
		logger.Warn("provider unhealthy at startup", "provider", prov.Name(), "err", err)
	} else {
		logger.Info("provider healthy", "provider", prov.Name())
	}

	recordSink := sink.New(sink.Config{
		Endpoint: cfg.Sink.URL,
		Action:   cfg.Sink.Action,
		Timeout:  time.Duration(cfg.Sink.TimeoutSeconds) * time.Second,
		Logger:   logger,
	})
	if !recordSink.Configured() {
		logger.Warn("record sink not configured, expense records will be acknowledged without storage")
	}

	var store *journal.Store
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg.Journal.DBPath, logger)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer store.Close()
	}

	cmdParser := parser.New(parser.Grammar(cfg.General.Grammar))
	composer := compose.New(pers)

	lineTransport := channel.NewLineTransport(channel.LineTransportConfig{
		ChannelToken: cfg.Channels.Line.ChannelToken,
		Logger:       logger,
	})
	lineDispatcher := dispatch.New(dispatch.Config{
		Parser:    cmdParser,
		Sink:      recordSink,
		Journal:   store,
		Provider:  prov,
		Composer:  composer,
		Transport: lineTransport,
		System:    pers.SystemPrompt,
		Timeout:   cfg.RequestTimeout(),
		Logger:    logger,
	})

	srv := channel.NewServer(channel.ServerConfig{
		Port:   cfg.Channels.Line.Port,
		Logger: logger,
	})
	srv.Mount(cfg.Channels.Line.Path, channel.NewLineWebhook(channel.LineWebhookConfig{
		ChannelSecret: cfg.Channels.Line.ChannelSecret,
		Handler:       lineDispatcher,
		Logger:        logger,
	}))
	logger.Info("webhook mounted", "path", cfg.Channels.Line.Path)

	if cfg.Channels.Telegram.Enabled {
		tgTransport, err := channel.NewTelegramTransport(cfg.Channels.Telegram.Token, logger)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		tgDispatcher := dispatch.New(dispatch.Config{
			Parser:    cmdParser,
			Sink:      recordSink,
			Journal:   store,
			Provider:  prov,
			Composer:  composer,
			Transport: tgTransport,
			System:    pers.SystemPrompt,
			Timeout:   cfg.RequestTimeout(),
			Logger:    logger,
		})
		path := cfg.Channels.Telegram.WebhookPath
		if path == "" {
			path = "/telegram"
		}
		srv.Mount(path, channel.NewTelegramWebhook(channel.TelegramWebhookConfig{
			Handler: tgDispatcher,
			Logger:  logger,
		}))
		logger.Info("telegram webhook mounted", "path", path)
	}

	if cfg.Metrics.Enabled {
		endpoint := cfg.Metrics.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		srv.Mount(endpoint, metrics.Collector.Handler())
	}

	logger.Info("serving", "port", cfg.Channels.Line.Port, "grammar", cfg.General.Grammar, "version", version)
	return srv.Start(ctx)
}
