package cmd

import (
	"context"
	"fmt"
	"time"

	"happyfool/application"
	"happyfool/bot"
	"happyfool/config"
	"happyfool/domain/events"
	"happyfool/domain/interfaces"
	"happyfool/infrastructure"
	"happyfool/infrastructure/observability"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const healthCheckInterval = 10 * time.Second

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg.LogLevel, cfg.LogFormat)

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"transport":   cfg.ChatTransport,
		"store":       cfg.StoreDriver,
	}).Info("Starting happyfool...")

	// Storage
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()
	log.Info("Ledger store ready")

	// Metrics
	metricsProvider := observability.NewMetricsProvider(cfg)
	if err := metricsProvider.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error shutting down metrics provider")
		}
	}()

	// Messaging
	var natsClient *infrastructure.NATSClient
	var eventPublisher interfaces.EventPublisher = infrastructure.NewNoopEventPublisher()
	if cfg.NATSEnabled {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Error("Error closing NATS connection")
			}
		}()

		mapper := infrastructure.NewEventSubjectMapper()
		if err := infrastructure.EnsureDomainEventStream(natsClient, mapper); err != nil {
			return fmt.Errorf("failed to ensure domain event stream: %w", err)
		}
		natsPublisher := infrastructure.NewNATSEventPublisher(natsClient, mapper)
		natsPublisher.RegisterLocalHandler(events.EventTypeGamePlayed, logGamePlayed)
		eventPublisher = natsPublisher
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(st.repositories, eventPublisher)

	// Core services
	ledger := application.NewLedgerStore(uowFactory, cfg.StartingBalance, metricsProvider)
	executor := application.NewTransactionExecutor(ledger, metricsProvider)
	registry := application.NewCommandRegistry(uowFactory)
	dispatcher := application.NewDispatcher(ledger, executor, registry, cfg.CommandPrefix, cfg.PointsName, metricsProvider)

	builtins, err := application.NewBuiltinConfig(cfg)
	if err != nil {
		return err
	}
	dispatcher.RegisterBuiltins(builtins)

	// Chat transport
	health := infrastructure.NewHealthServer(cfg.HealthAddr, healthCheckInterval)
	health.AddCheck("store", st.ping)

	var sender application.ChatSender
	var discordBot *bot.Bot
	switch cfg.ChatTransport {
	case config.TransportDiscord:
		discordBot, err = bot.New(bot.Config{
			Token:             cfg.DiscordToken,
			GuildID:           cfg.GuildID,
			ModeratorRoleIDs:  cfg.ModeratorRoleIDs,
			SubscriberRoleIDs: cfg.SubscriberRoleIDs,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Discord bot: %w", err)
		}
		sender = discordBot
		health.AddCheck("discord", discordBot.Ping)
	case config.TransportNATS:
		if natsClient == nil {
			return fmt.Errorf("chat transport %s requires NATS_ENABLED", cfg.ChatTransport)
		}
		if err := infrastructure.EnsureChatOutboundStream(natsClient, cfg.ChatOutboundSubjectPrefix); err != nil {
			return fmt.Errorf("failed to ensure outbound chat stream: %w", err)
		}
		sender = infrastructure.NewNATSChatSender(natsClient, cfg.ChatOutboundSubjectPrefix)
	default:
		return fmt.Errorf("unknown chat transport: %s", cfg.ChatTransport)
	}
	if natsClient != nil {
		health.AddCheck("nats", func(context.Context) error {
			if !natsClient.IsConnected() {
				return fmt.Errorf("nats is disconnected")
			}
			return nil
		})
	}

	normalizer := application.NewNormalizer(cfg.DedupWindowSize, cfg.DedupWindowTTL)
	pipeline := application.NewPipeline(normalizer, dispatcher, sender, cfg.DispatchWorkers, cfg.DispatchQueueSize, metricsProvider)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pipeline.Run(gctx)
	})
	g.Go(func() error {
		return health.Run(gctx)
	})

	switch {
	case discordBot != nil:
		if err := discordBot.Open(gctx, pipeline); err != nil {
			return err
		}
		defer func() {
			if err := discordBot.Close(); err != nil {
				log.WithError(err).Error("Error closing Discord bot")
			}
		}()
	default:
		ingest := infrastructure.NewChatIngest(natsClient, cfg.ChatIngestSubject, pipeline)
		if err := ingest.Start(gctx); err != nil {
			return fmt.Errorf("failed to start chat ingest: %w", err)
		}
	}

	if cfg.AccrualEnabled {
		accrual := application.NewPointsAccrualWorker(ledger, executor, cfg.AccrualInterval, cfg.AccrualAmount)
		stopAccrual, err := accrual.Start(gctx)
		if err != nil {
			return err
		}
		defer stopAccrual()
	}

	log.WithField("prefix", cfg.CommandPrefix).Info("happyfool is running")

	err = g.Wait()
	log.Info("Shutting down happyfool...")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func logGamePlayed(ctx context.Context, event events.Event) error {
	played, ok := event.(events.GamePlayedEvent)
	if !ok {
		return nil
	}
	log.WithFields(log.Fields{
		"accountID":  played.AccountID,
		"game":       played.Game,
		"stake":      played.Stake,
		"multiplier": played.Multiplier,
		"net":        played.Net,
	}).Info("Game played")
	return nil
}
