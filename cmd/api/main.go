package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadrelay_backend/internal/activity"
	"leadrelay_backend/internal/broker"
	"leadrelay_backend/internal/calls"
	"leadrelay_backend/internal/conversation"
	"leadrelay_backend/internal/email"
	"leadrelay_backend/internal/events"
	apphttp "leadrelay_backend/internal/http"
	"leadrelay_backend/internal/http/router"
	"leadrelay_backend/internal/intake"
	"leadrelay_backend/internal/leads"
	"leadrelay_backend/internal/relay"
	"leadrelay_backend/internal/response"
	"leadrelay_backend/internal/response/channel"
	"leadrelay_backend/internal/scheduler"
	"leadrelay_backend/internal/telephony"
	"leadrelay_backend/migrations"
	"leadrelay_backend/platform/config"
	"leadrelay_backend/platform/db"
	"leadrelay_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadStore := leads.NewRepository(pool)
	callStore := calls.NewRepository(pool)
	recorder := activity.NewRepository(pool, log)

	retryClient := initRetryScheduler(cfg, recorder, eventBus, log)
	if retryClient != nil {
		defer retryClient.Close()
	}

	publisher := initBrokerPublisher(cfg, log)

	telephonyClient := telephony.NewClient(cfg, log)
	sessionClient := conversation.NewClient(cfg, log)

	adapters := buildAdapters(cfg, publisher, telephonyClient, sessionClient, callStore, log)

	var retry response.RetryScheduler
	if retryClient != nil {
		retry = retryClient
	}
	orchestrator := response.NewOrchestrator(
		adapters, leadStore, recorder, retry, eventBus, cfg.GetResponseWindow(), log)

	ingestor := calls.NewIngestor(callStore, eventBus, log)

	intakeModule := intake.NewModule(leadStore, orchestrator, eventBus, log)
	callsModule := calls.NewModule(ingestor, cfg, log)
	relayModule := relay.NewModule(eventBus, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			intakeModule,
			callsModule,
			relayModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// buildAdapters assembles the channel adapters in their fixed registration
// order. Selection order per lead is decided later by the channel rules.
func buildAdapters(cfg *config.Config, publisher broker.Publisher, tel *telephony.Client, sessions *conversation.Client, callStore calls.Store, log *logger.Logger) []response.Adapter {
	// NoopSender rejects every send, so with neither broker nor SMTP the
	// email attempt fails at dispatch rather than claiming contact.
	var fallback email.Sender = email.NoopSender{}
	if cfg.GetSMTPHost() != "" {
		fallback = email.NewSender(cfg)
	}

	return []response.Adapter{
		channel.NewVoiceAdapter(sessions, tel, callStore, cfg.GetPublicBaseURL(), cfg.GetDealSizeThresholdCents(), log),
		channel.NewSMSAdapter(tel, cfg.GetEmailFromName()),
		channel.NewEmailAdapter(publisher, cfg.GetEmailQueueName(), fallback, cfg.GetEmailFromName()),
		channel.NewChatAdapter(publisher, cfg.GetChatQueueName()),
	}
}

func initRetryScheduler(cfg config.SchedulerConfig, recorder activity.Recorder, bus events.Bus, log *logger.Logger) *scheduler.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; response retries disabled")
		return nil
	}

	client, err := scheduler.NewClient(cfg, recorder, bus, log)
	if err != nil {
		log.Error("failed to initialize retry scheduler client", "error", err)
		return nil
	}
	return client
}

func initBrokerPublisher(cfg config.BrokerConfig, log *logger.Logger) broker.Publisher {
	publisher, err := broker.NewRedisPublisher(cfg, log)
	if err != nil {
		log.Error("failed to initialize broker publisher", "error", err)
		return nil
	}
	if publisher == nil {
		log.Warn("REDIS_URL not configured; email and chat handoffs fall back to direct delivery")
		return nil
	}
	return publisher
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("%s: %w", name, lastErr)
}
