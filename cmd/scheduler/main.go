package main

import (
	"context"
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
	"leadrelay_backend/internal/leads"
	"leadrelay_backend/internal/response"
	"leadrelay_backend/internal/response/channel"
	"leadrelay_backend/internal/scheduler"
	"leadrelay_backend/internal/telephony"
	"leadrelay_backend/platform/config"
	"leadrelay_backend/platform/db"
	"leadrelay_backend/platform/logger"
)

// The retry worker re-runs the response flow for leads whose first round
// failed on every channel. It shares the composition of the API binary but
// consumes tasks instead of HTTP requests.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting retry worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the retry worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	leadStore := leads.NewRepository(pool)
	callStore := calls.NewRepository(pool)
	recorder := activity.NewRepository(pool, log)

	retryClient, err := scheduler.NewClient(cfg, recorder, eventBus, log)
	if err != nil {
		log.Error("failed to initialize retry scheduler client", "error", err)
		panic("failed to initialize retry scheduler client: " + err.Error())
	}
	defer retryClient.Close()

	publisher, err := broker.NewRedisPublisher(cfg, log)
	if err != nil {
		log.Error("failed to initialize broker publisher", "error", err)
		panic("failed to initialize broker publisher: " + err.Error())
	}

	telephonyClient := telephony.NewClient(cfg, log)
	sessionClient := conversation.NewClient(cfg, log)

	var fallback email.Sender = email.NoopSender{}
	if cfg.GetSMTPHost() != "" {
		fallback = email.NewSender(cfg)
	}

	var pub broker.Publisher
	if publisher != nil {
		pub = publisher
	}

	adapters := []response.Adapter{
		channel.NewVoiceAdapter(sessionClient, telephonyClient, callStore, cfg.GetPublicBaseURL(), cfg.GetDealSizeThresholdCents(), log),
		channel.NewSMSAdapter(telephonyClient, cfg.GetEmailFromName()),
		channel.NewEmailAdapter(pub, cfg.GetEmailQueueName(), fallback, cfg.GetEmailFromName()),
		channel.NewChatAdapter(pub, cfg.GetChatQueueName()),
	}

	orchestrator := response.NewOrchestrator(
		adapters, leadStore, recorder, retryClient, eventBus, cfg.GetResponseWindow(), log)

	worker, err := scheduler.NewWorker(cfg, orchestrator, log)
	if err != nil {
		log.Error("failed to initialize retry worker", "error", err)
		panic("failed to initialize retry worker: " + err.Error())
	}

	workerErr := make(chan error, 1)
	go func() {
		workerErr <- worker.Run()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, draining retry worker")
		worker.Shutdown()
		// Give in-flight retry rounds a moment to settle before exiting.
		time.Sleep(time.Second)
	case err := <-workerErr:
		if err != nil {
			log.Error("retry worker error", "error", err)
			panic("retry worker error: " + err.Error())
		}
	}
}
