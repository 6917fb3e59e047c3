package scheduler

import (
	"context"
	"fmt"

	"leadrelay_backend/internal/response"
	"leadrelay_backend/platform/config"
	"leadrelay_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Responder re-runs a response round for a retried lead.
type Responder interface {
	RespondRetry(ctx context.Context, event response.LeadIntakeEvent, priorFailures int) (response.Result, error)
}

// Worker consumes lead retry tasks and feeds them back into the
// orchestrator.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	responder Responder
	log       *logger.Logger
}

// NewWorker creates the retry worker.
func NewWorker(cfg config.SchedulerConfig, responder Responder, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		responder: responder,
		log:       log,
	}

	mux.HandleFunc(TaskLeadRetry, w.handleLeadRetry)

	return w, nil
}

// Run starts the worker and blocks until the server stops.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleLeadRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadRetryPayload(task)
	if err != nil {
		// Malformed payloads can never succeed; do not let asynq retry them.
		w.log.Error("invalid lead retry payload", "error", err)
		return nil
	}

	result, err := w.responder.RespondRetry(ctx, payload.Event, payload.AttemptCount)
	if err != nil {
		// ChannelUnavailable is permanent for this event.
		w.log.Warn("lead retry not dispatchable", "lead_id", payload.Event.ID, "error", err)
		return nil
	}

	w.log.Info("lead retry round finished",
		"lead_id", payload.Event.ID,
		"attempt", payload.AttemptCount,
		"status", string(result.Status),
		"elapsed_ms", result.Elapsed.Milliseconds())
	return nil
}
