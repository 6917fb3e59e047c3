package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"leadrelay_backend/internal/activity"
	"leadrelay_backend/internal/events"
	"leadrelay_backend/internal/response"
	"leadrelay_backend/platform/config"
	"leadrelay_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client schedules delayed lead retry tasks. It implements
// response.RetryScheduler: a fixed initial delay, exponential backoff on
// subsequent failures, and a hard attempt cap after which the lead gets a
// terminal exhausted record and no further automatic action.
type Client struct {
	client       *asynq.Client
	queue        string
	initialDelay time.Duration
	maxAttempts  int
	recorder     activity.Recorder
	bus          events.Bus
	log          *logger.Logger
}

// NewClient creates the retry scheduler client.
func NewClient(cfg config.SchedulerConfig, recorder activity.Recorder, bus events.Bus, log *logger.Logger) (*Client, error) {
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

	return &Client{
		client:       asynq.NewClient(opt),
		queue:        queue,
		initialDelay: cfg.GetRetryInitialDelay(),
		maxAttempts:  cfg.GetRetryMaxAttempts(),
		recorder:     recorder,
		bus:          bus,
		log:          log,
	}, nil
}

// Close releases the asynq client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Enqueue schedules the next retry round, or records ExhaustedRetries when
// the attempt cap is reached.
func (c *Client) Enqueue(ctx context.Context, event response.LeadIntakeEvent, attemptCount int) error {
	if attemptCount >= c.maxAttempts {
		return c.exhaust(ctx, event, attemptCount)
	}

	task, err := NewLeadRetryTask(LeadRetryPayload{Event: event, AttemptCount: attemptCount})
	if err != nil {
		return err
	}

	delay := RetryDelay(c.initialDelay, attemptCount)
	if _, err := c.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.Queue(c.queue)); err != nil {
		return err
	}

	c.log.Info("lead retry scheduled",
		"lead_id", event.ID,
		"attempt", attemptCount,
		"delay", delay.String())

	_ = c.recorder.Record(ctx, activity.Entry{
		LeadID:  event.ID,
		Kind:    activity.KindRetry,
		Outcome: "scheduled",
		Metadata: map[string]any{
			"attempt":  attemptCount,
			"delay_ms": delay.Milliseconds(),
		},
	})
	return nil
}

func (c *Client) exhaust(ctx context.Context, event response.LeadIntakeEvent, attemptCount int) error {
	c.log.Warn("lead retries exhausted", "lead_id", event.ID, "attempts", attemptCount)

	_ = c.recorder.Record(ctx, activity.Entry{
		LeadID:   event.ID,
		Kind:     activity.KindRetry,
		Outcome:  "exhausted",
		Detail:   response.ErrExhaustedRetries.Error(),
		Metadata: map[string]any{"attempts": attemptCount},
	})

	if c.bus != nil {
		c.bus.Publish(ctx, events.ResponseExhausted{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    event.ID,
			Attempts:  attemptCount,
		})
	}
	return nil
}

// RetryDelay returns the delay before the next round: the initial delay for
// the first failure, doubling for each failure after that.
func RetryDelay(initial time.Duration, attemptCount int) time.Duration {
	delay := initial
	for i := 1; i < attemptCount; i++ {
		delay *= 2
	}
	return delay
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}

// Compile-time check.
var _ response.RetryScheduler = (*Client)(nil)
