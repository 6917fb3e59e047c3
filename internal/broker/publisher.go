// Package broker provides the outbound queue publish interface. This core
// only enqueues; consumers live in other services.
package broker

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"

	"leadrelay_backend/platform/config"
	"leadrelay_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Publisher enqueues a payload on a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload any) error
}

// RedisPublisher pushes JSON payloads onto redis lists.
type RedisPublisher struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisPublisher connects to redis using the broker configuration.
// Returns nil when no redis URL is configured.
func NewRedisPublisher(cfg config.BrokerConfig, log *logger.Logger) (*RedisPublisher, error) {
	if cfg.GetRedisURL() == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
		} else {
			opt.TLSConfig.InsecureSkipVerify = true
		}
	}

	return &RedisPublisher{client: redis.NewClient(opt), log: log}, nil
}

// Publish marshals the payload and LPUSHes it onto the queue.
func (p *RedisPublisher) Publish(ctx context.Context, queue string, payload any) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("broker not configured")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal queue payload: %w", err)
	}

	if err := p.client.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	p.log.Debug("queue publish", "queue", queue)
	return nil
}

// Close releases the redis connection.
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Compile-time check.
var _ Publisher = (*RedisPublisher)(nil)
