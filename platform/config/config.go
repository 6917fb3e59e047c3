// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// OrchestratorConfig provides settings for the response orchestrator.
type OrchestratorConfig interface {
	GetResponseWindow() time.Duration
	GetDealSizeThresholdCents() int64
}

// SchedulerConfig provides settings for the asynq retry scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetRetryInitialDelay() time.Duration
	GetRetryMaxAttempts() int
}

// BrokerConfig provides settings for the outbound queue publisher.
type BrokerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetEmailQueueName() string
	GetChatQueueName() string
}

// TelephonyConfig provides settings for the telephony provider.
type TelephonyConfig interface {
	GetTelephonyBaseURL() string
	GetTelephonyAccountSID() string
	GetTelephonyAuthToken() string
	GetTelephonyFromNumber() string
	GetPublicBaseURL() string
	GetRelayBaseURL() string
	IsTelephonyEnabled() bool
}

// ConversationConfig provides settings for the AI conversation service.
type ConversationConfig interface {
	GetConversationAPIURL() string
	GetConversationAPIKey() string
	GetConversationAgentID() string
	IsConversationEnabled() bool
}

// SMTPConfig provides settings for direct email sending when no broker
// is configured.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsSMTPEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	CORSAllowAll           bool
	CORSOrigins            []string
	CORSAllowCreds         bool
	PublicBaseURL          string
	RelayBaseURL           string
	ResponseWindow         time.Duration
	DealSizeThresholdCents int64
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	RetryInitialDelay      time.Duration
	RetryMaxAttempts       int
	EmailQueueName         string
	ChatQueueName          string
	TelephonyBaseURL       string
	TelephonyAccountSID    string
	TelephonyAuthToken     string
	TelephonyFromNumber    string
	ConversationAPIURL     string
	ConversationAPIKey     string
	ConversationAgentID    string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	EmailFromName          string
	EmailFromAddress       string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// OrchestratorConfig implementation
func (c *Config) GetResponseWindow() time.Duration { return c.ResponseWindow }
func (c *Config) GetDealSizeThresholdCents() int64 { return c.DealSizeThresholdCents }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                 { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool           { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string           { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int            { return c.AsynqConcurrency }
func (c *Config) GetRetryInitialDelay() time.Duration { return c.RetryInitialDelay }
func (c *Config) GetRetryMaxAttempts() int            { return c.RetryMaxAttempts }

// BrokerConfig implementation
func (c *Config) GetEmailQueueName() string { return c.EmailQueueName }
func (c *Config) GetChatQueueName() string  { return c.ChatQueueName }

// TelephonyConfig implementation
func (c *Config) GetTelephonyBaseURL() string    { return c.TelephonyBaseURL }
func (c *Config) GetTelephonyAccountSID() string { return c.TelephonyAccountSID }
func (c *Config) GetTelephonyAuthToken() string  { return c.TelephonyAuthToken }
func (c *Config) GetTelephonyFromNumber() string { return c.TelephonyFromNumber }
func (c *Config) GetPublicBaseURL() string       { return c.PublicBaseURL }
func (c *Config) GetRelayBaseURL() string        { return c.RelayBaseURL }
func (c *Config) IsTelephonyEnabled() bool {
	return c.TelephonyAccountSID != "" && c.TelephonyAuthToken != ""
}

// ConversationConfig implementation
func (c *Config) GetConversationAPIURL() string  { return c.ConversationAPIURL }
func (c *Config) GetConversationAPIKey() string  { return c.ConversationAPIKey }
func (c *Config) GetConversationAgentID() string { return c.ConversationAgentID }
func (c *Config) IsConversationEnabled() bool    { return c.ConversationAPIURL != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsSMTPEnabled() bool         { return c.SMTPHost != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		CORSAllowCreds:         strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		PublicBaseURL:          getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		RelayBaseURL:           getEnv("RELAY_BASE_URL", "ws://localhost:8080"),
		ResponseWindow:         mustDuration(getEnv("RESPONSE_WINDOW", "60s")),
		DealSizeThresholdCents: mustInt64(getEnv("DEAL_SIZE_THRESHOLD_CENTS", "5000000")),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		RetryInitialDelay:      mustDuration(getEnv("RETRY_INITIAL_DELAY", "5m")),
		RetryMaxAttempts:       mustInt(getEnv("RETRY_MAX_ATTEMPTS", "3")),
		EmailQueueName:         getEnv("EMAIL_QUEUE", "outbound:email"),
		ChatQueueName:          getEnv("CHAT_QUEUE", "outbound:chat"),
		TelephonyBaseURL:       getEnv("TELEPHONY_BASE_URL", "https://api.twilio.com"),
		TelephonyAccountSID:    getEnv("TELEPHONY_ACCOUNT_SID", ""),
		TelephonyAuthToken:     getEnv("TELEPHONY_AUTH_TOKEN", ""),
		TelephonyFromNumber:    getEnv("TELEPHONY_FROM_NUMBER", ""),
		ConversationAPIURL:     getEnv("CONVERSATION_API_URL", ""),
		ConversationAPIKey:     getEnv("CONVERSATION_API_KEY", ""),
		ConversationAgentID:    getEnv("CONVERSATION_AGENT_ID", ""),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFromName:          getEnv("EMAIL_FROM_NAME", "Lead Response"),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", ""),
	}

	if cfg.ResponseWindow <= 0 {
		return nil, fmt.Errorf("RESPONSE_WINDOW must be positive")
	}
	if cfg.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func mustInt64(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
