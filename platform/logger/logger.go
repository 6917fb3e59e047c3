// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LeadIDKey is the context key for the lead being processed
	LeadIDKey contextKey = "lead_id"
	// CallRefKey is the context key for the external call reference
	CallRefKey contextKey = "call_ref"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, lead_id, and call_ref from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if leadID, ok := ctx.Value(LeadIDKey).(string); ok && leadID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("lead_id", leadID))}
	}

	if callRef, ok := ctx.Value(CallRefKey).(string); ok && callRef != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("call_ref", callRef))}
	}

	return newLogger
}

// WithCallRef returns a logger bound to an external call reference.
func (l *Logger) WithCallRef(callRef string) *Logger {
	return &Logger{Logger: l.With(slog.String("call_ref", callRef))}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DispatchAttempt logs the outcome of one channel dispatch attempt.
func (l *Logger) DispatchAttempt(leadID, channel, outcome string, err error) {
	if err == nil {
		l.Info("dispatch_attempt",
			slog.String("lead_id", leadID),
			slog.String("channel", channel),
			slog.String("outcome", outcome),
		)
		return
	}
	l.Warn("dispatch_attempt",
		slog.String("lead_id", leadID),
		slog.String("channel", channel),
		slog.String("outcome", outcome),
		slog.String("error", err.Error()),
	)
}

// WebhookDropped logs a malformed or unexpected provider callback.
func (l *Logger) WebhookDropped(kind string, err error) {
	l.Warn("webhook_dropped",
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
