// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"leadrelay_backend/internal/events"
	"leadrelay_backend/platform/config"
	"leadrelay_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterContext carries the route groups modules mount themselves on.
type RouterContext struct {
	Engine *gin.Engine
	V1     *gin.RouterGroup
}

// Module is an HTTP-facing bounded context.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the HTTP server configuration.
	Config config.HTTPConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (e.g., DB ping).
	Health HealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
