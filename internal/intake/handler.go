// Package intake terminates the inbound lead webhook and hands new leads
// to the response orchestrator.
package intake

import (
	"context"
	"errors"
	"net/http"
	"time"

	"leadrelay_backend/internal/events"
	apphttp "leadrelay_backend/internal/http"
	"leadrelay_backend/internal/leads"
	"leadrelay_backend/internal/response"
	"leadrelay_backend/platform/apperr"
	"leadrelay_backend/platform/httpkit"
	"leadrelay_backend/platform/logger"
	"leadrelay_backend/platform/phone"
	"leadrelay_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LeadWebhookRequest is the inbound lead payload from a capture source.
type LeadWebhookRequest struct {
	Name    string `json:"name" validate:"omitempty,max=200"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Email   string `json:"email" validate:"omitempty,email"`
	Company string `json:"company" validate:"omitempty,max=200"`
	Source  string `json:"source" validate:"required,max=64"`
	Message string `json:"message" validate:"omitempty,max=10000"`
}

// Responder starts the response flow for one lead.
type Responder interface {
	Respond(ctx context.Context, event response.LeadIntakeEvent) (response.Result, error)
}

// Handler accepts lead webhooks. Acceptance and response run decoupled:
// the webhook returns as soon as the lead is stored, and the orchestrator
// races channels in the background.
type Handler struct {
	store     leads.Store
	responder Responder
	bus       events.Bus
	validate  *validator.Validator
	log       *logger.Logger
	now       func() time.Time
}

// NewHandler creates the lead intake handler.
func NewHandler(store leads.Store, responder Responder, bus events.Bus, log *logger.Logger) *Handler {
	return &Handler{
		store:     store,
		responder: responder,
		bus:       bus,
		validate:  validator.New(),
		log:       log,
		now:       time.Now,
	}
}

// HandleLeadWebhook stores a new lead and kicks off the response flow.
// Returns 202 with the assigned lead id.
func (h *Handler) HandleLeadWebhook(c *gin.Context) {
	var req LeadWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		valErr := apperr.Validation("validation failed")
		valErr.Details = err.Error()
		httpkit.HandleError(c, valErr)
		return
	}
	event := response.LeadIntakeEvent{
		ID:          uuid.New(),
		Name:        req.Name,
		Phone:       phone.NormalizeE164(req.Phone),
		Email:       req.Email,
		Company:     req.Company,
		Source:      req.Source,
		Message:     req.Message,
		ArrivalTime: h.now(),
	}

	if err := h.store.Create(c.Request.Context(), leads.Record{
		ID:      event.ID,
		Name:    event.Name,
		Phone:   event.Phone,
		Email:   event.Email,
		Company: event.Company,
		Source:  event.Source,
		Message: event.Message,
		Status:  leads.StatusNew,
	}); err != nil {
		h.log.DatabaseError("leads.create", err)
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to store lead", err))
		return
	}

	h.bus.Publish(c.Request.Context(), events.LeadReceived{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    event.ID,
		Source:    event.Source,
	})

	// The response flow outlives this request. The orchestrator's own
	// deadline gating bounds the work, not the request context.
	go h.respond(context.WithoutCancel(c.Request.Context()), event)

	httpkit.JSON(c, http.StatusAccepted, gin.H{
		"leadId": event.ID,
		"status": leads.StatusNew,
	})
}

func (h *Handler) respond(ctx context.Context, event response.LeadIntakeEvent) {
	result, err := h.responder.Respond(ctx, event)
	if err != nil {
		if errors.Is(err, response.ErrChannelUnavailable) {
			h.log.Warn("no response channel for lead", "lead_id", event.ID.String())
			return
		}
		h.log.Error("response flow failed", "lead_id", event.ID.String(), "error", err)
		return
	}
	h.log.Info("response flow finished",
		"lead_id", event.ID.String(),
		"status", string(result.Status),
		"elapsed_ms", result.Elapsed.Milliseconds())
}

// Module is the intake bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the intake module.
func NewModule(store leads.Store, responder Responder, bus events.Bus, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(store, responder, bus, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "intake" }

// RegisterRoutes mounts the lead webhook endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhook/leads", m.handler.HandleLeadWebhook)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
