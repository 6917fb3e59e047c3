package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"leadrelay_backend/internal/events"
	apphttp "leadrelay_backend/internal/http"
	"leadrelay_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// startMessage is the connect handshake the telephony provider sends after
// opening its media-stream socket. It delivers the session reference the
// relay dials for the AI leg.
type startMessage struct {
	Event string `json:"event"`
	Start struct {
		CallRef          string            `json:"callRef"`
		CustomParameters map[string]string `json:"customParameters"`
	} `json:"start"`
}

const handshakeTimeout = 10 * time.Second

// Handler owns the relay socket endpoint: one connection per call.
type Handler struct {
	upgrader websocket.Upgrader
	bus      events.Bus
	log      *logger.Logger
}

// NewHandler creates the relay socket handler.
func NewHandler(bus events.Bus, log *logger.Logger) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The provider connects server-to-server without an Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		bus: bus,
		log: log,
	}
}

// HandleStream upgrades the provider's media-stream connection, completes
// the connect handshake, dials the AI leg, and runs the relay until either
// leg closes. A relay failure ends this call's AI assistance; it is never
// retried.
func (h *Handler) HandleStream(c *gin.Context) {
	callRef := c.Param("callRef")
	log := h.log.WithCallRef(callRef)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("relay upgrade failed", "error", err)
		return
	}
	telephonyLeg := NewSocketLeg(conn)

	sessionURL, err := awaitHandshake(conn)
	if err != nil {
		log.Warn("relay handshake failed", "error", err)
		_ = telephonyLeg.Close()
		return
	}

	aiLeg, err := DialAILeg(c.Request.Context(), sessionURL, nil)
	if err != nil {
		log.Warn("ai leg dial failed", "error", err)
		_ = telephonyLeg.Close()
		return
	}

	r := New(callRef, telephonyLeg, aiLeg, h.bus, h.log)
	if err := r.Run(c.Request.Context()); err != nil {
		log.Warn("relay ended with error", "error", err)
	}
}

// awaitHandshake reads frames until the start event arrives and returns
// the AI session URL it carries.
func awaitHandshake(conn *websocket.Conn) (string, error) {
	deadline := time.Now().Add(handshakeTimeout)
	_ = conn.SetReadDeadline(deadline)
	defer func() {
		_ = conn.SetReadDeadline(time.Time{})
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return "", err
		}

		var msg startMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Media frames must not arrive before start; anything
			// unparseable here is a protocol violation.
			return "", fmt.Errorf("unexpected pre-start frame: %w", err)
		}
		if msg.Event != "start" {
			continue
		}

		sessionURL := msg.Start.CustomParameters["sessionUrl"]
		if sessionURL == "" {
			return "", fmt.Errorf("start event missing sessionUrl parameter")
		}
		return sessionURL, nil
	}
}

// Module is the relay bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the relay module.
func NewModule(bus events.Bus, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(bus, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "relay" }

// RegisterRoutes mounts the relay socket endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/relay/:callRef", m.handler.HandleStream)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
