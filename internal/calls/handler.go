package calls

import (
	"encoding/xml"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	apphttp "leadrelay_backend/internal/http"
	"leadrelay_backend/platform/config"
	"leadrelay_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

var errMissingCallRef = errors.New("callback missing call reference")

// twimlResponse is the voice instruction document returned to the provider
// when an outbound call connects. It opens a media stream to the relay
// socket and forwards the AI session URL as a stream parameter.
type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Handler terminates provider voice webhooks. Every webhook endpoint
// acknowledges with 200 regardless of payload validity; the provider
// retries on anything else and the retries never get better data.
type Handler struct {
	ingestor *Ingestor
	cfg      config.TelephonyConfig
	log      *logger.Logger
}

// NewHandler creates the voice webhook handler.
func NewHandler(ingestor *Ingestor, cfg config.TelephonyConfig, log *logger.Logger) *Handler {
	return &Handler{ingestor: ingestor, cfg: cfg, log: log}
}

// HandleStatus processes a call-status callback.
func (h *Handler) HandleStatus(c *gin.Context) {
	defer c.Status(http.StatusOK)

	callRef := c.PostForm("CallSid")
	if callRef == "" {
		h.log.WebhookDropped("voice.status", errMissingCallRef)
		return
	}

	cb := StatusCallback{
		ExternalRef:  callRef,
		VendorStatus: c.PostForm("CallStatus"),
	}
	if raw := c.PostForm("CallDuration"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil {
			cb.DurationSec = &secs
		}
	}

	if err := h.ingestor.IngestStatus(c.Request.Context(), cb); err != nil {
		h.log.WebhookDropped("voice.status", err)
	}
}

// HandleRecording processes a recording-available callback.
func (h *Handler) HandleRecording(c *gin.Context) {
	defer c.Status(http.StatusOK)

	cb := RecordingCallback{
		ExternalRef:  c.PostForm("CallSid"),
		RecordingURL: c.PostForm("RecordingUrl"),
	}
	if cb.ExternalRef == "" || cb.RecordingURL == "" {
		h.log.WebhookDropped("voice.recording", errMissingCallRef)
		return
	}

	if err := h.ingestor.IngestRecording(c.Request.Context(), cb); err != nil {
		h.log.WebhookDropped("voice.recording", err)
	}
}

// HandleTranscription processes a transcription-available callback.
func (h *Handler) HandleTranscription(c *gin.Context) {
	defer c.Status(http.StatusOK)

	cb := TranscriptionCallback{
		ExternalRef:   c.PostForm("CallSid"),
		TranscriptRef: c.PostForm("TranscriptionSid"),
	}
	if cb.TranscriptRef == "" {
		cb.TranscriptRef = c.PostForm("TranscriptionUrl")
	}
	if cb.ExternalRef == "" || cb.TranscriptRef == "" {
		h.log.WebhookDropped("voice.transcription", errMissingCallRef)
		return
	}

	if err := h.ingestor.IngestTranscription(c.Request.Context(), cb); err != nil {
		h.log.WebhookDropped("voice.transcription", err)
	}
}

// HandleConnect answers the provider's request for call instructions once
// the callee picks up. It returns a stream directive pointing at the relay
// socket, carrying the AI session URL created at dispatch time.
func (h *Handler) HandleConnect(c *gin.Context) {
	callRef := c.Query("callRef")
	if callRef == "" {
		callRef = c.PostForm("CallSid")
	}
	sessionURL := c.Query("sessionUrl")
	leadID := c.Query("lead")

	if callRef == "" || sessionURL == "" {
		h.log.WebhookDropped("voice.connect", errMissingCallRef)
		// An empty document makes the provider hang up cleanly.
		c.Data(http.StatusOK, "application/xml", []byte(xml.Header+"<Response></Response>"))
		return
	}

	streamURL := h.cfg.GetRelayBaseURL() + "/api/v1/relay/" + url.PathEscape(callRef)
	doc := twimlResponse{
		Connect: twimlConnect{
			Stream: twimlStream{
				URL: streamURL,
				Parameters: []twimlParameter{
					{Name: "sessionUrl", Value: sessionURL},
					{Name: "lead", Value: leadID},
				},
			},
		},
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		h.log.Error("connect response marshal failed", "error", err)
		c.Data(http.StatusOK, "application/xml", []byte(xml.Header+"<Response></Response>"))
		return
	}
	c.Data(http.StatusOK, "application/xml", append([]byte(xml.Header), out...))
}

// Module is the calls bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the calls module.
func NewModule(ingestor *Ingestor, cfg config.TelephonyConfig, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(ingestor, cfg, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "calls" }

// RegisterRoutes mounts the voice webhook endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	voice := ctx.V1.Group("/voice")
	{
		voice.POST("/status", m.handler.HandleStatus)
		voice.POST("/recording", m.handler.HandleRecording)
		voice.POST("/transcription", m.handler.HandleTranscription)
		voice.POST("/connect", m.handler.HandleConnect)
		voice.GET("/connect", m.handler.HandleConnect)
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
