// Package conversation wraps the AI conversation service that hosts the
// voice qualification sessions.
package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadrelay_backend/internal/response"
	"leadrelay_backend/platform/config"
	"leadrelay_backend/platform/logger"
)

// Session is an ephemeral AI conversation session. The URL is time-limited
// and single-use; it must be dialed before ExpiresAt.
type Session struct {
	Ref       string    `json:"ref"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Client requests ephemeral sessions from the conversation service.
type Client struct {
	baseURL string
	apiKey  string
	agentID string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a conversation client, or nil when not configured.
func NewClient(cfg config.ConversationConfig, log *logger.Logger) *Client {
	if !cfg.IsConversationEnabled() {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.GetConversationAPIURL(), "/"),
		apiKey:  cfg.GetConversationAPIKey(),
		agentID: cfg.GetConversationAgentID(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

type createSessionRequest struct {
	AgentID   string             `json:"agentId"`
	Framework response.Framework `json:"framework"`
	Criteria  []string           `json:"criteria"`
	Business  map[string]string  `json:"business"`
	Goal      string             `json:"goal"`
}

// CreateSession requests a connectable session URL for the given
// qualification context.
func (c *Client) CreateSession(ctx context.Context, convCtx response.ConversationContext) (Session, error) {
	if c == nil {
		return Session{}, fmt.Errorf("conversation service not configured")
	}

	body, err := json.Marshal(createSessionRequest{
		AgentID:   c.agentID,
		Framework: convCtx.Framework,
		Criteria:  convCtx.Criteria,
		Business:  convCtx.Business,
		Goal:      convCtx.Goal,
	})
	if err != nil {
		return Session{}, fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("conversation request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return Session{}, fmt.Errorf("conversation service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return Session{}, fmt.Errorf("decode session response: %w", err)
	}

	c.log.Debug("conversation session created", "session_ref", session.Ref, "framework", string(convCtx.Framework))
	return session, nil
}
