// Package telephony wraps the Twilio-compatible REST API used to place
// outbound calls and send SMS.
package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadrelay_backend/platform/config"
	"leadrelay_backend/platform/logger"
	"leadrelay_backend/platform/phone"
)

// Client talks to the telephony provider. A nil client is a no-op that
// fails dispatch, which keeps call sites simple when telephony is not
// configured.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	http       *http.Client
	log        *logger.Logger
}

// NewClient creates a telephony client, or nil when credentials are absent.
func NewClient(cfg config.TelephonyConfig, log *logger.Logger) *Client {
	if !cfg.IsTelephonyEnabled() {
		return nil
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.GetTelephonyBaseURL(), "/"),
		accountSID: cfg.GetTelephonyAccountSID(),
		authToken:  cfg.GetTelephonyAuthToken(),
		from:       cfg.GetTelephonyFromNumber(),
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

type createResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// PlaceCall dispatches an outbound call. The provider fetches call
// instructions from connectURL once the leg is answered and posts status
// transitions to statusURL. Returns the external call reference.
func (c *Client) PlaceCall(ctx context.Context, to, connectURL, statusURL string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("telephony not configured")
	}

	form := url.Values{}
	form.Set("To", phone.NormalizeE164(to))
	form.Set("From", c.from)
	form.Set("Url", connectURL)
	form.Set("StatusCallback", statusURL)
	form.Set("StatusCallbackEvent", "initiated ringing answered completed")

	resp, err := c.post(ctx, fmt.Sprintf("/2010-04-01/Accounts/%s/Calls.json", c.accountSID), form)
	if err != nil {
		return "", err
	}

	c.log.Info("outbound call placed", "call_ref", resp.SID, "to", form.Get("To"))
	return resp.SID, nil
}

// SendSMS dispatches a text message. Returns the external message reference.
func (c *Client) SendSMS(ctx context.Context, to, body string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("telephony not configured")
	}

	form := url.Values{}
	form.Set("To", phone.NormalizeE164(to))
	form.Set("From", c.from)
	form.Set("Body", body)

	resp, err := c.post(ctx, fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", c.accountSID), form)
	if err != nil {
		return "", err
	}

	c.log.Info("sms sent", "message_ref", resp.SID, "to", form.Get("To"))
	return resp.SID, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (*createResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telephony request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("telephony provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode telephony response: %w", err)
	}
	return &out, nil
}
