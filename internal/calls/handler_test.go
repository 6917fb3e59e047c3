package calls

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"leadrelay_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testTelephonyConfig struct{}

func (testTelephonyConfig) GetTelephonyBaseURL() string    { return "https://api.twilio.com" }
func (testTelephonyConfig) GetTelephonyAccountSID() string { return "AC000" }
func (testTelephonyConfig) GetTelephonyAuthToken() string  { return "secret" }
func (testTelephonyConfig) GetTelephonyFromNumber() string { return "+15550000000" }
func (testTelephonyConfig) GetPublicBaseURL() string       { return "https://api.example.com" }
func (testTelephonyConfig) GetRelayBaseURL() string        { return "wss://api.example.com" }
func (testTelephonyConfig) IsTelephonyEnabled() bool       { return true }

func newTestRouter(store *MemoryStore) (*gin.Engine, *MemoryStore) {
	gin.SetMode(gin.TestMode)
	log := logger.New("development")
	handler := NewHandler(NewIngestor(store, nil, log), testTelephonyConfig{}, log)

	engine := gin.New()
	engine.POST("/status", handler.HandleStatus)
	engine.POST("/recording", handler.HandleRecording)
	engine.POST("/transcription", handler.HandleTranscription)
	engine.GET("/connect", handler.HandleConnect)
	return engine, store
}

func postForm(t *testing.T, engine *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestStatusWebhookUpdatesCall(t *testing.T) {
	engine, store := newTestRouter(NewMemoryStore())

	rec := postForm(t, engine, "/status", url.Values{
		"CallSid":      {"CA500"},
		"CallStatus":   {"in-progress"},
		"CallDuration": {"17"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	sess, ok := store.Get("CA500")
	if !ok {
		t.Fatal("session not recorded")
	}
	if sess.Status != StatusInProgress {
		t.Errorf("call status = %s, want %s", sess.Status, StatusInProgress)
	}
	if sess.DurationSec == nil || *sess.DurationSec != 17 {
		t.Errorf("duration = %v, want 17", sess.DurationSec)
	}
}

func TestWebhooksAcknowledgeMalformedPayloads(t *testing.T) {
	engine, store := newTestRouter(NewMemoryStore())

	paths := []string{"/status", "/recording", "/transcription"}
	for _, path := range paths {
		rec := postForm(t, engine, path, url.Values{"garbage": {"yes"}})
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 on malformed payload", path, rec.Code)
		}
	}

	if _, ok := store.Get(""); ok {
		t.Error("malformed payload must not create a session")
	}
}

func TestRecordingWebhookAttachesURL(t *testing.T) {
	engine, store := newTestRouter(NewMemoryStore())

	rec := postForm(t, engine, "/recording", url.Values{
		"CallSid":      {"CA600"},
		"RecordingUrl": {"https://recordings.example.com/CA600"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	sess, _ := store.Get("CA600")
	if sess.RecordingURL != "https://recordings.example.com/CA600" {
		t.Errorf("recording url = %q", sess.RecordingURL)
	}
}

func TestConnectReturnsStreamDirective(t *testing.T) {
	engine, _ := newTestRouter(NewMemoryStore())

	q := url.Values{}
	q.Set("callRef", "CA700")
	q.Set("sessionUrl", "wss://ai.example.com/sessions/abc")
	q.Set("lead", "11111111-1111-1111-1111-111111111111")

	req := httptest.NewRequest(http.MethodGet, "/connect?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "wss://api.example.com/api/v1/relay/CA700") {
		t.Errorf("stream url missing from response: %s", body)
	}
	if !strings.Contains(body, "wss://ai.example.com/sessions/abc") {
		t.Errorf("session url parameter missing from response: %s", body)
	}
}

func TestConnectWithoutSessionReturnsEmptyDocument(t *testing.T) {
	engine, _ := newTestRouter(NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/connect", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<Response></Response>") {
		t.Errorf("expected empty voice document, got %s", rec.Body.String())
	}
}
