package channel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"leadrelay_backend/internal/email"
	"leadrelay_backend/internal/response"

	"github.com/google/uuid"
)

type fakePublisher struct {
	queue    string
	payloads []any
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, queue string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.queue = queue
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeSMS struct {
	ref  string
	err  error
	to   string
	body string
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) (string, error) {
	f.to = to
	f.body = body
	if f.err != nil {
		return "", f.err
	}
	return f.ref, nil
}

type fakeEmailSender struct {
	sent int
	err  error
}

func (f *fakeEmailSender) Send(_ context.Context, _, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent++
	return nil
}

func TestSMSDispatch(t *testing.T) {
	sms := &fakeSMS{ref: "SM1"}
	adapter := NewSMSAdapter(sms, "Acme")

	dispatch, err := adapter.Dispatch(context.Background(), response.LeadIntakeEvent{
		ID:    uuid.New(),
		Name:  "Jo",
		Phone: "+31612345678",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if dispatch.ExternalRef != "SM1" {
		t.Errorf("external ref = %s", dispatch.ExternalRef)
	}
	if sms.to != "+31612345678" {
		t.Errorf("to = %s", sms.to)
	}
	if !strings.Contains(sms.body, "Jo") || !strings.Contains(sms.body, "Acme") {
		t.Errorf("body = %q", sms.body)
	}
}

func TestSMSDispatchProviderRejection(t *testing.T) {
	adapter := NewSMSAdapter(&fakeSMS{err: errors.New("blocked")}, "Acme")

	_, err := adapter.Dispatch(context.Background(), response.LeadIntakeEvent{ID: uuid.New(), Phone: "+31612345678"})
	var dispatchErr *response.ExternalDispatchError
	if !errors.As(err, &dispatchErr) {
		t.Fatalf("error = %v, want *ExternalDispatchError", err)
	}
	if dispatchErr.Channel != response.ChannelSMS {
		t.Errorf("channel = %s", dispatchErr.Channel)
	}
}

func TestEmailDispatchViaBroker(t *testing.T) {
	pub := &fakePublisher{}
	adapter := NewEmailAdapter(pub, "outbound:email", nil, "Acme")

	dispatch, err := adapter.Dispatch(context.Background(), response.LeadIntakeEvent{
		ID:    uuid.New(),
		Email: "a@b.com",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if dispatch.ExternalRef == "" {
		t.Error("no external ref assigned")
	}
	if pub.queue != "outbound:email" {
		t.Errorf("queue = %s", pub.queue)
	}
	if len(pub.payloads) != 1 {
		t.Fatalf("payloads = %d", len(pub.payloads))
	}
	msg, ok := pub.payloads[0].(EmailMessage)
	if !ok {
		t.Fatalf("payload type %T", pub.payloads[0])
	}
	if msg.To != "a@b.com" {
		t.Errorf("to = %s", msg.To)
	}
}

func TestEmailDispatchFallsBackToSMTP(t *testing.T) {
	sender := &fakeEmailSender{}
	adapter := NewEmailAdapter(nil, "outbound:email", sender, "Acme")

	_, err := adapter.Dispatch(context.Background(), response.LeadIntakeEvent{ID: uuid.New(), Email: "a@b.com"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if sender.sent != 1 {
		t.Errorf("smtp sends = %d, want 1", sender.sent)
	}
}

func TestEmailDispatchWithoutTransportFails(t *testing.T) {
	// Neither broker nor SMTP configured. The attempt must fail at
	// dispatch; a dropped message can never count as contact.
	adapter := NewEmailAdapter(nil, "outbound:email", email.NoopSender{}, "Acme")

	_, err := adapter.Dispatch(context.Background(), response.LeadIntakeEvent{ID: uuid.New(), Email: "a@b.com"})
	var dispatchErr *response.ExternalDispatchError
	if !errors.As(err, &dispatchErr) {
		t.Fatalf("error = %v, want *ExternalDispatchError", err)
	}
	if !errors.Is(err, email.ErrNoTransport) {
		t.Errorf("error = %v, want ErrNoTransport", err)
	}
}

func TestEmailDispatchRequiresAddress(t *testing.T) {
	adapter := NewEmailAdapter(&fakePublisher{}, "outbound:email", nil, "Acme")

	if _, err := adapter.Dispatch(context.Background(), response.LeadIntakeEvent{ID: uuid.New()}); err == nil {
		t.Fatal("expected error for lead without email")
	}
}

func TestChatDispatchPublishesHandoff(t *testing.T) {
	pub := &fakePublisher{}
	adapter := NewChatAdapter(pub, "outbound:chat")

	event := response.LeadIntakeEvent{ID: uuid.New(), Name: "Jo", Source: "website", Message: "hi"}
	dispatch, err := adapter.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if dispatch.ExternalRef != event.ID.String() {
		t.Errorf("external ref = %s", dispatch.ExternalRef)
	}

	handoff, ok := pub.payloads[0].(ChatHandoff)
	if !ok {
		t.Fatalf("payload type %T", pub.payloads[0])
	}
	if !strings.Contains(handoff.Greeting, "Jo") {
		t.Errorf("greeting = %q", handoff.Greeting)
	}
}

func TestChatDispatchWithoutBrokerFails(t *testing.T) {
	adapter := NewChatAdapter(nil, "outbound:chat")

	_, err := adapter.Dispatch(context.Background(), response.LeadIntakeEvent{ID: uuid.New(), Source: "chat"})
	var dispatchErr *response.ExternalDispatchError
	if !errors.As(err, &dispatchErr) {
		t.Fatalf("error = %v, want *ExternalDispatchError", err)
	}
}
