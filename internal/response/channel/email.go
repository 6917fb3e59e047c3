package channel

import (
	"context"
	"fmt"

	"leadrelay_backend/internal/broker"
	"leadrelay_backend/internal/email"
	"leadrelay_backend/internal/response"

	"github.com/google/uuid"
)

// EmailAdapter publishes a templated first-touch email to the outbound
// queue. Publish acknowledgment counts as success; delivery confirmation is
// not waited for. When no broker is configured it falls back to direct SMTP.
type EmailAdapter struct {
	publisher broker.Publisher
	queue     string
	fallback  email.Sender
	orgName   string
}

// EmailMessage is the queue payload consumed by the delivery worker.
type EmailMessage struct {
	MessageID uuid.UUID `json:"messageId"`
	LeadID    uuid.UUID `json:"leadId"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	HTMLBody  string    `json:"htmlBody"`
}

// NewEmailAdapter creates the email channel adapter. publisher may be nil
// when only the SMTP fallback is configured.
func NewEmailAdapter(publisher broker.Publisher, queue string, fallback email.Sender, orgName string) *EmailAdapter {
	return &EmailAdapter{publisher: publisher, queue: queue, fallback: fallback, orgName: orgName}
}

func (a *EmailAdapter) Channel() response.Channel { return response.ChannelEmail }

func (a *EmailAdapter) Dispatch(ctx context.Context, event response.LeadIntakeEvent) (response.Dispatch, error) {
	if event.Email == "" {
		return response.Dispatch{}, &response.ExternalDispatchError{
			Channel: response.ChannelEmail,
			Err:     fmt.Errorf("lead has no email address"),
		}
	}

	msg := EmailMessage{
		MessageID: uuid.New(),
		LeadID:    event.ID,
		To:        event.Email,
		Subject:   fmt.Sprintf("Thanks for contacting %s", a.orgName),
		HTMLBody:  emailBody(event, a.orgName),
	}

	if a.publisher != nil {
		if err := a.publisher.Publish(ctx, a.queue, msg); err != nil {
			return response.Dispatch{}, &response.ExternalDispatchError{Channel: response.ChannelEmail, Err: err}
		}
		return response.Dispatch{ExternalRef: msg.MessageID.String()}, nil
	}

	if a.fallback == nil {
		return response.Dispatch{}, &response.ExternalDispatchError{
			Channel: response.ChannelEmail,
			Err:     fmt.Errorf("no email transport configured"),
		}
	}
	if err := a.fallback.Send(ctx, msg.To, msg.Subject, msg.HTMLBody); err != nil {
		return response.Dispatch{}, &response.ExternalDispatchError{Channel: response.ChannelEmail, Err: err}
	}
	return response.Dispatch{ExternalRef: msg.MessageID.String()}, nil
}

func emailBody(event response.LeadIntakeEvent, orgName string) string {
	name := event.Name
	if name == "" {
		name = "there"
	}
	company := ""
	if event.Company != "" {
		company = fmt.Sprintf("<p>We see you're with %s; we work with teams like yours every day.</p>", event.Company)
	}
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>Thanks for reaching out to %s. One of our specialists is reviewing your inquiry right now and will follow up shortly.</p>%s<p>Talk soon,<br>The %s team</p>",
		name, orgName, company, orgName,
	)
}
