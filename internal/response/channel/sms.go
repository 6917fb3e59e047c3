package channel

import (
	"context"
	"fmt"

	"leadrelay_backend/internal/response"
)

// SMSDispatcher sends a text message through the telephony provider.
type SMSDispatcher interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// SMSAdapter sends a templated first-touch text message.
type SMSAdapter struct {
	dispatcher SMSDispatcher
	orgName    string
}

// NewSMSAdapter creates the sms channel adapter.
func NewSMSAdapter(dispatcher SMSDispatcher, orgName string) *SMSAdapter {
	return &SMSAdapter{dispatcher: dispatcher, orgName: orgName}
}

func (a *SMSAdapter) Channel() response.Channel { return response.ChannelSMS }

func (a *SMSAdapter) Dispatch(ctx context.Context, event response.LeadIntakeEvent) (response.Dispatch, error) {
	if event.Phone == "" {
		return response.Dispatch{}, &response.ExternalDispatchError{
			Channel: response.ChannelSMS,
			Err:     fmt.Errorf("lead has no phone number"),
		}
	}

	ref, err := a.dispatcher.SendSMS(ctx, event.Phone, smsBody(event, a.orgName))
	if err != nil {
		return response.Dispatch{}, &response.ExternalDispatchError{Channel: response.ChannelSMS, Err: err}
	}
	return response.Dispatch{ExternalRef: ref}, nil
}

func smsBody(event response.LeadIntakeEvent, orgName string) string {
	greeting := "Hi"
	if event.Name != "" {
		greeting = "Hi " + event.Name
	}
	return fmt.Sprintf("%s, thanks for reaching out to %s! We received your inquiry and a specialist will be in touch shortly. Reply to this message anytime.", greeting, orgName)
}
