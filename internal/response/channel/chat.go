package channel

import (
	"context"
	"fmt"
	"time"

	"leadrelay_backend/internal/broker"
	"leadrelay_backend/internal/response"

	"github.com/google/uuid"
)

// ChatAdapter hands the lead off to a live chat session by publishing a
// session notification. Publish acknowledgment counts as success.
type ChatAdapter struct {
	publisher broker.Publisher
	queue     string
}

// ChatHandoff is the queue payload consumed by the chat frontend service.
type ChatHandoff struct {
	LeadID    uuid.UUID `json:"leadId"`
	Name      string    `json:"name,omitempty"`
	Source    string    `json:"source"`
	Message   string    `json:"message,omitempty"`
	Greeting  string    `json:"greeting"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewChatAdapter creates the chat channel adapter.
func NewChatAdapter(publisher broker.Publisher, queue string) *ChatAdapter {
	return &ChatAdapter{publisher: publisher, queue: queue}
}

func (a *ChatAdapter) Channel() response.Channel { return response.ChannelChat }

func (a *ChatAdapter) Dispatch(ctx context.Context, event response.LeadIntakeEvent) (response.Dispatch, error) {
	if a.publisher == nil {
		return response.Dispatch{}, &response.ExternalDispatchError{
			Channel: response.ChannelChat,
			Err:     fmt.Errorf("no chat broker configured"),
		}
	}

	greeting := "Hi! Thanks for reaching out. How can we help?"
	if event.Name != "" {
		greeting = fmt.Sprintf("Hi %s! Thanks for reaching out. How can we help?", event.Name)
	}

	handoff := ChatHandoff{
		LeadID:    event.ID,
		Name:      event.Name,
		Source:    event.Source,
		Message:   event.Message,
		Greeting:  greeting,
		CreatedAt: time.Now(),
	}

	if err := a.publisher.Publish(ctx, a.queue, handoff); err != nil {
		return response.Dispatch{}, &response.ExternalDispatchError{Channel: response.ChannelChat, Err: err}
	}
	return response.Dispatch{ExternalRef: handoff.LeadID.String()}, nil
}
