package channel

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"leadrelay_backend/internal/calls"
	"leadrelay_backend/internal/conversation"
	"leadrelay_backend/internal/response"
	"leadrelay_backend/platform/logger"

	"github.com/google/uuid"
)

// SessionCreator requests an ephemeral AI conversation session.
type SessionCreator interface {
	CreateSession(ctx context.Context, convCtx response.ConversationContext) (conversation.Session, error)
}

// CallDispatcher places an outbound telephony call.
type CallDispatcher interface {
	PlaceCall(ctx context.Context, to, connectURL, statusURL string) (string, error)
}

// VoiceAdapter dispatches an AI-assisted outbound call. It builds the
// qualification context, requests a session, and places the call with a
// callback target that encodes the session reference and lead id. Audio
// handling starts only when the provider opens its media stream; that is
// the relay's job, not this adapter's.
type VoiceAdapter struct {
	sessions           SessionCreator
	dispatcher         CallDispatcher
	callStore          calls.Store
	publicBaseURL      string
	dealThresholdCents int64
	log                *logger.Logger
}

// NewVoiceAdapter creates the voice channel adapter.
func NewVoiceAdapter(sessions SessionCreator, dispatcher CallDispatcher, callStore calls.Store, publicBaseURL string, dealThresholdCents int64, log *logger.Logger) *VoiceAdapter {
	return &VoiceAdapter{
		sessions:           sessions,
		dispatcher:         dispatcher,
		callStore:          callStore,
		publicBaseURL:      publicBaseURL,
		dealThresholdCents: dealThresholdCents,
		log:                log,
	}
}

func (a *VoiceAdapter) Channel() response.Channel { return response.ChannelVoice }

// Dispatch places the call. Any step's error fails the attempt; the
// orchestrator decides what happens next.
func (a *VoiceAdapter) Dispatch(ctx context.Context, event response.LeadIntakeEvent) (response.Dispatch, error) {
	if event.Phone == "" {
		return response.Dispatch{}, &response.ExternalDispatchError{
			Channel: response.ChannelVoice,
			Err:     fmt.Errorf("lead has no phone number"),
		}
	}

	convCtx := response.BuildConversationContext(event, a.dealThresholdCents)

	session, err := a.sessions.CreateSession(ctx, convCtx)
	if err != nil {
		return response.Dispatch{}, &response.ExternalDispatchError{Channel: response.ChannelVoice, Err: err}
	}

	connectURL := a.connectURL(event.ID, session)
	statusURL := a.publicBaseURL + "/api/v1/voice/status"

	callRef, err := a.dispatcher.PlaceCall(ctx, event.Phone, connectURL, statusURL)
	if err != nil {
		return response.Dispatch{}, &response.ExternalDispatchError{Channel: response.ChannelVoice, Err: err}
	}

	if createErr := a.callStore.CreateDispatched(ctx, calls.Session{
		ID:          uuid.New(),
		ExternalRef: callRef,
		LeadID:      event.ID,
		Direction:   calls.DirectionOutbound,
		Status:      calls.StatusQueued,
		StartedAt:   time.Now(),
	}); createErr != nil {
		// The call is already ringing; a failed session insert must not fail
		// the attempt. The status webhook upsert will recreate the row.
		a.log.DatabaseError("call_sessions.create_dispatched", createErr)
	}

	return response.Dispatch{ExternalRef: callRef}, nil
}

// connectURL encodes the session reference and lead id into the callback
// target the provider fetches when the leg is answered.
func (a *VoiceAdapter) connectURL(leadID uuid.UUID, session conversation.Session) string {
	q := url.Values{}
	q.Set("lead", leadID.String())
	q.Set("sessionRef", session.Ref)
	q.Set("sessionUrl", session.URL)
	return a.publicBaseURL + "/api/v1/voice/connect?" + q.Encode()
}
