package response

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"leadrelay_backend/internal/activity"
	"leadrelay_backend/internal/leads"
	"leadrelay_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeAdapter struct {
	channel  Channel
	ref      string
	err      error
	delay    time.Duration
	calls    atomic.Int32
	released chan struct{}
}

func (f *fakeAdapter) Channel() Channel { return f.channel }

func (f *fakeAdapter) Dispatch(ctx context.Context, event LeadIntakeEvent) (Dispatch, error) {
	f.calls.Add(1)
	if f.released != nil {
		<-f.released
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return Dispatch{}, f.err
	}
	return Dispatch{ExternalRef: f.ref}, nil
}

type fakeRetry struct {
	mu       sync.Mutex
	enqueues []int
}

func (f *fakeRetry) Enqueue(_ context.Context, _ LeadIntakeEvent, attemptCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueues = append(f.enqueues, attemptCount)
	return nil
}

func (f *fakeRetry) counts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.enqueues...)
}

func newTestOrchestrator(adapters []Adapter, store leads.StatusStore, recorder activity.Recorder, retry RetryScheduler, window time.Duration) *Orchestrator {
	return NewOrchestrator(adapters, store, recorder, retry, nil, window, logger.New("development"))
}

func newLead(source, phone, email string) LeadIntakeEvent {
	return LeadIntakeEvent{
		ID:          uuid.New(),
		Source:      source,
		Phone:       phone,
		Email:       email,
		ArrivalTime: time.Now(),
	}
}

func TestRespondContactedOnFirstSuccess(t *testing.T) {
	store := leads.NewMemoryStore()
	recorder := activity.NewMemoryRecorder()
	retry := &fakeRetry{}
	voice := &fakeAdapter{channel: ChannelVoice, ref: "CA123"}

	o := newTestOrchestrator([]Adapter{voice}, store, recorder, retry, time.Minute)

	event := newLead("phone", "+31201234567", "")
	store.Register(event.ID)

	result, err := o.Respond(context.Background(), event)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Status != StatusContacted {
		t.Fatalf("status = %s, want %s", result.Status, StatusContacted)
	}
	if got := store.Status(event.ID); got != leads.StatusContacted {
		t.Errorf("lead status = %s, want %s", got, leads.StatusContacted)
	}
	if len(retry.counts()) != 0 {
		t.Errorf("unexpected retry enqueues: %v", retry.counts())
	}
}

func TestRespondExactlyOneContactedTransition(t *testing.T) {
	store := leads.NewMemoryStore()
	recorder := activity.NewMemoryRecorder()
	retry := &fakeRetry{}

	// Both channels succeed at the same moment.
	release := make(chan struct{})
	voice := &fakeAdapter{channel: ChannelVoice, ref: "CA1", released: release}
	sms := &fakeAdapter{channel: ChannelSMS, ref: "SM1", released: release}

	o := newTestOrchestrator([]Adapter{voice, sms}, store, recorder, retry, time.Minute)

	event := newLead("phone", "+31612345678", "")
	store.Register(event.ID)

	close(release)
	result, err := o.Respond(context.Background(), event)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Status != StatusContacted {
		t.Fatalf("status = %s", result.Status)
	}

	// Wait for the losing attempt to finish before counting transitions.
	deadline := time.After(2 * time.Second)
	for voice.calls.Load()+sms.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("attempts did not complete")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if got := store.Transitions(event.ID); got != 1 {
		t.Errorf("contacted transitions = %d, want exactly 1", got)
	}
}

func TestRespondDeadlinePassedSkipsAdapters(t *testing.T) {
	store := leads.NewMemoryStore()
	recorder := activity.NewMemoryRecorder()
	retry := &fakeRetry{}
	voice := &fakeAdapter{channel: ChannelVoice, ref: "CA1"}

	o := newTestOrchestrator([]Adapter{voice}, store, recorder, retry, time.Minute)

	event := newLead("phone", "+31201234567", "")
	event.ArrivalTime = time.Now().Add(-2 * time.Minute)
	store.Register(event.ID)

	result, err := o.Respond(context.Background(), event)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Status != StatusQueuedForRetry {
		t.Fatalf("status = %s, want %s", result.Status, StatusQueuedForRetry)
	}
	if n := voice.calls.Load(); n != 0 {
		t.Errorf("adapter invoked %d times past the deadline, want 0", n)
	}

	var windowFailures int
	for _, e := range recorder.ByKind(activity.KindAttempt) {
		if e.Outcome == string(OutcomeFailure) && e.Detail == ErrResponseWindowExceeded.Error() {
			windowFailures++
		}
	}
	if windowFailures != 1 {
		t.Errorf("window-exceeded failures = %d, want 1", windowFailures)
	}
}

func TestRespondMixedOutcomes(t *testing.T) {
	store := leads.NewMemoryStore()
	recorder := activity.NewMemoryRecorder()
	retry := &fakeRetry{}

	voice := &fakeAdapter{channel: ChannelVoice, err: errors.New("provider rejected call")}
	sms := &fakeAdapter{channel: ChannelSMS, ref: "SM99", delay: 20 * time.Millisecond}
	email := &fakeAdapter{channel: ChannelEmail, ref: "EM1", delay: 50 * time.Millisecond}

	o := newTestOrchestrator([]Adapter{voice, sms, email}, store, recorder, retry, time.Minute)

	event := newLead("phone", "+31612345678", "a@b.com")
	store.Register(event.ID)

	result, err := o.Respond(context.Background(), event)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Status != StatusContacted {
		t.Fatalf("status = %s", result.Status)
	}

	deadline := time.After(2 * time.Second)
	for email.calls.Load() == 0 || len(recorder.ByKind(activity.KindAttempt)) < 3 {
		select {
		case <-deadline:
			t.Fatal("attempts did not all complete")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if got := store.Transitions(event.ID); got != 1 {
		t.Errorf("contacted transitions = %d, want exactly 1", got)
	}

	outcomes := make(map[string]string)
	for _, e := range recorder.ByKind(activity.KindAttempt) {
		outcomes[e.Channel] = e.Outcome
	}
	if outcomes[string(ChannelVoice)] != string(OutcomeFailure) {
		t.Errorf("voice outcome = %s, want failure", outcomes[string(ChannelVoice)])
	}
	if outcomes[string(ChannelSMS)] != string(OutcomeSuccess) {
		t.Errorf("sms outcome = %s, want success", outcomes[string(ChannelSMS)])
	}
}

func TestRespondAllFailEnqueuesOneRetry(t *testing.T) {
	store := leads.NewMemoryStore()
	recorder := activity.NewMemoryRecorder()
	retry := &fakeRetry{}

	voice := &fakeAdapter{channel: ChannelVoice, err: errors.New("down")}
	sms := &fakeAdapter{channel: ChannelSMS, err: errors.New("down")}

	o := newTestOrchestrator([]Adapter{voice, sms}, store, recorder, retry, time.Minute)

	event := newLead("phone", "+31612345678", "")
	store.Register(event.ID)

	result, err := o.Respond(context.Background(), event)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Status != StatusQueuedForRetry {
		t.Fatalf("status = %s", result.Status)
	}

	counts := retry.counts()
	if len(counts) != 1 || counts[0] != 1 {
		t.Errorf("retry enqueues = %v, want exactly one with attempt count 1", counts)
	}
	if got := store.Status(event.ID); got != leads.StatusNew {
		t.Errorf("lead status = %s, want %s", got, leads.StatusNew)
	}
}

func TestRespondAllFailWithoutSchedulerEndsTerminally(t *testing.T) {
	store := leads.NewMemoryStore()
	recorder := activity.NewMemoryRecorder()

	voice := &fakeAdapter{channel: ChannelVoice, err: errors.New("down")}

	// Retries disabled: no scheduler is configured at all.
	o := newTestOrchestrator([]Adapter{voice}, store, recorder, nil, time.Minute)

	event := newLead("phone", "+31612345678", "")
	store.Register(event.ID)

	result, err := o.Respond(context.Background(), event)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Status != StatusFailed {
		t.Fatalf("status = %s, want %s", result.Status, StatusFailed)
	}

	var terminal int
	for _, e := range recorder.ByKind(activity.KindDecision) {
		if e.Outcome == string(StatusFailed) {
			terminal++
		}
	}
	if terminal != 1 {
		t.Errorf("terminal failed decisions = %d, want 1", terminal)
	}
}

func TestRespondNoChannelsSurfacesChannelUnavailable(t *testing.T) {
	o := newTestOrchestrator(nil, leads.NewMemoryStore(), activity.NewMemoryRecorder(), &fakeRetry{}, time.Minute)

	_, err := o.Respond(context.Background(), newLead("referral", "", ""))
	if !errors.Is(err, ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
}

func TestRespondRetryUsesFreshWindow(t *testing.T) {
	store := leads.NewMemoryStore()
	recorder := activity.NewMemoryRecorder()
	retry := &fakeRetry{}
	voice := &fakeAdapter{channel: ChannelVoice, ref: "CA2"}

	o := newTestOrchestrator([]Adapter{voice}, store, recorder, retry, time.Minute)

	// First round failed ten minutes ago; the retry round must still be
	// allowed to dispatch.
	event := newLead("phone", "+31201234567", "")
	event.ArrivalTime = time.Now().Add(-10 * time.Minute)
	store.Register(event.ID)

	result, err := o.RespondRetry(context.Background(), event, 1)
	if err != nil {
		t.Fatalf("RespondRetry: %v", err)
	}
	if result.Status != StatusContacted {
		t.Fatalf("status = %s, want %s", result.Status, StatusContacted)
	}
	if n := voice.calls.Load(); n != 1 {
		t.Errorf("adapter calls = %d, want 1", n)
	}
}
