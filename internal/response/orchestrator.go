package response

import (
	"context"
	"sync"
	"time"

	"leadrelay_backend/internal/activity"
	"leadrelay_backend/internal/events"
	"leadrelay_backend/internal/leads"
	"leadrelay_backend/platform/logger"
)

// RetryScheduler enqueues a failed lead for a delayed re-attempt.
// attemptCount is the number of response rounds that have already failed.
type RetryScheduler interface {
	Enqueue(ctx context.Context, event LeadIntakeEvent, attemptCount int) error
}

// Orchestrator races the selected channels against the SLA deadline and
// decides the lead's contacted/retry outcome.
//
// Concurrency contract: one goroutine per selected channel; the deadline
// gates only the decision to begin an attempt, so a dispatch already in
// flight runs to natural completion even after the window has passed.
// "First success wins" is the only ordering guarantee; the win is decided
// by the CAS on the lead status, which makes concurrent successes commute.
type Orchestrator struct {
	adapters map[Channel]Adapter
	leads    leads.StatusStore
	activity activity.Recorder
	retry    RetryScheduler
	bus      events.Bus
	window   time.Duration
	log      *logger.Logger

	now func() time.Time
}

// NewOrchestrator wires the orchestrator with explicit dependencies so
// every collaborator can be substituted in tests.
func NewOrchestrator(adapters []Adapter, statusStore leads.StatusStore, recorder activity.Recorder, retry RetryScheduler, bus events.Bus, window time.Duration, log *logger.Logger) *Orchestrator {
	byChannel := make(map[Channel]Adapter, len(adapters))
	for _, a := range adapters {
		byChannel[a.Channel()] = a
	}
	return &Orchestrator{
		adapters: byChannel,
		leads:    statusStore,
		activity: recorder,
		retry:    retry,
		bus:      bus,
		window:   window,
		log:      log,
		now:      time.Now,
	}
}

type attemptWin struct {
	channel     Channel
	externalRef string
}

// Respond runs the first response round for a freshly arrived lead.
func (o *Orchestrator) Respond(ctx context.Context, event LeadIntakeEvent) (Result, error) {
	return o.respond(ctx, event, 0)
}

// RespondRetry runs a retry round. priorFailures counts the rounds that
// have already failed for this event.
func (o *Orchestrator) RespondRetry(ctx context.Context, event LeadIntakeEvent, priorFailures int) (Result, error) {
	return o.respond(ctx, event, priorFailures)
}

func (o *Orchestrator) respond(ctx context.Context, event LeadIntakeEvent, priorFailures int) (Result, error) {
	started := o.now()

	selected, err := SelectChannels(event)
	if err != nil {
		// The only failure surfaced synchronously to the caller.
		return Result{}, err
	}

	deadline := event.ArrivalTime.Add(o.window)
	if priorFailures > 0 {
		// Retry rounds run minutes after arrival; the window restarts at
		// round start or no retry could ever pass the deadline gate.
		deadline = started.Add(o.window)
	}

	// Dispatches are never cancelled once started, so attempts run on a
	// context detached from the caller's.
	dispatchCtx := context.WithoutCancel(ctx)

	wins := make(chan attemptWin, 1)
	var wg sync.WaitGroup
	for _, ch := range selected {
		adapter, ok := o.adapters[ch]
		if !ok {
			o.log.Warn("no adapter registered for selected channel", "channel", string(ch))
			continue
		}
		wg.Add(1)
		go func(adapter Adapter) {
			defer wg.Done()
			o.runAttempt(dispatchCtx, event, adapter, deadline, wins)
		}(adapter)
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	select {
	case win := <-wins:
		return o.decideContacted(dispatchCtx, event, win, started), nil
	case <-allDone:
		// Every attempt finished; a success may still be sitting in the
		// buffer if it raced the channel close.
		select {
		case win := <-wins:
			return o.decideContacted(dispatchCtx, event, win, started), nil
		default:
		}
		return o.decideRetry(dispatchCtx, event, priorFailures, started), nil
	}
}

// runAttempt performs one channel attempt end to end: deadline pre-check,
// dispatch, activity record, and the contacted CAS on success. It owns its
// ResponseAttempt exclusively.
func (o *Orchestrator) runAttempt(ctx context.Context, event LeadIntakeEvent, adapter Adapter, deadline time.Time, wins chan<- attemptWin) {
	attempt := ResponseAttempt{
		Channel:   adapter.Channel(),
		StartedAt: o.now(),
		Deadline:  deadline,
		Outcome:   OutcomePending,
	}

	// The SLA gate: checked immediately before any side effect. Past the
	// deadline the adapter is never invoked.
	if !attempt.StartedAt.Before(deadline) {
		attempt.Outcome = OutcomeFailure
		attempt.Err = ErrResponseWindowExceeded
		o.recordAttempt(ctx, event, attempt)
		return
	}

	dispatch, err := adapter.Dispatch(ctx, event)
	if err != nil {
		attempt.Outcome = OutcomeFailure
		attempt.Err = err
		o.recordAttempt(ctx, event, attempt)
		return
	}

	attempt.Outcome = OutcomeSuccess
	attempt.ExternalRef = dispatch.ExternalRef
	o.recordAttempt(ctx, event, attempt)

	// The CAS makes the transition idempotent: late successes are recorded
	// above but never repeat it.
	swapped, casErr := o.leads.MarkContacted(ctx, event.ID)
	if casErr != nil {
		o.log.Error("contacted transition failed", "lead_id", event.ID, "error", casErr)
	} else if swapped && o.bus != nil {
		o.bus.Publish(ctx, events.LeadContacted{
			BaseEvent:   events.NewBaseEvent(),
			LeadID:      event.ID,
			Channel:     string(attempt.Channel),
			ExternalRef: attempt.ExternalRef,
		})
	}

	select {
	case wins <- attemptWin{channel: attempt.Channel, externalRef: attempt.ExternalRef}:
	default:
	}
}

func (o *Orchestrator) recordAttempt(ctx context.Context, event LeadIntakeEvent, attempt ResponseAttempt) {
	detail := ""
	if attempt.Err != nil {
		detail = attempt.Err.Error()
	}
	o.log.DispatchAttempt(event.ID.String(), string(attempt.Channel), string(attempt.Outcome), attempt.Err)
	_ = o.activity.Record(ctx, activity.Entry{
		LeadID:      event.ID,
		Kind:        activity.KindAttempt,
		Channel:     string(attempt.Channel),
		Outcome:     string(attempt.Outcome),
		ExternalRef: attempt.ExternalRef,
		Detail:      detail,
		OccurredAt:  attempt.StartedAt,
	})
}

func (o *Orchestrator) decideContacted(ctx context.Context, event LeadIntakeEvent, win attemptWin, started time.Time) Result {
	elapsed := o.now().Sub(started)
	_ = o.activity.Record(ctx, activity.Entry{
		LeadID:      event.ID,
		Kind:        activity.KindDecision,
		Channel:     string(win.channel),
		Outcome:     string(StatusContacted),
		ExternalRef: win.externalRef,
		Metadata:    map[string]any{"elapsed_ms": elapsed.Milliseconds()},
	})
	return Result{Status: StatusContacted, Elapsed: elapsed}
}

func (o *Orchestrator) decideRetry(ctx context.Context, event LeadIntakeEvent, priorFailures int, started time.Time) Result {
	elapsed := o.now().Sub(started)
	if o.retry == nil {
		// No scheduler configured: the round ends terminally instead of
		// requeueing.
		o.log.Warn("all channels failed with retries disabled", "lead_id", event.ID)
		_ = o.activity.Record(ctx, activity.Entry{
			LeadID:   event.ID,
			Kind:     activity.KindDecision,
			Outcome:  string(StatusFailed),
			Detail:   "retry scheduler not configured",
			Metadata: map[string]any{"elapsed_ms": elapsed.Milliseconds()},
		})
		return Result{Status: StatusFailed, Elapsed: elapsed}
	}
	_ = o.activity.Record(ctx, activity.Entry{
		LeadID:   event.ID,
		Kind:     activity.KindDecision,
		Outcome:  string(StatusQueuedForRetry),
		Metadata: map[string]any{"elapsed_ms": elapsed.Milliseconds()},
	})
	if err := o.retry.Enqueue(ctx, event, priorFailures+1); err != nil {
		o.log.Error("retry enqueue failed", "lead_id", event.ID, "error", err)
	}
	return Result{Status: StatusQueuedForRetry, Elapsed: elapsed}
}
