// Package relay implements the bidirectional media bridge between a
// telephony media-stream leg and an AI conversation leg. One Relay serves
// exactly one call and is destroyed when both legs are closed.
package relay

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"leadrelay_backend/internal/events"
	"leadrelay_backend/platform/logger"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// State is the relay lifecycle. Closed is terminal.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrLegClosed is returned by a leg write after the leg has been closed.
// The relay treats it as a dropped frame, never as a failure.
var ErrLegClosed = errors.New("relay leg is closed")

// ConnectionError wraps a leg failure. It is terminal for the call's AI
// assistance and is never retried.
type ConnectionError struct {
	CallRef string
	Err     error
}

func (e *ConnectionError) Error() string {
	return "relay connection failed for call " + e.CallRef + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Frame is one media frame. Live audio favors drops over unbounded
// latency, so frames are forwarded or dropped, never buffered.
type Frame struct {
	Binary bool
	Data   []byte
}

// Leg is one side of the bridge. Read blocks until a frame arrives and
// returns io.EOF on orderly close. Close must be idempotent.
type Leg interface {
	ReadFrame() (Frame, error)
	WriteFrame(Frame) error
	Close() error
}

// Relay forwards every inbound frame on either leg verbatim to the other
// leg while active. Whichever leg closes or errors first moves the relay to
// closing, which synchronously closes the other leg, then closed.
type Relay struct {
	callRef   string
	telephony Leg
	ai        Leg

	state     atomic.Int32
	closeOnce sync.Once

	dropMu  sync.Mutex
	dropLog *rate.Limiter

	bus events.Bus
	log *logger.Logger
}

// New creates a relay for one call with both legs already connected.
func New(callRef string, telephony, ai Leg, bus events.Bus, log *logger.Logger) *Relay {
	r := &Relay{
		callRef:   callRef,
		telephony: telephony,
		ai:        ai,
		dropLog:   rate.NewLimiter(rate.Every(5*time.Second), 1),
		bus:       bus,
		log:       log.WithCallRef(callRef),
	}
	r.state.Store(int32(StateConnecting))
	return r
}

// State returns the current relay state.
func (r *Relay) State() State {
	return State(r.state.Load())
}

// Run activates the relay and pumps frames in both directions until either
// leg closes or errors. It blocks until the relay is closed, and returns a
// *ConnectionError only for abnormal failures.
func (r *Relay) Run(ctx context.Context) error {
	r.state.CompareAndSwap(int32(StateConnecting), int32(StateActive))
	r.log.Info("relay active")

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return r.pump(r.telephony, r.ai, "telephony_to_ai") })
	g.Go(func() error { return r.pump(r.ai, r.telephony, "ai_to_telephony") })

	err := g.Wait()
	r.Close("")
	if err != nil {
		return &ConnectionError{CallRef: r.callRef, Err: err}
	}
	return nil
}

// pump forwards frames from src to dst. The first read failure on either
// pump triggers the idempotent close of both legs, which unblocks the
// sibling pump's read.
func (r *Relay) pump(src, dst Leg, direction string) error {
	for {
		frame, err := src.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrLegClosed) {
				r.Close(direction + " closed")
				return nil
			}
			r.Close(direction + " failed: " + err.Error())
			return err
		}

		if r.State() != StateActive {
			r.dropFrame(direction)
			continue
		}

		if err := dst.WriteFrame(frame); err != nil {
			if errors.Is(err, ErrLegClosed) {
				r.dropFrame(direction)
				continue
			}
			r.Close(direction + " write failed: " + err.Error())
			return err
		}
	}
}

// dropFrame counts a dropped frame with rate-limited logging so a dying
// leg cannot flood the log.
func (r *Relay) dropFrame(direction string) {
	r.dropMu.Lock()
	allowed := r.dropLog.Allow()
	r.dropMu.Unlock()
	if allowed {
		r.log.Warn("dropping media frame, destination leg not ready", "direction", direction)
	}
}

// Close moves the relay to closing, closes both legs, and settles at
// closed. It is safe to call from either pump or externally; every call
// after the first is a no-op.
func (r *Relay) Close(reason string) {
	r.closeOnce.Do(func() {
		r.state.Store(int32(StateClosing))
		_ = r.telephony.Close()
		_ = r.ai.Close()
		r.state.Store(int32(StateClosed))

		r.log.Info("relay closed", "reason", reason)
		if r.bus != nil {
			r.bus.Publish(context.Background(), events.RelayClosed{
				BaseEvent: events.NewBaseEvent(),
				CallRef:   r.callRef,
				Reason:    reason,
			})
		}
	})
}
