package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"leadrelay_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishDispatchesToSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var handled atomic.Int32
	done := make(chan struct{}, 2)
	handler := HandlerFunc(func(context.Context, Event) error {
		handled.Add(1)
		done <- struct{}{}
		return nil
	})
	bus.Subscribe("test.event", handler)
	bus.Subscribe("test.event", handler)
	bus.Subscribe("other.event", handler)

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "test.event"})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler not invoked")
		}
	}
	if n := handled.Load(); n != 2 {
		t.Errorf("handled = %d, want 2", n)
	}
}

func TestPublishSyncReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	wantErr := errors.New("handler failed")
	var later atomic.Bool
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		return wantErr
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		later.Store(true)
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "test.event"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if later.Load() {
		t.Error("handler after the failing one still ran")
	}
}

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "nobody.listens"})
	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "nobody.listens"}); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
}
