package leads

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestMarkContactedSwapsOnce(t *testing.T) {
	store := NewMemoryStore()
	leadID := uuid.New()
	store.Register(leadID)

	swapped, err := store.MarkContacted(context.Background(), leadID)
	if err != nil || !swapped {
		t.Fatalf("first MarkContacted = %v, %v", swapped, err)
	}

	swapped, err = store.MarkContacted(context.Background(), leadID)
	if err != nil {
		t.Fatalf("second MarkContacted: %v", err)
	}
	if swapped {
		t.Error("second MarkContacted swapped again")
	}
	if store.Status(leadID) != StatusContacted {
		t.Errorf("status = %s", store.Status(leadID))
	}
}

func TestMarkContactedUnderConcurrentWinners(t *testing.T) {
	store := NewMemoryStore()
	leadID := uuid.New()
	store.Register(leadID)

	const writers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			swapped, err := store.MarkContacted(context.Background(), leadID)
			if err != nil {
				t.Errorf("MarkContacted: %v", err)
				return
			}
			wins <- swapped
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for swapped := range wins {
		if swapped {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if got := store.Transitions(leadID); got != 1 {
		t.Errorf("transitions = %d, want 1", got)
	}
}
