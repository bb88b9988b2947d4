package events_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mediavault/internal/domain/events"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := events.NewHub(zerolog.Nop())

	a := hub.Subscribe()
	defer a.Close()
	b := hub.Subscribe()
	defer b.Close()

	hub.Publish(events.ProgressUpdate("med_1", 25))

	for _, sub := range []*events.Subscription{a, b} {
		select {
		case ev := <-sub.C:
			if ev.Type != events.TypeProgressUpdate || ev.MediaID != "med_1" || ev.Progress != 25 {
				t.Fatalf("unexpected event %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	hub := events.NewHub(zerolog.Nop())

	hub.Publish(events.ProcessingComplete("med_1", "safe"))

	sub := hub.Subscribe()
	defer sub.Close()

	select {
	case ev := <-sub.C:
		t.Fatalf("late subscriber should not receive replayed event, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseDetachesSubscriber(t *testing.T) {
	hub := events.NewHub(zerolog.Nop())

	sub := hub.Subscribe()
	if got := hub.SubscriberCount(); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	sub.Close()
	sub.Close() // idempotent

	if got := hub.SubscriberCount(); got != 0 {
		t.Fatalf("expected 0 subscribers after close, got %d", got)
	}

	// channel is closed, receive must not block
	if _, ok := <-sub.C; ok {
		t.Fatal("expected closed channel after Close")
	}

	// publishing to an empty hub must not panic
	hub.Publish(events.ProgressUpdate("med_2", 50))
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	hub := events.NewHub(zerolog.Nop())

	slow := hub.Subscribe()
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		// publish far more events than the subscription buffer holds
		for i := 0; i < 100; i++ {
			hub.Publish(events.ProgressUpdate("med_1", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}

func TestPerIDOrderingPreserved(t *testing.T) {
	hub := events.NewHub(zerolog.Nop())

	sub := hub.Subscribe()
	defer sub.Close()

	steps := []int{25, 50, 75, 100}
	for _, p := range steps {
		hub.Publish(events.ProgressUpdate("med_1", p))
	}
	hub.Publish(events.ProcessingComplete("med_1", "safe"))

	for _, want := range steps {
		ev := <-sub.C
		if ev.Progress != want {
			t.Fatalf("expected progress %d, got %d", want, ev.Progress)
		}
	}
	final := <-sub.C
	if final.Type != events.TypeProcessingComplete || final.Status != "safe" {
		t.Fatalf("expected processing-complete safe, got %+v", final)
	}
}
