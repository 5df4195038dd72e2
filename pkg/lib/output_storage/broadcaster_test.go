package output_storage

import (
	"errors"
	"testing"
	"time"
)

// helper: receive with timeout
func recvWithTimeout[T any](t *testing.T, ch <-chan T, d time.Duration) (T, bool) {
	t.Helper()
	var zero T
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(d):
		return zero, false
	}
}

// helper: assert no receive within duration
func assertNoRecv[T any](t *testing.T, ch <-chan T, d time.Duration) {
	t.Helper()
	if v, ok := recvWithTimeout(t, ch, d); ok {
		t.Fatalf("unexpected receive: %v", v)
	}
}

func TestBroadcaster_SingleSubscriberReceives(t *testing.T) {
	b := NewBroadcaster[string]()
	defer b.Stop()

	ch, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	b.Publish("hello")

	if v, ok := recvWithTimeout(t, ch, 200*time.Millisecond); !ok || v != "hello" {
		t.Fatalf("expected to receive 'hello', got ok=%v val=%q", ok, v)
	}
}

func TestBroadcaster_MultipleSubscribersReceive(t *testing.T) {
	b := NewBroadcaster[int]()
	defer b.Stop()

	ch1, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	ch2, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	b.Publish(7)

	for i, ch := range []chan int{ch1, ch2} {
		if v, ok := recvWithTimeout(t, ch, 200*time.Millisecond); !ok || v != 7 {
			t.Fatalf("subscriber %d: expected 7, ok=%v v=%d", i, ok, v)
		}
	}
}

func TestBroadcaster_SlowSubscriberKeepsLatest(t *testing.T) {
	b := NewBroadcaster[int]()
	defer b.Stop()

	ch, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// Nobody reads while publishing; Publish must not block.
	for i := 1; i <= 5; i++ {
		b.Publish(i)
	}

	if v, ok := recvWithTimeout(t, ch, 200*time.Millisecond); !ok || v != 5 {
		t.Fatalf("expected latest value 5, ok=%v v=%d", ok, v)
	}
	assertNoRecv(t, ch, 50*time.Millisecond)
}

func TestBroadcaster_StopClosesSubscribers(t *testing.T) {
	b := NewBroadcaster[int]()
	ch, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	b.Stop()
	b.Stop() // idempotent

	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed after Stop")
	}
	if _, err := b.Subscribe(); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	b.Publish(1) // must not panic on closed channels
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster[int]()
	defer b.Stop()

	ch, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	b.Unsubscribe(ch)
	b.Unsubscribe(ch)
	b.Publish(1)

	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed after Unsubscribe")
	}
}
