package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/hooktriage/internal/models"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeHookHandled, Data: map[string]string{"task": "T-9"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: hook.handled") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"task":"T-9"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishLedgerEvent_UpdatedThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First line should trigger ledger.updated.
	b.PublishLedgerEvent(1, models.LedgerEvent{Event: models.EventTaskProgress, Task: "T-1"})
	// Second line immediately should NOT trigger another ledger.updated.
	b.PublishLedgerEvent(2, models.LedgerEvent{Event: models.EventTaskBlocked, Reason: "r"})

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	updatedCount := 0
	appendedCount := 0
	var first string
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "event: ledger.updated") {
				updatedCount++
			} else {
				if appendedCount == 0 {
					first = s
				}
				appendedCount++
			}
		default:
			break loop
		}
	}

	if appendedCount != 2 {
		t.Errorf("appended events = %d, want 2", appendedCount)
	}
	if updatedCount != 1 {
		t.Errorf("updated events = %d, want 1 (throttled)", updatedCount)
	}
	if !strings.Contains(first, `"line":1`) || !strings.Contains(first, `"task":"T-1"`) {
		t.Errorf("appended payload = %q", first)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishLedgerEvent(3, models.LedgerEvent{Event: models.EventTaskProgress, Task: "T-3"})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: ledger.appended") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: TypeHookHandled, Data: map[string]string{"task": "T-1"}})
	b.PublishLedgerEvent(1, models.LedgerEvent{Event: models.EventTaskProgress, Task: "T-1"})
}
