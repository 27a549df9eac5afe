package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
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

func TestPublish_FramesCarrySequenceIDs(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishCacheInvalidated([]string{"notes"}, 1)
	b.PublishCacheInvalidated([]string{"tags"}, 2)

	first, second := recv(t, ch), recv(t, ch)
	if !strings.HasPrefix(first, "id: 1\nevent: cache.invalidated\n") {
		t.Errorf("first frame = %q", first)
	}
	if !strings.HasPrefix(second, "id: 2\n") {
		t.Errorf("second frame = %q", second)
	}
	if !strings.HasSuffix(second, "\n\n") {
		t.Errorf("frame must end with a blank line: %q", second)
	}
}

func TestPublishNoteEvent_ChangedThrottle(t *testing.T) {
	var (
		mu  sync.Mutex
		now = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	b := NewBroker(WithThrottle(time.Second), WithClock(clock))
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// created: note + index.changed. updated: inside the window, note only.
	// renamed: unknown, ignored.
	b.PublishNoteEvent("created", "a.md")
	b.PublishNoteEvent("updated", "b.md")
	b.PublishNoteEvent("renamed", "c.md")

	got := []string{recv(t, ch), recv(t, ch), recv(t, ch)}
	want := []string{"event: note.created", "event: index.changed", "event: note.updated"}
	for i := range want {
		if !strings.Contains(got[i], want[i]) {
			t.Errorf("frame %d = %q, want %s", i, got[i], want[i])
		}
	}
	if !strings.Contains(got[0], `data: {"path":"a.md"}`) {
		t.Errorf("note payload = %q", got[0])
	}
	if !strings.Contains(got[1], `"at":"2025-03-04T10:00:00Z"`) {
		t.Errorf("index.changed payload = %q", got[1])
	}

	mu.Lock()
	now = now.Add(2 * time.Second)
	mu.Unlock()
	b.PublishNoteEvent("deleted", "a.md")
	if msg := recv(t, ch); !strings.Contains(msg, "event: note.deleted") {
		t.Errorf("frame = %q", msg)
	}
	if msg := recv(t, ch); !strings.Contains(msg, "event: index.changed") {
		t.Errorf("throttle window elapsed, want index.changed, got %q", msg)
	}

	select {
	case msg := <-ch:
		t.Errorf("unexpected frame %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishCacheInvalidated(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishCacheInvalidated([]string{"notes", "tags"}, 3)

	s := recv(t, ch)
	if !strings.Contains(s, "event: cache.invalidated") {
		t.Errorf("missing event type in %q", s)
	}
	if !strings.Contains(s, `{"entities":["notes","tags"],"removed":3}`) {
		t.Errorf("unexpected payload in %q", s)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(WithHeartbeat(20 * time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
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

	b.PublishNoteEvent("updated", "x.md")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("stream should open with a retry hint: %q", body)
	}
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if !strings.Contains(body, ": keepalive") {
		t.Errorf("handler output missing heartbeat: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(WithClientBuffer(4))
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < 10; i++ {
		b.PublishCacheInvalidated([]string{"notes"}, i)
	}
	deadline := time.Now().Add(time.Second)
	for b.Dropped() < 6 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := b.Dropped(); got != 6 {
		t.Errorf("Dropped() = %d, want 6", got)
	}
	if len(ch) != 4 {
		t.Errorf("buffered frames = %d, want 4", len(ch))
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()
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
	b.PublishCacheInvalidated([]string{"notes"}, 1)
	b.PublishNoteEvent("updated", "x.md")
	if _, ok := <-b.Subscribe(); ok {
		t.Error("subscribing to a closed broker should yield a closed channel")
	}
}
