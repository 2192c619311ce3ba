package ws

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type testSubscriber struct {
	ch      chan []byte
	mu      sync.Mutex
	closed  bool
	sendErr error
}

func newTestSubscriber() *testSubscriber {
	return &testSubscriber{ch: make(chan []byte, 8)}
}

func (s *testSubscriber) Send(payload []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.ch <- payload
	return nil
}

func (s *testSubscriber) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *testSubscriber) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestHubDeliversToUserSubscribersOnly(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ada := newTestSubscriber()
	grace := newTestSubscriber()
	hub.Register("u1", ada)
	hub.Register("u2", grace)

	hub.Broadcast("u1", []byte(`{"type":"place.created"}`))

	select {
	case payload := <-ada.ch:
		if string(payload) != `{"type":"place.created"}` {
			t.Fatalf("unexpected payload %s", payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected broadcast for u1")
	}
	select {
	case payload := <-grace.ch:
		t.Fatalf("u2 received foreign event %s", payload)
	default:
	}
}

func TestHubDropsFailingSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	broken := newTestSubscriber()
	broken.sendErr = errors.New("gone")
	hub.Register("u1", broken)
	hub.Broadcast("u1", []byte("x"))

	waitFor(t, "failing subscriber removed", func() bool { return hub.Subscribers("u1") == 0 })
	waitFor(t, "failing subscriber closed", broken.isClosed)
}

// stalledSubscriber blocks in Send until release is closed.
type stalledSubscriber struct {
	testSubscriber
	release chan struct{}
}

func (s *stalledSubscriber) Send([]byte) error {
	<-s.release
	return nil
}

func TestHubDropsStalledSubscriberWithoutBlocking(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	stalled := &stalledSubscriber{release: make(chan struct{})}
	healthy := newTestSubscriber()
	hub.Register("u1", stalled)
	hub.Register("u1", healthy)

	for i := 0; i < outboxSize+2; i++ {
		payload := []byte(strconv.Itoa(i))
		hub.Broadcast("u1", payload)
		select {
		case got := <-healthy.ch:
			if !bytes.Equal(got, payload) {
				t.Fatalf("event %d: got %s", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d held up by a stalled subscriber", i)
		}
	}

	waitFor(t, "stalled subscriber dropped", func() bool { return hub.Subscribers("u1") == 1 })
	close(stalled.release)
	waitFor(t, "stalled subscriber closed", stalled.isClosed)
	if healthy.isClosed() {
		t.Fatalf("healthy subscriber must stay connected")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting: %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := newTestSubscriber()
	hub.Register("u1", sub)
	if n := hub.Subscribers("u1"); n != 1 {
		t.Fatalf("expected one subscriber, got %d", n)
	}
	hub.Unregister("u1", sub)
	if n := hub.Subscribers("u1"); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub()
	sub := newTestSubscriber()
	hub.Register("u1", sub)
	hub.Close()
	hub.Close()

	deadline := time.Now().Add(time.Second)
	for !sub.isClosed() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !sub.isClosed() {
		t.Fatalf("expected subscriber closed on hub shutdown")
	}

	hub.Broadcast("u1", []byte("ignored"))
	late := newTestSubscriber()
	hub.Register("u1", late)
	if !late.isClosed() {
		t.Fatalf("expected late subscriber closed immediately")
	}
}

func TestSSEClientFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	client := NewSSEClient(rec, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := client.Send([]byte(`{"type":"place.deleted"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := client.Heartbeat(); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: place\ndata: {\"type\":\"place.deleted\"}\n\n") {
		t.Fatalf("unexpected frame: %q", body)
	}
	if !strings.HasSuffix(body, ": ping\n\n") {
		t.Fatalf("missing heartbeat: %q", body)
	}

	client.Close()
	select {
	case <-client.Done():
	default:
		t.Fatalf("expected done channel closed")
	}
	if err := client.Send([]byte("late")); err != io.EOF {
		t.Fatalf("expected EOF after close, got %v", err)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("late")) {
		t.Fatalf("wrote after close")
	}
}
