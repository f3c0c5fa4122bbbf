package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	done   chan struct{}
}

func newRecordingNotifier(expected int) *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, expected)}
}

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingNotifier) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestMaybeNotifyThreshold(t *testing.T) {
	rec := newRecordingNotifier(1)
	m := NewManager(true, 0.5, time.Minute, rec)

	assert.False(t, m.MaybeNotify(Event{Subject: "BTC", Impact: 0.3}))
	assert.True(t, m.MaybeNotify(Event{Subject: "BTC", Impact: 0.7}))
	rec.wait(t)
	assert.Equal(t, 1, rec.count())
}

func TestMaybeNotifyNegativeImpact(t *testing.T) {
	rec := newRecordingNotifier(1)
	m := NewManager(true, 0.5, time.Minute, rec)

	assert.True(t, m.MaybeNotify(Event{Subject: "BTC", Impact: -0.8}))
	rec.wait(t)
}

func TestMaybeNotifyCooldown(t *testing.T) {
	rec := newRecordingNotifier(8)
	m := NewManager(true, 0.5, 900*time.Second, rec)

	current := time.Unix(1000, 0)
	m.now = func() time.Time { return current }

	// Two qualifying analyses inside the window: exactly one dispatch.
	assert.True(t, m.MaybeNotify(Event{Subject: "BTC", Impact: 0.9}))
	assert.False(t, m.MaybeNotify(Event{Subject: "BTC", Impact: 0.9}))

	// A different subject has its own window.
	assert.True(t, m.MaybeNotify(Event{Subject: "ETH", Impact: 0.9}))

	// After the window passes, the subject fires again.
	current = current.Add(901 * time.Second)
	assert.True(t, m.MaybeNotify(Event{Subject: "BTC", Impact: 0.9}))
}

func TestMaybeNotifyDisabled(t *testing.T) {
	rec := newRecordingNotifier(1)
	m := NewManager(false, 0.5, time.Minute, rec)

	assert.False(t, m.MaybeNotify(Event{Subject: "BTC", Impact: 0.9}))
	assert.Zero(t, rec.count())
}

func TestWebhookNotifier(t *testing.T) {
	received := make(chan Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var event Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		received <- event
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "secret")
	err := n.Notify(context.Background(), Event{Subject: "BTC", Impact: 0.7})
	require.NoError(t, err)

	event := <-received
	assert.Equal(t, "BTC", event.Subject)
	assert.Equal(t, 0.7, event.Impact)
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "")
	assert.Error(t, n.Notify(context.Background(), Event{Subject: "BTC"}))
}
