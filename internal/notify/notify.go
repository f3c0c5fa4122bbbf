// Package notify dispatches high-impact analysis notifications to the
// configured sinks: console always, webhook when configured.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is a high-impact analysis worth notifying about.
type Event struct {
	Subject  string      `json:"key"`
	Impact   float64     `json:"impact"`
	Analysis interface{} `json:"analysis"`
	News     interface{} `json:"news,omitempty"`
	Snapshot interface{} `json:"price_snapshot,omitempty"`
}

// Notifier is a single notification sink.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LogNotifier writes notifications to the log.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(_ context.Context, event Event) error {
	log.Info().
		Str("subject", event.Subject).
		Float64("impact", event.Impact).
		Msg("Market impact notification")
	return nil
}

// WebhookNotifier POSTs notifications to an HTTP endpoint, optionally
// with a bearer token.
type WebhookNotifier struct {
	url    string
	token  string
	client *http.Client
}

// NewWebhookNotifier creates a webhook sink.
func NewWebhookNotifier(url, token string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Notify implements Notifier.
func (w *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Manager applies the impact threshold and per-subject cooldown, then
// fans out to every sink. Dispatch is fire-and-forget.
type Manager struct {
	notifiers []Notifier
	threshold float64
	cooldown  time.Duration
	enabled   bool

	mu           sync.Mutex
	lastNotified map[string]time.Time
	now          func() time.Time
}

// NewManager creates a notification manager.
func NewManager(enabled bool, threshold float64, cooldown time.Duration, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers:    notifiers,
		threshold:    threshold,
		cooldown:     cooldown,
		enabled:      enabled,
		lastNotified: make(map[string]time.Time),
		now:          time.Now,
	}
}

// MaybeNotify dispatches the event when notifications are enabled, the
// absolute impact meets the threshold, and the subject is outside its
// cooldown window. Reports whether a dispatch was triggered.
func (m *Manager) MaybeNotify(event Event) bool {
	if !m.enabled || len(m.notifiers) == 0 {
		return false
	}
	if math.Abs(event.Impact) < m.threshold {
		return false
	}

	m.mu.Lock()
	now := m.now()
	if last, ok := m.lastNotified[event.Subject]; ok && now.Sub(last) < m.cooldown {
		m.mu.Unlock()
		return false
	}
	m.lastNotified[event.Subject] = now
	m.mu.Unlock()

	for _, n := range m.notifiers {
		go func(n Notifier) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := n.Notify(ctx, event); err != nil {
				log.Warn().Err(err).Str("subject", event.Subject).Msg("Notification dispatch failed")
			}
		}(n)
	}
	return true
}
