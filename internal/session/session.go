// Package session persists conversation history and the latest analysis
// per subject in Redis. Writes are fire-and-forget so query handling never
// blocks on the store.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	historyKeyPrefix  = "marketmind:session:"
	analysisKeyPrefix = "marketmind:analysis:"

	// Sessions and stored analyses both expire after an hour of inactivity.
	historyTTL  = time.Hour
	analysisTTL = time.Hour

	// Conversations are capped so a chatty session cannot grow unbounded.
	maxHistoryEntries = 50

	writeTimeout = 2 * time.Second
)

// Message is a single conversation turn.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"ts"`
}

// AnalysisRecord is the latest analysis stored for a subject, bundled with
// the inputs that produced it.
type AnalysisRecord struct {
	Analysis interface{} `json:"analysis"`
	News     interface{} `json:"news,omitempty"`
	Snapshot interface{} `json:"price_snapshot,omitempty"`
}

// Store wraps Redis access for session history and latest analyses.
// A nil Redis client disables persistence without affecting callers.
type Store struct {
	redis *redis.Client
	log   zerolog.Logger
}

// NewStore creates a session store.
func NewStore(client *redis.Client, log zerolog.Logger) *Store {
	return &Store{redis: client, log: log}
}

// AppendMessage records a conversation turn for the context and refreshes
// the session TTL. Failures are logged and swallowed.
func (s *Store) AppendMessage(contextID, role, content string) {
	if s.redis == nil || contextID == "" {
		return
	}

	msg := Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to marshal session message")
		return
	}

	key := historyKeyPrefix + contextID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		pipe := s.redis.Pipeline()
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, -maxHistoryEntries, -1)
		pipe.Expire(ctx, key, historyTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			s.log.Warn().Err(err).Str("context_id", contextID).Msg("Failed to persist session message")
		}
	}()
}

// History returns the conversation turns recorded for the context,
// oldest first.
func (s *Store) History(ctx context.Context, contextID string) ([]Message, error) {
	if s.redis == nil || contextID == "" {
		return nil, nil
	}

	raw, err := s.redis.LRange(ctx, historyKeyPrefix+contextID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session history: %w", err)
	}

	messages := make([]Message, 0, len(raw))
	for _, entry := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// SaveAnalysis stores the latest analysis for a subject. The subject key is
// uppercased so "btc" and "BTC" share one slot. Failures are logged and
// swallowed.
func (s *Store) SaveAnalysis(subject string, record AnalysisRecord) {
	if s.redis == nil || subject == "" {
		return
	}

	payload, err := json.Marshal(record)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to marshal analysis record")
		return
	}

	key := analysisKeyPrefix + strings.ToUpper(subject)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.redis.Set(ctx, key, payload, analysisTTL).Err(); err != nil {
			s.log.Warn().Err(err).Str("subject", subject).Msg("Failed to persist analysis")
		}
	}()
}

// LatestAnalysis returns the stored analysis for a subject, or nil when
// none exists.
func (s *Store) LatestAnalysis(ctx context.Context, subject string) (*AnalysisRecord, error) {
	if s.redis == nil || subject == "" {
		return nil, nil
	}

	raw, err := s.redis.Get(ctx, analysisKeyPrefix+strings.ToUpper(subject)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis: %w", err)
	}

	var record AnalysisRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	return &record, nil
}
