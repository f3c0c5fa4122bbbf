// Package scheduler periodically re-runs analysis for a configured
// watchlist so notifications fire without user queries.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexmanthefirst/marketmind/internal/agent"
	"github.com/lexmanthefirst/marketmind/internal/metrics"
)

// QueryProcessor runs one market query.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, text, contextID string) (*agent.TaskResult, error)
}

// Scheduler drives the watchlist loop.
type Scheduler struct {
	processor QueryProcessor
	subjects  []string
	interval  time.Duration
	log       zerolog.Logger
}

// New creates a scheduler.
func New(processor QueryProcessor, subjects []string, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		processor: processor,
		subjects:  subjects,
		interval:  interval,
		log:       log,
	}
}

// Run evaluates the watchlist on every tick until the context is
// cancelled. The first evaluation happens immediately.
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.subjects) == 0 || s.interval <= 0 {
		s.log.Info().Msg("Watchlist scheduler disabled")
		return
	}

	s.log.Info().
		Strs("subjects", s.subjects).
		Dur("interval", s.interval).
		Msg("Starting watchlist scheduler")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Watchlist scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce analyzes every subject concurrently. Failures are logged and
// never stop the loop.
func (s *Scheduler) runOnce(ctx context.Context) {
	var wg sync.WaitGroup
	for _, subject := range s.subjects {
		wg.Add(1)
		go func(subject string) {
			defer wg.Done()
			if _, err := s.processor.ProcessQuery(ctx, subject, "watchlist"); err != nil {
				metrics.WatchlistRuns.WithLabelValues(metrics.StatusFailed).Inc()
				s.log.Warn().Err(err).Str("subject", subject).Msg("Watchlist analysis failed")
				return
			}
			metrics.WatchlistRuns.WithLabelValues(metrics.StatusCompleted).Inc()
		}(subject)
	}
	wg.Wait()
}
