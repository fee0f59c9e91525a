package courserag

import (
	"context"
	"fmt"
	"time"

	"github.com/Desarso/courserag/stores"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SessionPruner periodically deletes sessions idle for longer than a TTL.
type SessionPruner struct {
	store  stores.HistoryStore
	ttl    time.Duration
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewSessionPruner(store stores.HistoryStore, ttl time.Duration, logger logrus.FieldLogger) *SessionPruner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SessionPruner{store: store, ttl: ttl, logger: logger, now: time.Now}
}

// Prune runs one pass and returns how many sessions were removed.
func (p *SessionPruner) Prune(ctx context.Context) (int, error) {
	removed, err := p.store.PruneSessions(ctx, p.now().Add(-p.ttl))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	sessionsPrunedTotal.Add(float64(removed))
	if removed > 0 {
		p.logger.WithField("removed", removed).Info("Pruned idle sessions")
	}
	return removed, nil
}

// Start schedules Prune on a six-field cron expression and starts the scheduler.
// Stop the returned scheduler on shutdown.
func (p *SessionPruner) Start(schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithParser(cronParser))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := p.Prune(ctx); err != nil {
			p.logger.WithError(err).Warn("Session pruning failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
