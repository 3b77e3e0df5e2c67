package draw

import (
	"context"
	"time"

	"lucky_lottery/internal/domain"
	"lucky_lottery/internal/tickets"

	log "github.com/sirupsen/logrus"
)

// Runner performs one draw
type Runner interface {
	Run(ctx context.Context) (*domain.DrawResult, error)
}

// Scheduler triggers a draw every day at a fixed UTC hour
type Scheduler struct {
	runner Runner
	hour   int
	now    func() time.Time
	after  func(time.Duration) <-chan time.Time
}

// NewScheduler creates a daily scheduler
func NewScheduler(r Runner, hour int) *Scheduler {
	return &Scheduler{
		runner: r,
		hour:   hour,
		now:    func() time.Time { return time.Now().UTC() },
		after:  time.After,
	}
}

// Start blocks, running one draw per day until ctx is cancelled.
// A failed draw is logged and retried at the next slot.
func (s *Scheduler) Start(ctx context.Context) {
	for ctx.Err() == nil {
		next := tickets.NextDrawAt(s.now(), s.hour)
		log.WithField("next_draw", next.Format(time.RFC3339)).Info("Draw scheduled")
		select {
		case <-ctx.Done():
			return
		case <-s.after(next.Sub(s.now())):
		}
		result, err := s.runner.Run(ctx)
		if err != nil {
			log.WithError(err).Error("Scheduled draw failed")
			continue
		}
		log.WithFields(log.Fields{"draw_id": result.ID, "numbers": result.Numbers}).Info("Scheduled draw finished")
	}
}
