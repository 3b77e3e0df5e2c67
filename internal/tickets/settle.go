package tickets

import (
	"context"
	"fmt"

	"lucky_lottery/internal/domain"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Outcome is the result of scoring one ticket against a winning combination
type Outcome struct {
	Matched int
	Prize   decimal.Decimal // zero means the ticket lost
}

// StageSettlement validates the settlement of an active ticket and returns the
// settled ticket without publishing it.
func (s *Store) StageSettlement(id string, o Outcome) (domain.Ticket, error) {
	if o.Matched < 0 || o.Matched > domain.PickSize {
		return domain.Ticket{}, fmt.Errorf("%w: matched count %d", domain.ErrValidation, o.Matched)
	}
	if o.Prize.IsNegative() {
		return domain.Ticket{}, fmt.Errorf("%w: negative prize", domain.ErrValidation)
	}
	t, err := s.Get(id)
	if err != nil {
		return domain.Ticket{}, err
	}
	if t.Status != domain.TicketActive {
		return domain.Ticket{}, fmt.Errorf("%w: ticket %s is already %s", domain.ErrInvalidTransition, id, t.Status)
	}

	matched := o.Matched
	t.MatchedNumbers = &matched
	if o.Prize.IsPositive() {
		prize := o.Prize
		t.Status = domain.TicketWon
		t.Prize = &prize
	} else {
		t.Status = domain.TicketLost
	}
	return t, nil
}

// ApplySettlements publishes settled tickets. It must run inside guard.Publish
// after the settlements were persisted.
func (s *Store) ApplySettlements(settled ...domain.Ticket) {
	for _, t := range settled {
		s.apply(t)
	}
}

// Settle resolves a single active ticket. Paying out the prize is the
// caller's business; the draw engine settles and pays in one batch.
func (s *Store) Settle(ctx context.Context, id string, o Outcome) (*domain.Ticket, error) {
	current, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	unlock := s.guard.User(current.UserID)
	defer unlock()

	settled, err := s.StageSettlement(id, o)
	if err != nil {
		return nil, err
	}
	if err := s.persister.Persist(ctx, &domain.Changes{Tickets: []domain.Ticket{settled.Clone()}}); err != nil {
		return nil, fmt.Errorf("persist settlement: %w", err)
	}
	s.guard.Publish(func() { s.ApplySettlements(settled) })

	log.WithFields(log.Fields{
		"ticket_id": id,
		"status":    settled.Status,
		"matched":   o.Matched,
	}).Info("Ticket settled")
	return &settled, nil
}
