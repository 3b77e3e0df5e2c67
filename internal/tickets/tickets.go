// Package tickets owns number selections and purchased tickets.
package tickets

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"lucky_lottery/internal/db"
	"lucky_lottery/internal/domain"
	"lucky_lottery/internal/guard"
	"lucky_lottery/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultPrice is the price of one ticket
var DefaultPrice = decimal.NewFromInt(10)

// Store keeps tickets and the in-progress selection of every user.
// It shares the ledger's guard so a purchase is published as one step.
type Store struct {
	guard     *guard.Guard
	ledger    *ledger.Store
	persister db.Persister
	price     decimal.Decimal
	drawHour  int
	now       func() time.Time
	newID     func() string

	byID       map[string]*domain.Ticket
	all        []*domain.Ticket // oldest first
	selections map[string][]int
}

// Option customizes a Store
type Option func(*Store)

// WithPrice sets the ticket price
func WithPrice(price decimal.Decimal) Option {
	return func(s *Store) { s.price = price }
}

// WithDrawHour sets the UTC hour of the daily draw tickets are bound to
func WithDrawHour(hour int) Option {
	return func(s *Store) { s.drawHour = hour }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty ticket store on top of l
func New(g *guard.Guard, l *ledger.Store, p db.Persister, opts ...Option) *Store {
	s := &Store{
		guard:      g,
		ledger:     l,
		persister:  p,
		price:      DefaultPrice,
		drawHour:   20,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
		byID:       make(map[string]*domain.Ticket),
		selections: make(map[string][]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Price is the price of one ticket
func (s *Store) Price() decimal.Decimal { return s.price }

// NextDrawAt returns the first draw instant at hour:00 UTC strictly after t
func NextDrawAt(t time.Time, hour int) time.Time {
	t = t.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Toggle adds n to the user's selection, or removes it if already selected.
// Adding to a full selection is ignored.
func (s *Store) Toggle(userID string, n int) ([]int, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if n < domain.MinNumber || n > domain.MaxNumber {
		return nil, fmt.Errorf("%w: number %d outside %d-%d", domain.ErrValidation, n, domain.MinNumber, domain.MaxNumber)
	}
	unlock := s.guard.User(userID)
	defer unlock()

	var out []int
	s.guard.Publish(func() {
		sel := s.selections[userID]
		for i, v := range sel {
			if v == n {
				sel = append(sel[:i:i], sel[i+1:]...)
				s.selections[userID] = sel
				out = append([]int(nil), sel...)
				return
			}
		}
		if len(sel) < domain.PickSize {
			sel = append(sel, n)
			s.selections[userID] = sel
		}
		out = append([]int(nil), sel...)
	})
	return out, nil
}

// Clear empties the user's selection
func (s *Store) Clear(userID string) {
	unlock := s.guard.User(userID)
	defer unlock()
	s.guard.Publish(func() { delete(s.selections, userID) })
}

// Selection returns the user's in-progress pick
func (s *Store) Selection(userID string) []int {
	out := []int{}
	s.guard.View(func() { out = append(out, s.selections[userID]...) })
	return out
}

func describe(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return "Purchase of lottery ticket with numbers " + strings.Join(parts, ", ")
}

// Purchase turns the user's selection into an active ticket and charges the
// ticket price, clearing the selection. Nothing changes when it fails.
func (s *Store) Purchase(ctx context.Context, userID string) (*domain.Ticket, error) {
	if userID == "" || !s.ledger.HasAccount(userID) {
		return nil, domain.ErrUnauthenticated
	}
	unlock := s.guard.User(userID)
	defer unlock()

	numbers := s.Selection(userID)
	if len(numbers) != domain.PickSize {
		return nil, fmt.Errorf("%w: incomplete selection, pick exactly %d numbers (have %d)", domain.ErrValidation, domain.PickSize, len(numbers))
	}
	balance, err := s.ledger.Balance(userID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(s.price) {
		return nil, fmt.Errorf("%w: ticket costs ₹%s, balance ₹%s", domain.ErrInsufficientBalance,
			s.price.StringFixed(2), balance.StringFixed(2))
	}

	entry, err := s.ledger.Stage(userID, domain.TypeTicketPurchase, s.price, domain.StatusCompleted, describe(numbers), nil)
	if err != nil {
		return nil, err
	}
	now := s.now()
	ticket := domain.Ticket{
		ID:            s.newID(),
		UserID:        userID,
		Numbers:       numbers,
		PurchaseDate:  now,
		DrawDate:      NextDrawAt(now, s.drawHour),
		Status:        domain.TicketActive,
		TransactionID: entry.Tx.ID,
	}
	changes := &domain.Changes{Tickets: []domain.Ticket{ticket.Clone()}}
	if err := s.ledger.Collect(changes, entry); err != nil {
		return nil, err
	}
	if err := s.persister.Persist(ctx, changes); err != nil {
		return nil, fmt.Errorf("persist ticket purchase: %w", err)
	}
	s.guard.Publish(func() {
		s.ledger.Apply(entry)
		s.apply(ticket)
		delete(s.selections, userID)
	})

	log.WithFields(log.Fields{
		"user_id":   userID,
		"ticket_id": ticket.ID,
		"numbers":   numbers,
		"draw_date": ticket.DrawDate.Format(time.RFC3339),
		"price":     s.price.StringFixed(2),
	}).Info("Ticket purchased")

	out := ticket.Clone()
	return &out, nil
}

// apply inserts or replaces a ticket; the caller is inside guard.Publish
func (s *Store) apply(t domain.Ticket) {
	t = t.Clone()
	if p, ok := s.byID[t.ID]; ok {
		*p = t
		return
	}
	s.byID[t.ID] = &t
	s.all = append(s.all, &t)
}

// Get returns a ticket by id
func (s *Store) Get(id string) (domain.Ticket, error) {
	var (
		t  domain.Ticket
		ok bool
	)
	s.guard.View(func() {
		var p *domain.Ticket
		if p, ok = s.byID[id]; ok {
			t = p.Clone()
		}
	})
	if !ok {
		return domain.Ticket{}, fmt.Errorf("%w: ticket %s", domain.ErrNotFound, id)
	}
	return t, nil
}

// Tickets lists a user's tickets, newest first. An empty status matches all.
func (s *Store) Tickets(userID string, status domain.TicketStatus) []domain.Ticket {
	out := []domain.Ticket{}
	s.guard.View(func() {
		for i := len(s.all) - 1; i >= 0; i-- {
			t := s.all[i]
			if t.UserID == userID && (status == "" || t.Status == status) {
				out = append(out, t.Clone())
			}
		}
	})
	return out
}

// Active lists every active ticket in purchase order
func (s *Store) Active() []domain.Ticket {
	out := []domain.Ticket{}
	s.guard.View(func() {
		for _, t := range s.all {
			if t.Status == domain.TicketActive {
				out = append(out, t.Clone())
			}
		}
	})
	return out
}

// Restore loads tickets from storage
func (s *Store) Restore(tickets []domain.Ticket) {
	sorted := make([]domain.Ticket, len(tickets))
	copy(sorted, tickets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PurchaseDate.Before(sorted[j].PurchaseDate) })

	s.guard.Publish(func() {
		s.byID = make(map[string]*domain.Ticket, len(sorted))
		s.all = make([]*domain.Ticket, 0, len(sorted))
		for _, t := range sorted {
			s.apply(t)
		}
	})
}
