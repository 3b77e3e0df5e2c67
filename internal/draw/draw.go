// Package draw runs the daily draw: it picks the winning combination, settles
// every active ticket and pays out the winnings in one atomic batch.
package draw

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"time"

	"lucky_lottery/internal/db"
	"lucky_lottery/internal/domain"
	"lucky_lottery/internal/guard"
	"lucky_lottery/internal/ledger"
	"lucky_lottery/internal/tickets"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Source returns a uniformly distributed integer in [0, n)
type Source func(n int64) (int64, error)

// CryptoSource draws from crypto/rand
func CryptoSource(n int64) (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, fmt.Errorf("random generation failed: %w", err)
	}
	return v.Int64(), nil
}

// WinningNumbers picks PickSize distinct numbers in [MinNumber, MaxNumber],
// resampling on collision. Terminates because 5 of 50 values are drawn.
func WinningNumbers(src Source) ([]int, error) {
	span := int64(domain.MaxNumber - domain.MinNumber + 1)
	numbers := make([]int, 0, domain.PickSize)
	seen := make(map[int]bool, domain.PickSize)
	for len(numbers) < domain.PickSize {
		v, err := src(span)
		if err != nil {
			return nil, err
		}
		n := domain.MinNumber + int(v)
		if seen[n] {
			continue
		}
		seen[n] = true
		numbers = append(numbers, n)
	}
	return numbers, nil
}

// PrizeTable maps a match count to its payout. Missing counts pay nothing.
type PrizeTable map[int]decimal.Decimal

// DefaultPrizes is the standard payout table
func DefaultPrizes() PrizeTable {
	return PrizeTable{
		5: decimal.NewFromInt(10000000), // 1 crore
		4: decimal.NewFromInt(1000000),  // 10 lakh
		3: decimal.NewFromInt(600000),   // 6 lakh
		2: decimal.NewFromInt(500),
		1: decimal.NewFromInt(100),
	}
}

// Prize returns the payout for matched numbers
func (p PrizeTable) Prize(matched int) decimal.Decimal {
	if prize, ok := p[matched]; ok && prize.IsPositive() {
		return prize
	}
	return decimal.Zero
}

// tiers returns a zeroed tally, highest match count first
func (p PrizeTable) tiers() []domain.Tier {
	out := make([]domain.Tier, 0, len(p))
	for matched, prize := range p {
		if prize.IsPositive() {
			out = append(out, domain.Tier{MatchCount: matched, Prize: prize})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchCount > out[j].MatchCount })
	return out
}

// Namer resolves display names for winner records
type Namer interface {
	Name(userID string) string
}

// Engine settles draws against the ticket and ledger stores
type Engine struct {
	guard     *guard.Guard
	ledger    *ledger.Store
	tickets   *tickets.Store
	persister db.Persister
	users     Namer
	prizes    PrizeTable
	source    Source
	now       func() time.Time
	newID     func() string

	results []domain.DrawResult // oldest first
	winners []domain.Winner     // oldest first
}

// Option customizes an Engine
type Option func(*Engine)

// WithSource overrides the random source
func WithSource(src Source) Option {
	return func(e *Engine) { e.source = src }
}

// WithPrizes overrides the payout table
func WithPrizes(p PrizeTable) Option {
	return func(e *Engine) { e.prizes = p }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires the draw engine to the stores it settles
func NewEngine(g *guard.Guard, l *ledger.Store, t *tickets.Store, p db.Persister, users Namer, opts ...Option) *Engine {
	e := &Engine{
		guard:     g,
		ledger:    l,
		tickets:   t,
		persister: p,
		users:     users,
		prizes:    DefaultPrizes(),
		source:    CryptoSource,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Prizes returns the payout table in use
func (e *Engine) Prizes() PrizeTable { return e.prizes }

// Run performs the daily draw with a freshly generated winning combination.
// Once started a draw runs to completion; cancelling ctx does not abort it.
func (e *Engine) Run(ctx context.Context) (*domain.DrawResult, error) {
	ctx = context.WithoutCancel(ctx)
	unlock := e.guard.Global()
	defer unlock()

	numbers, err := WinningNumbers(e.source)
	if err != nil {
		return nil, fmt.Errorf("failed to generate winning numbers: %w", err)
	}
	return e.settle(ctx, numbers)
}

// RunWith performs a draw against a given winning combination, with the same
// run-to-completion guarantee as Run
func (e *Engine) RunWith(ctx context.Context, numbers []int) (*domain.DrawResult, error) {
	if !domain.ValidPick(numbers) {
		return nil, fmt.Errorf("%w: winning combination must be %d distinct numbers in %d-%d",
			domain.ErrValidation, domain.PickSize, domain.MinNumber, domain.MaxNumber)
	}
	ctx = context.WithoutCancel(ctx)
	unlock := e.guard.Global()
	defer unlock()
	return e.settle(ctx, append([]int(nil), numbers...))
}

// settle scores every ticket active right now. All settlements, winning
// transactions, winner records and the result are persisted as one batch and
// published together; on any error nothing is applied.
func (e *Engine) settle(ctx context.Context, numbers []int) (*domain.DrawResult, error) {
	drawnAt := e.now()
	result := domain.DrawResult{
		ID:       e.newID(),
		Numbers:  numbers,
		DrawDate: drawnAt,
		Tiers:    e.prizes.tiers(),
	}
	tierIndex := make(map[int]int, len(result.Tiers))
	for i, tier := range result.Tiers {
		tierIndex[tier.MatchCount] = i
	}

	active := e.tickets.Active()
	settled := make([]domain.Ticket, 0, len(active))
	var (
		entries []ledger.Entry
		winners []domain.Winner
	)
	for _, ticket := range active {
		matched := ticket.Matches(numbers)
		prize := e.prizes.Prize(matched)

		st, err := e.tickets.StageSettlement(ticket.ID, tickets.Outcome{Matched: matched, Prize: prize})
		if err != nil {
			return nil, fmt.Errorf("failed to settle ticket %s: %w", ticket.ID, err)
		}
		settled = append(settled, st)
		if !prize.IsPositive() {
			continue
		}

		result.Tiers[tierIndex[matched]].Count++
		entry, err := e.ledger.Stage(ticket.UserID, domain.TypeWinning, prize, domain.StatusCompleted,
			fmt.Sprintf("Won ₹%s with %d matching numbers", prize.StringFixed(0), matched), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to stage winnings for ticket %s: %w", ticket.ID, err)
		}
		entries = append(entries, entry)
		winners = append(winners, domain.Winner{
			ID:             e.newID(),
			DrawID:         result.ID,
			UserID:         ticket.UserID,
			UserName:       e.users.Name(ticket.UserID),
			TicketID:       ticket.ID,
			Numbers:        append([]int(nil), ticket.Numbers...),
			MatchedNumbers: matched,
			Prize:          prize,
			DrawDate:       drawnAt,
		})
	}

	changes := &domain.Changes{Draws: []domain.DrawResult{result}, Winners: winners}
	for _, st := range settled {
		changes.Tickets = append(changes.Tickets, st.Clone())
	}
	if err := e.ledger.Collect(changes, entries...); err != nil {
		return nil, fmt.Errorf("failed to collect winnings: %w", err)
	}
	if err := e.persister.Persist(ctx, changes); err != nil {
		return nil, fmt.Errorf("failed to persist draw: %w", err)
	}
	e.guard.Publish(func() {
		e.ledger.Apply(entries...)
		e.tickets.ApplySettlements(settled...)
		e.results = append(e.results, result)
		e.winners = append(e.winners, winners...)
	})

	log.WithFields(log.Fields{
		"draw_id": result.ID,
		"numbers": numbers,
		"tickets": len(settled),
		"winners": len(winners),
	}).Info("Daily draw completed")

	out := result
	out.Numbers = append([]int(nil), result.Numbers...)
	out.Tiers = append([]domain.Tier(nil), result.Tiers...)
	return &out, nil
}

// Results lists draw results, most recent first
func (e *Engine) Results() []domain.DrawResult {
	out := []domain.DrawResult{}
	e.guard.View(func() {
		for i := len(e.results) - 1; i >= 0; i-- {
			out = append(out, e.results[i])
		}
	})
	return out
}

// Latest returns the most recent draw result
func (e *Engine) Latest() (domain.DrawResult, error) {
	var (
		r  domain.DrawResult
		ok bool
	)
	e.guard.View(func() {
		if n := len(e.results); n > 0 {
			r, ok = e.results[n-1], true
		}
	})
	if !ok {
		return domain.DrawResult{}, fmt.Errorf("%w: no draw has run yet", domain.ErrNotFound)
	}
	return r, nil
}

// Winners lists winner records, most recent first. An empty drawID lists all draws.
func (e *Engine) Winners(drawID string) []domain.Winner {
	out := []domain.Winner{}
	e.guard.View(func() {
		for i := len(e.winners) - 1; i >= 0; i-- {
			if drawID == "" || e.winners[i].DrawID == drawID {
				out = append(out, e.winners[i])
			}
		}
	})
	return out
}

// Restore loads past results and winners from storage
func (e *Engine) Restore(results []domain.DrawResult, winners []domain.Winner) {
	rs := append([]domain.DrawResult(nil), results...)
	ws := append([]domain.Winner(nil), winners...)
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].DrawDate.Before(rs[j].DrawDate) })
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].DrawDate.Before(ws[j].DrawDate) })
	e.guard.Publish(func() {
		e.results = rs
		e.winners = ws
	})
}
