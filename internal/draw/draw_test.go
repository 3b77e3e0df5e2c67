package draw

import (
	"context"
	"errors"
	"testing"

	"lucky_lottery/internal/db"
	"lucky_lottery/internal/domain"
	"lucky_lottery/internal/guard"
	"lucky_lottery/internal/ledger"
	"lucky_lottery/internal/tickets"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type names map[string]string

func (n names) Name(id string) string { return n[id] }

type switchPersister struct{ err error }

func (p *switchPersister) Persist(context.Context, *domain.Changes) error { return p.err }

type fixture struct {
	persister *switchPersister
	ledger    *ledger.Store
	tickets   *tickets.Store
	engine    *Engine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	g := guard.New()
	p := &switchPersister{}
	l := ledger.New(g, p)
	ts := tickets.New(g, l, p)
	return &fixture{
		persister: p,
		ledger:    l,
		tickets:   ts,
		engine:    NewEngine(g, l, ts, p, names{"u1": "Demo User", "u2": "Priya"}, opts...),
	}
}

func (f *fixture) fund(t *testing.T, user string, amount int64) {
	t.Helper()
	f.ledger.Open(user)
	_, err := f.ledger.Record(context.Background(), user, domain.TypeDeposit, decimal.NewFromInt(amount), domain.StatusCompleted, "seed", nil)
	require.NoError(t, err)
}

func (f *fixture) buy(t *testing.T, user string, numbers ...int) domain.Ticket {
	t.Helper()
	for _, n := range numbers {
		_, err := f.tickets.Toggle(user, n)
		require.NoError(t, err)
	}
	ticket, err := f.tickets.Purchase(context.Background(), user)
	require.NoError(t, err)
	return *ticket
}

func balance(t *testing.T, l *ledger.Store, user string) decimal.Decimal {
	t.Helper()
	b, err := l.Balance(user)
	require.NoError(t, err)
	return b
}

var winning = []int{7, 12, 23, 35, 42}

func TestWinningNumbers_Valid(t *testing.T) {
	for i := 0; i < 500; i++ {
		numbers, err := WinningNumbers(CryptoSource)
		require.NoError(t, err)
		assert.True(t, domain.ValidPick(numbers), "%v", numbers)
	}
}

func TestWinningNumbers_ResamplesCollisions(t *testing.T) {
	seq := []int64{3, 3, 3, 9, 9, 0, 49, 0, 21}
	i := 0
	src := func(n int64) (int64, error) {
		assert.Equal(t, int64(50), n)
		v := seq[i]
		i++
		return v, nil
	}
	numbers, err := WinningNumbers(src)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 9, 0, 49, 21}, numbers)
}

func TestWinningNumbers_SourceError(t *testing.T) {
	_, err := WinningNumbers(func(int64) (int64, error) { return 0, errors.New("entropy exhausted") })
	assert.Error(t, err)
}

func TestPrizeTable(t *testing.T) {
	p := DefaultPrizes()
	tests := map[int]int64{5: 10000000, 4: 1000000, 3: 600000, 2: 500, 1: 100, 0: 0}
	for matched, want := range tests {
		assert.True(t, decimal.NewFromInt(want).Equal(p.Prize(matched)), "match %d", matched)
	}
	tiers := p.tiers()
	require.Len(t, tiers, 5)
	assert.Equal(t, 5, tiers[0].MatchCount)
	assert.Equal(t, 1, tiers[4].MatchCount)
}

func TestRunWith_ThreeMatchesWins(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "u1", 100)
	ticket := f.buy(t, "u1", 7, 12, 23, 1, 2)

	result, err := f.engine.RunWith(context.Background(), winning)
	require.NoError(t, err)

	settled, err := f.tickets.Get(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketWon, settled.Status)
	assert.Equal(t, 3, *settled.MatchedNumbers)
	assert.True(t, decimal.NewFromInt(600000).Equal(*settled.Prize))

	assert.True(t, decimal.NewFromInt(600090).Equal(balance(t, f.ledger, "u1")))
	wins := f.ledger.Transactions("u1", ledger.Filter{Type: domain.TypeWinning})
	require.Len(t, wins, 1)
	assert.Equal(t, domain.StatusCompleted, wins[0].Status)
	assert.Equal(t, "Won ₹600000 with 3 matching numbers", wins[0].Description)

	for _, tier := range result.Tiers {
		want := 0
		if tier.MatchCount == 3 {
			want = 1
		}
		assert.Equal(t, want, tier.Count, "tier %d", tier.MatchCount)
	}

	w := f.engine.Winners(result.ID)
	require.Len(t, w, 1)
	assert.Equal(t, "Demo User", w[0].UserName)
	assert.Equal(t, ticket.ID, w[0].TicketID)
}

func TestRunWith_ZeroMatchLoses(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "u1", 100)
	ticket := f.buy(t, "u1", 0, 1, 2, 3, 4)

	_, err := f.engine.RunWith(context.Background(), winning)
	require.NoError(t, err)

	settled, _ := f.tickets.Get(ticket.ID)
	assert.Equal(t, domain.TicketLost, settled.Status)
	require.NotNil(t, settled.MatchedNumbers)
	assert.Equal(t, 0, *settled.MatchedNumbers)
	assert.Nil(t, settled.Prize)
	assert.Empty(t, f.ledger.Transactions("u1", ledger.Filter{Type: domain.TypeWinning}))
	assert.Empty(t, f.engine.Winners(""))
	assert.True(t, decimal.NewFromInt(90).Equal(balance(t, f.ledger, "u1")))
}

func TestRun_NoActiveTickets(t *testing.T) {
	f := newFixture(t)
	result, err := f.engine.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, domain.ValidPick(result.Numbers))
	require.Len(t, result.Tiers, 5)
	for _, tier := range result.Tiers {
		assert.Zero(t, tier.Count)
	}
	latest, err := f.engine.Latest()
	require.NoError(t, err)
	assert.Equal(t, result.ID, latest.ID)
}

func TestRun_SecondDrawSkipsSettledTickets(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "u1", 100)
	first := f.buy(t, "u1", 7, 12, 23, 35, 42)

	_, err := f.engine.RunWith(context.Background(), winning)
	require.NoError(t, err)
	afterFirst := balance(t, f.ledger, "u1")

	second := f.buy(t, "u1", 0, 1, 2, 3, 4)
	result, err := f.engine.RunWith(context.Background(), winning)
	require.NoError(t, err)

	assert.True(t, afterFirst.Sub(decimal.NewFromInt(10)).Equal(balance(t, f.ledger, "u1")))
	got, _ := f.tickets.Get(first.ID)
	assert.Equal(t, domain.TicketWon, got.Status)
	got, _ = f.tickets.Get(second.ID)
	assert.Equal(t, domain.TicketLost, got.Status)
	assert.Len(t, f.ledger.Transactions("u1", ledger.Filter{Type: domain.TypeWinning}), 1)
	assert.Len(t, f.engine.Winners(result.ID), 0)
	assert.Len(t, f.engine.Results(), 2)
	assert.Equal(t, result.ID, f.engine.Results()[0].ID)
}

func TestRun_PersistFailureAppliesNothing(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "u1", 100)
	f.fund(t, "u2", 100)
	t1 := f.buy(t, "u1", 7, 12, 23, 35, 42)
	t2 := f.buy(t, "u2", 0, 1, 2, 3, 4)

	f.persister.err = errors.New("db down")
	_, err := f.engine.RunWith(context.Background(), winning)
	require.Error(t, err)

	for _, id := range []string{t1.ID, t2.ID} {
		got, _ := f.tickets.Get(id)
		assert.Equal(t, domain.TicketActive, got.Status)
	}
	assert.True(t, decimal.NewFromInt(90).Equal(balance(t, f.ledger, "u1")))
	assert.Empty(t, f.engine.Results())
	assert.Empty(t, f.engine.Winners(""))

	f.persister.err = nil
	_, err = f.engine.RunWith(context.Background(), winning)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10000090).Equal(balance(t, f.ledger, "u1")))
}

// ctxPersister fails like a database driver does when its context is done
type ctxPersister struct{}

func (ctxPersister) Persist(ctx context.Context, _ *domain.Changes) error { return ctx.Err() }

func TestRun_IgnoresCallerCancellation(t *testing.T) {
	g := guard.New()
	l := ledger.New(g, db.Nop{})
	ts := tickets.New(g, l, db.Nop{})
	engine := NewEngine(g, l, ts, ctxPersister{}, names{})
	f := &fixture{ledger: l, tickets: ts, engine: engine}
	f.fund(t, "u1", 100)
	ticket := f.buy(t, "u1", 7, 12, 23, 35, 42)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.RunWith(ctx, winning)
	require.NoError(t, err)
	got, _ := ts.Get(ticket.ID)
	assert.Equal(t, domain.TicketWon, got.Status)
	assert.Len(t, engine.Results(), 1)

	_, err = engine.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, engine.Results(), 2)
}

func TestRun_MultipleWinningTicketsSameUser(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "u1", 100)
	f.buy(t, "u1", 7, 12, 0, 1, 2)  // 2 matches
	f.buy(t, "u1", 7, 12, 23, 3, 4) // 3 matches

	result, err := f.engine.RunWith(context.Background(), winning)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(80+500+600000).Equal(balance(t, f.ledger, "u1")))
	cached, computed, err := f.ledger.Audit("u1")
	require.NoError(t, err)
	assert.True(t, cached.Equal(computed))
	assert.Len(t, f.engine.Winners(result.ID), 2)
}

func TestRunWith_InvalidCombination(t *testing.T) {
	f := newFixture(t)
	for _, numbers := range [][]int{{1, 2, 3, 4}, {1, 1, 2, 3, 4}, {1, 2, 3, 4, 50}} {
		_, err := f.engine.RunWith(context.Background(), numbers)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
	assert.Empty(t, f.engine.Results())
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "u1", 100)

	ticket := f.buy(t, "u1", 7, 12, 23, 35, 42)
	assert.True(t, decimal.NewFromInt(90).Equal(balance(t, f.ledger, "u1")))
	assert.Len(t, f.tickets.Tickets("u1", domain.TicketActive), 1)
	purchases := f.ledger.Transactions("u1", ledger.Filter{Type: domain.TypeTicketPurchase, Status: domain.StatusCompleted})
	require.Len(t, purchases, 1)
	assert.True(t, decimal.NewFromInt(10).Equal(purchases[0].Amount))

	dep, err := f.ledger.RequestDeposit(ctx, "u1", decimal.NewFromInt(50), domain.PaymentDetails{Reference: "UPI98765", Name: "Demo User"})
	require.NoError(t, err)
	_, err = f.ledger.SetStatus(ctx, dep.ID, domain.StatusCompleted)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(140).Equal(balance(t, f.ledger, "u1")))

	_, err = f.engine.RunWith(ctx, winning)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(140+10000000).Equal(balance(t, f.ledger, "u1")))
	got, _ := f.tickets.Get(ticket.ID)
	assert.Equal(t, domain.TicketWon, got.Status)
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	f.engine.Restore(
		[]domain.DrawResult{{ID: "d1", Numbers: winning}},
		[]domain.Winner{{ID: "w1", DrawID: "d1"}, {ID: "w2", DrawID: "d0"}},
	)
	latest, err := f.engine.Latest()
	require.NoError(t, err)
	assert.Equal(t, "d1", latest.ID)
	assert.Len(t, f.engine.Winners("d1"), 1)
	assert.Len(t, f.engine.Winners(""), 2)
}
