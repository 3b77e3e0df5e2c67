// Package ledger owns every user's transaction log and the balance derived from it.
//
// A user's balance always equals the signed sum of that user's completed
// transactions. The balance is cached and adjusted by the delta of each write,
// in the same publish step as the write itself.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lucky_lottery/internal/db"
	"lucky_lottery/internal/domain"
	"lucky_lottery/internal/guard"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type account struct {
	balance decimal.Decimal
	txs     []*domain.Transaction // oldest first
}

// Store is the ledger. Mutations take the owner's guard slot; in-memory state
// is read and published under the guard's state lock.
type Store struct {
	guard     *guard.Guard
	persister db.Persister
	now       func() time.Time
	newID     func() string

	accounts map[string]*account
	byID     map[string]*domain.Transaction
	all      []*domain.Transaction // oldest first
}

// Option customizes a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides the transaction id generator
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates an empty ledger
func New(g *guard.Guard, p db.Persister, opts ...Option) *Store {
	s := &Store{
		guard:     g,
		persister: p,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
		accounts:  make(map[string]*account),
		byID:      make(map[string]*domain.Transaction),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open registers an account with a zero balance. Opening an existing account is a no-op.
func (s *Store) Open(userID string) {
	s.guard.Publish(func() {
		if _, ok := s.accounts[userID]; !ok {
			s.accounts[userID] = &account{}
		}
	})
}

// Record creates a transaction. Completed transactions move the balance immediately.
func (s *Store) Record(ctx context.Context, userID string, typ domain.TransactionType, amount decimal.Decimal,
	status domain.TransactionStatus, description string, details *domain.PaymentDetails) (*domain.Transaction, error) {
	unlock := s.guard.User(userID)
	defer unlock()
	return s.record(ctx, userID, typ, amount, status, description, details)
}

// record assumes the caller holds the user's guard slot
func (s *Store) record(ctx context.Context, userID string, typ domain.TransactionType, amount decimal.Decimal,
	status domain.TransactionStatus, description string, details *domain.PaymentDetails) (*domain.Transaction, error) {
	entry, err := s.Stage(userID, typ, amount, status, description, details)
	if err != nil {
		return nil, err
	}
	changes := &domain.Changes{}
	if err := s.Collect(changes, entry); err != nil {
		return nil, err
	}
	if err := s.persister.Persist(ctx, changes); err != nil {
		return nil, fmt.Errorf("persist transaction: %w", err)
	}
	s.guard.Publish(func() { s.Apply(entry) })

	log.WithFields(log.Fields{
		"user_id": userID,
		"tx_id":   entry.Tx.ID,
		"type":    typ,
		"amount":  amount.StringFixed(2),
		"status":  status,
	}).Info("Transaction recorded")

	tx := entry.Tx.Clone()
	return &tx, nil
}

// SetStatus moves a pending transaction to completed or rejected. Completing
// applies the signed amount to the owner's balance in the same step.
func (s *Store) SetStatus(ctx context.Context, id string, status domain.TransactionStatus) (*domain.Transaction, error) {
	current, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	unlock := s.guard.User(current.UserID)
	defer unlock()

	entry, err := s.StageStatus(id, status)
	if err != nil {
		return nil, err
	}
	changes := &domain.Changes{}
	if err := s.Collect(changes, entry); err != nil {
		return nil, err
	}
	if err := s.persister.Persist(ctx, changes); err != nil {
		return nil, fmt.Errorf("persist status change: %w", err)
	}
	s.guard.Publish(func() { s.Apply(entry) })

	log.WithFields(log.Fields{
		"user_id": entry.Tx.UserID,
		"tx_id":   id,
		"type":    entry.Tx.Type,
		"amount":  entry.Tx.Amount.StringFixed(2),
		"status":  status,
	}).Info("Transaction status changed")

	tx := entry.Tx.Clone()
	return &tx, nil
}

// RequestDeposit files a pending deposit backed by a manually attested UPI payment
func (s *Store) RequestDeposit(ctx context.Context, userID string, amount decimal.Decimal, details domain.PaymentDetails) (*domain.Transaction, error) {
	if len(details.Reference) < 4 {
		return nil, fmt.Errorf("%w: transaction id must be at least 4 characters", domain.ErrValidation)
	}
	if len(details.Name) < 2 {
		return nil, fmt.Errorf("%w: name must be at least 2 characters", domain.ErrValidation)
	}
	return s.Record(ctx, userID, domain.TypeDeposit, amount, domain.StatusPending,
		"Deposit of ₹"+amount.StringFixed(2), &details)
}

// RequestWithdrawal files a pending payout. The balance must cover it at request time.
func (s *Store) RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, details domain.PaymentDetails) (*domain.Transaction, error) {
	if len(details.UPIID) < 5 {
		return nil, fmt.Errorf("%w: please enter a valid UPI ID", domain.ErrValidation)
	}
	if len(details.Name) < 2 {
		return nil, fmt.Errorf("%w: name must be at least 2 characters", domain.ErrValidation)
	}
	unlock := s.guard.User(userID)
	defer unlock()

	balance, err := s.Balance(userID)
	if err != nil {
		return nil, err
	}
	if domain.ValidAmount(amount) && balance.LessThan(amount) {
		return nil, fmt.Errorf("%w: cannot withdraw ₹%s from ₹%s", domain.ErrInsufficientBalance,
			amount.StringFixed(2), balance.StringFixed(2))
	}
	return s.record(ctx, userID, domain.TypeWithdraw, amount, domain.StatusPending,
		"Withdrawal of ₹"+amount.StringFixed(2), &details)
}

// Balance returns the cached balance of a user
func (s *Store) Balance(userID string) (decimal.Decimal, error) {
	var (
		balance decimal.Decimal
		ok      bool
	)
	s.guard.View(func() {
		var acc *account
		if acc, ok = s.accounts[userID]; ok {
			balance = acc.balance
		}
	})
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: account %s", domain.ErrNotFound, userID)
	}
	return balance, nil
}

// HasAccount reports whether userID has an open account
func (s *Store) HasAccount(userID string) bool {
	var ok bool
	s.guard.View(func() { _, ok = s.accounts[userID] })
	return ok
}

// Get returns a single transaction
func (s *Store) Get(id string) (domain.Transaction, error) {
	var (
		tx domain.Transaction
		ok bool
	)
	s.guard.View(func() {
		var p *domain.Transaction
		if p, ok = s.byID[id]; ok {
			tx = p.Clone()
		}
	})
	if !ok {
		return domain.Transaction{}, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	return tx, nil
}

// Filter narrows a transaction listing. Zero fields match everything.
type Filter struct {
	Status domain.TransactionStatus
	Type   domain.TransactionType
}

func (f Filter) match(tx *domain.Transaction) bool {
	return (f.Status == "" || tx.Status == f.Status) && (f.Type == "" || tx.Type == f.Type)
}

func collect(txs []*domain.Transaction, f Filter) []domain.Transaction {
	out := make([]domain.Transaction, 0)
	for i := len(txs) - 1; i >= 0; i-- {
		if f.match(txs[i]) {
			out = append(out, txs[i].Clone())
		}
	}
	return out
}

// Transactions lists a user's transactions, most recent first
func (s *Store) Transactions(userID string, f Filter) []domain.Transaction {
	var out []domain.Transaction
	s.guard.View(func() {
		if acc, ok := s.accounts[userID]; ok {
			out = collect(acc.txs, f)
		}
	})
	if out == nil {
		out = []domain.Transaction{}
	}
	return out
}

// List lists every transaction, most recent first
func (s *Store) List(f Filter) []domain.Transaction {
	var out []domain.Transaction
	s.guard.View(func() { out = collect(s.all, f) })
	return out
}

// Pending is the pending projection for one transaction type
func (s *Store) Pending(typ domain.TransactionType) []domain.Transaction {
	return s.List(Filter{Status: domain.StatusPending, Type: typ})
}

// Audit recomputes a user's balance from the log and returns it next to the cached value
func (s *Store) Audit(userID string) (cached, computed decimal.Decimal, err error) {
	found := false
	s.guard.View(func() {
		acc, ok := s.accounts[userID]
		if !ok {
			return
		}
		found = true
		cached = acc.balance
		computed = sum(acc.txs)
	})
	if !found {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: account %s", domain.ErrNotFound, userID)
	}
	return cached, computed, nil
}

func sum(txs []*domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Status == domain.StatusCompleted {
			total = total.Add(tx.Delta())
		}
	}
	return total
}

// Restore rebuilds the ledger from storage. Balances are recomputed from the
// log; a stored balance that disagrees is logged and replaced.
func (s *Store) Restore(users []domain.User, txs []domain.Transaction) {
	sorted := make([]domain.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	s.guard.Publish(func() {
		s.accounts = make(map[string]*account, len(users))
		s.byID = make(map[string]*domain.Transaction, len(sorted))
		s.all = make([]*domain.Transaction, 0, len(sorted))
		for _, u := range users {
			s.accounts[u.ID] = &account{}
		}
		for i := range sorted {
			tx := sorted[i].Clone()
			acc, ok := s.accounts[tx.UserID]
			if !ok {
				log.WithField("user_id", tx.UserID).Warn("Transaction for unknown user, opening account")
				acc = &account{}
				s.accounts[tx.UserID] = acc
			}
			acc.txs = append(acc.txs, &tx)
			s.all = append(s.all, &tx)
			s.byID[tx.ID] = &tx
		}
		for _, acc := range s.accounts {
			acc.balance = sum(acc.txs)
		}
		for _, u := range users {
			if computed := s.accounts[u.ID].balance; !computed.Equal(u.Balance) {
				log.WithFields(log.Fields{
					"user_id":  u.ID,
					"stored":   u.Balance.StringFixed(2),
					"computed": computed.StringFixed(2),
				}).Warn("Stored balance diverged from ledger, using ledger sum")
			}
		}
	})
}
