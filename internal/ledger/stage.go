package ledger

import (
	"fmt"

	"lucky_lottery/internal/domain"

	"github.com/shopspring/decimal"
)

// Entry is a validated but unpublished ledger write: either a new
// transaction or a status change of an existing one.
//
// Stores that write to the ledger as part of a larger operation (ticket
// purchase, draw settlement) stage entries while holding the guard slots of
// every affected user, add them to the operation's change set with Collect,
// persist, and finally call Apply from inside guard.Publish.
type Entry struct {
	Tx    domain.Transaction
	Delta decimal.Decimal // balance effect on Tx.UserID
	isNew bool
}

// Stage validates a new transaction without writing it
func (s *Store) Stage(userID string, typ domain.TransactionType, amount decimal.Decimal,
	status domain.TransactionStatus, description string, details *domain.PaymentDetails) (Entry, error) {
	if !typ.Valid() {
		return Entry{}, fmt.Errorf("%w: unknown transaction type %q", domain.ErrValidation, typ)
	}
	if !domain.ValidAmount(amount) {
		return Entry{}, fmt.Errorf("%w: amount must be positive with at most two decimals, got %s", domain.ErrValidation, amount)
	}
	if status != domain.StatusPending && status != domain.StatusCompleted {
		return Entry{}, fmt.Errorf("%w: transactions are created pending or completed, got %q", domain.ErrValidation, status)
	}
	if !s.HasAccount(userID) {
		return Entry{}, fmt.Errorf("%w: account %s", domain.ErrNotFound, userID)
	}

	tx := domain.Transaction{
		ID:          s.newID(),
		UserID:      userID,
		Type:        typ,
		Amount:      amount,
		Status:      status,
		Timestamp:   s.now(),
		Description: description,
	}
	if details != nil {
		d := *details
		tx.Details = &d
	}
	entry := Entry{Tx: tx, Delta: decimal.Zero, isNew: true}
	if status == domain.StatusCompleted {
		entry.Delta = tx.Delta()
	}
	return entry, nil
}

// StageStatus validates a status transition without writing it
func (s *Store) StageStatus(id string, status domain.TransactionStatus) (Entry, error) {
	if !status.Valid() {
		return Entry{}, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	tx, err := s.Get(id)
	if err != nil {
		return Entry{}, err
	}
	delta, err := transitionDelta(tx, status)
	if err != nil {
		return Entry{}, err
	}
	tx.Status = status
	return Entry{Tx: tx, Delta: delta}, nil
}

// transitionDelta is the balance change caused by moving tx to status.
//
// Only pending->completed and pending->rejected are allowed. A rejection of a
// completed transaction would have to undo its effect with reversal(tx); that
// transition is refused here, so the reversal never runs.
func transitionDelta(tx domain.Transaction, to domain.TransactionStatus) (decimal.Decimal, error) {
	if tx.Status != domain.StatusPending || to == domain.StatusPending {
		return decimal.Zero, fmt.Errorf("%w: %s -> %s for transaction %s", domain.ErrInvalidTransition, tx.Status, to, tx.ID)
	}
	if to == domain.StatusCompleted {
		return tx.Delta(), nil
	}
	return decimal.Zero, nil
}

// reversal is the balance change that undoes a completed transaction
func reversal(tx domain.Transaction) decimal.Decimal {
	return tx.Delta().Neg()
}

// Collect adds entries to changes together with the resulting balances.
// Entries are applied in order; any debit that would take a balance below
// zero fails the whole collection with ErrInsufficientBalance.
func (s *Store) Collect(changes *domain.Changes, entries ...Entry) error {
	balances := make(map[string]decimal.Decimal)
	var missing string
	s.guard.View(func() {
		for _, e := range entries {
			acc, ok := s.accounts[e.Tx.UserID]
			if !ok {
				missing = e.Tx.UserID
				return
			}
			if _, seen := balances[e.Tx.UserID]; !seen {
				balances[e.Tx.UserID] = acc.balance
			}
		}
	})
	if missing != "" {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, missing)
	}

	touched := make(map[string]bool)
	for _, e := range entries {
		if e.Delta.IsZero() {
			continue
		}
		next := balances[e.Tx.UserID].Add(e.Delta)
		if e.Delta.IsNegative() && next.IsNegative() {
			return fmt.Errorf("%w: ₹%s available, ₹%s required", domain.ErrInsufficientBalance,
				balances[e.Tx.UserID].StringFixed(2), e.Tx.Amount.StringFixed(2))
		}
		balances[e.Tx.UserID] = next
		touched[e.Tx.UserID] = true
	}

	for _, e := range entries {
		changes.Transactions = append(changes.Transactions, e.Tx.Clone())
	}
	for userID := range touched {
		changes.SetBalance(userID, balances[userID])
	}
	return nil
}

// Apply publishes staged entries. It must run inside guard.Publish and after
// the entries were persisted; it cannot fail.
func (s *Store) Apply(entries ...Entry) {
	for _, e := range entries {
		acc := s.accounts[e.Tx.UserID]
		if e.isNew {
			tx := e.Tx.Clone()
			acc.txs = append(acc.txs, &tx)
			s.all = append(s.all, &tx)
			s.byID[tx.ID] = &tx
		} else if p, ok := s.byID[e.Tx.ID]; ok {
			// Only the status is mutable after creation
			p.Status = e.Tx.Status
		}
		acc.balance = acc.balance.Add(e.Delta)
	}
}
