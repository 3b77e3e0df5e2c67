// Package admin mediates manually attested payments: an administrator
// approves or rejects pending deposits and withdrawals.
package admin

import (
	"context"
	"fmt"

	"lucky_lottery/internal/cache"
	"lucky_lottery/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Ledger is the part of the ledger store mediation needs
type Ledger interface {
	Get(id string) (domain.Transaction, error)
	SetStatus(ctx context.Context, id string, status domain.TransactionStatus) (*domain.Transaction, error)
	Pending(typ domain.TransactionType) []domain.Transaction
}

// Invalidator drops cached projections
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

// PendingKey is the cache key of the pending projection for typ
func PendingKey(typ domain.TransactionType) string {
	if typ == domain.TypeWithdraw {
		return cache.KeyPendingWithdrawals
	}
	return cache.KeyPendingDeposits
}

// Service resolves pending transactions
type Service struct {
	ledger Ledger
	cache  Invalidator
}

// New creates a mediation service
func New(l Ledger, c Invalidator) *Service {
	return &Service{ledger: l, cache: c}
}

// ApproveDeposit completes a pending deposit, crediting the user
func (s *Service) ApproveDeposit(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.resolve(ctx, id, domain.TypeDeposit, domain.StatusCompleted)
}

// ApproveWithdrawal completes a pending withdrawal, debiting the user
func (s *Service) ApproveWithdrawal(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.resolve(ctx, id, domain.TypeWithdraw, domain.StatusCompleted)
}

// Reject closes a pending deposit or withdrawal without moving money
func (s *Service) Reject(ctx context.Context, id string, typ domain.TransactionType) (*domain.Transaction, error) {
	if typ != domain.TypeDeposit && typ != domain.TypeWithdraw {
		return nil, fmt.Errorf("%w: only deposits and withdrawals are mediated, got %q", domain.ErrValidation, typ)
	}
	return s.resolve(ctx, id, typ, domain.StatusRejected)
}

// Approve completes whichever kind of pending payment id refers to
func (s *Service) Approve(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, err := s.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if tx.Type == domain.TypeWithdraw {
		return s.ApproveWithdrawal(ctx, id)
	}
	return s.ApproveDeposit(ctx, id)
}

func (s *Service) resolve(ctx context.Context, id string, typ domain.TransactionType, status domain.TransactionStatus) (*domain.Transaction, error) {
	tx, err := s.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if tx.Type != typ {
		return nil, fmt.Errorf("%w: transaction %s is a %s, not a %s", domain.ErrValidation, id, tx.Type, typ)
	}
	out, err := s.ledger.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, PendingKey(typ))

	log.WithFields(log.Fields{
		"tx_id":   id,
		"user_id": out.UserID,
		"type":    typ,
		"status":  status,
	}).Info("Payment mediated")
	return out, nil
}

// PendingDeposits lists deposits awaiting review, newest first
func (s *Service) PendingDeposits() []domain.Transaction {
	return s.ledger.Pending(domain.TypeDeposit)
}

// PendingWithdrawals lists withdrawals awaiting review, newest first
func (s *Service) PendingWithdrawals() []domain.Transaction {
	return s.ledger.Pending(domain.TypeWithdraw)
}
