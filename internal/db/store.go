package db

import (
	"context"
	"fmt"

	"lucky_lottery/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Persister durably writes the change set of one operation, all or nothing
type Persister interface {
	Persist(ctx context.Context, changes *domain.Changes) error
}

// Snapshot is everything needed to rebuild the in-memory stores
type Snapshot struct {
	Users        []domain.User
	Transactions []domain.Transaction
	Tickets      []domain.Ticket
	Draws        []domain.DrawResult
	Winners      []domain.Winner
}

// Nop discards writes; used when the service runs without a database and in tests
type Nop struct{}

// Persist implements Persister
func (Nop) Persist(context.Context, *domain.Changes) error { return nil }

// GormStore persists change sets with GORM inside a single database transaction
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Persist writes every row of changes atomically
func (s *GormStore) Persist(ctx context.Context, changes *domain.Changes) error {
	if changes == nil || changes.Empty() {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range changes.Users {
			if err := tx.Create(&changes.Users[i]).Error; err != nil {
				return fmt.Errorf("create user: %w", err)
			}
		}
		// Transactions and tickets are upserted: new rows are inserted, status changes overwrite
		for i := range changes.Transactions {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&changes.Transactions[i]).Error; err != nil {
				return fmt.Errorf("save transaction: %w", err)
			}
		}
		for i := range changes.Tickets {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&changes.Tickets[i]).Error; err != nil {
				return fmt.Errorf("save ticket: %w", err)
			}
		}
		for userID, balance := range changes.Balances {
			if err := tx.Model(&domain.User{}).Where("id = ?", userID).Update("balance", balance).Error; err != nil {
				return fmt.Errorf("update balance: %w", err)
			}
		}
		for i := range changes.Draws {
			if err := tx.Create(&changes.Draws[i]).Error; err != nil {
				return fmt.Errorf("create draw result: %w", err)
			}
		}
		for i := range changes.Winners {
			if err := tx.Create(&changes.Winners[i]).Error; err != nil {
				return fmt.Errorf("create winner: %w", err)
			}
		}
		return nil // Commit transaction
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"transactions": len(changes.Transactions),
			"tickets":      len(changes.Tickets),
			"error":        err.Error(),
		}).Error("Persist failed")
	}
	return err
}

// Load reads the full state, oldest entries first so equal timestamps keep insertion order
func (s *GormStore) Load(ctx context.Context) (*Snapshot, error) {
	db := s.db.WithContext(ctx)
	snap := &Snapshot{}
	if err := db.Order("created_at asc").Find(&snap.Users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if err := db.Order("timestamp asc").Find(&snap.Transactions).Error; err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if err := db.Order("purchase_date asc").Find(&snap.Tickets).Error; err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}
	if err := db.Order("draw_date asc").Find(&snap.Draws).Error; err != nil {
		return nil, fmt.Errorf("load draws: %w", err)
	}
	if err := db.Order("draw_date asc").Find(&snap.Winners).Error; err != nil {
		return nil, fmt.Errorf("load winners: %w", err)
	}
	return snap, nil
}
