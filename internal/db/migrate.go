package db

import (
	"lucky_lottery/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"
	"gorm.io/gorm" // GORM ORM library
)

// Models lists every table the service owns
func Models() []any {
	return []any{&domain.User{}, &domain.Transaction{}, &domain.Ticket{}, &domain.DrawResult{}, &domain.Winner{}}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		logrus.WithError(err).Error("migration failed")
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
