package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is the tally for one match count in a draw
type Tier struct {
	MatchCount int             `json:"match_count"`
	Count      int             `json:"count"`
	Prize      decimal.Decimal `json:"prize"`
}

// DrawResult Model, append only
type DrawResult struct {
	ID       string    `gorm:"primaryKey;size:36" json:"id"`
	Numbers  []int     `gorm:"serializer:json;type:text;not null" json:"numbers"`
	DrawDate time.Time `gorm:"index;not null" json:"draw_date"`
	Tiers    []Tier    `gorm:"serializer:json;type:text" json:"winners"`
}

// Winner is a read-optimized projection of a single winning ticket
type Winner struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	DrawID         string          `gorm:"size:36;index" json:"draw_id"`
	UserID         string          `gorm:"size:36;index" json:"user_id"`
	UserName       string          `gorm:"size:100" json:"user_name"`
	TicketID       string          `gorm:"size:36" json:"ticket_id"`
	Numbers        []int           `gorm:"serializer:json;type:text" json:"numbers"`
	MatchedNumbers int             `json:"matched_numbers"`
	Prize          decimal.Decimal `gorm:"type:decimal(18,2)" json:"prize"`
	DrawDate       time.Time       `gorm:"index" json:"draw_date"`
}
