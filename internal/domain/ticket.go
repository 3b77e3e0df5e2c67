package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket pick rules
const (
	PickSize  = 5  // numbers on a ticket
	MinNumber = 0  // lowest pickable number
	MaxNumber = 49 // highest pickable number
)

// TicketStatus is the settlement state of a ticket
type TicketStatus string

const (
	TicketActive TicketStatus = "active"
	TicketDrawn  TicketStatus = "drawn" // reserved; settlement goes straight to won or lost
	TicketWon    TicketStatus = "won"
	TicketLost   TicketStatus = "lost"
)

// IsSettled reports whether the ticket has a final outcome
func (s TicketStatus) IsSettled() bool {
	return s == TicketWon || s == TicketLost
}

// Ticket Model
type Ticket struct {
	ID             string           `gorm:"primaryKey;size:36" json:"id"`
	UserID         string           `gorm:"size:36;index;not null" json:"user_id"`
	Numbers        []int            `gorm:"serializer:json;type:text;not null" json:"numbers"`
	PurchaseDate   time.Time        `gorm:"not null" json:"purchase_date"`
	DrawDate       time.Time        `gorm:"index;not null" json:"draw_date"`
	Status         TicketStatus     `gorm:"size:16;index;not null" json:"status"`
	MatchedNumbers *int             `json:"matched_numbers,omitempty"`
	Prize          *decimal.Decimal `gorm:"type:decimal(18,2)" json:"prize,omitempty"`
	TransactionID  string           `gorm:"size:36;uniqueIndex" json:"transaction_id"` // ticket-purchase transaction
}

// ValidPick reports whether numbers is a set of exactly PickSize distinct values in range
func ValidPick(numbers []int) bool {
	if len(numbers) != PickSize {
		return false
	}
	seen := make(map[int]struct{}, PickSize)
	for _, n := range numbers {
		if n < MinNumber || n > MaxNumber {
			return false
		}
		if _, dup := seen[n]; dup {
			return false
		}
		seen[n] = struct{}{}
	}
	return true
}

// Matches counts how many of the ticket's numbers appear in winning
func (t Ticket) Matches(winning []int) int {
	set := make(map[int]struct{}, len(winning))
	for _, n := range winning {
		set[n] = struct{}{}
	}
	matched := 0
	for _, n := range t.Numbers {
		if _, ok := set[n]; ok {
			matched++
		}
	}
	return matched
}

// Clone returns a copy that shares no memory with t
func (t Ticket) Clone() Ticket {
	t.Numbers = append([]int(nil), t.Numbers...)
	if t.MatchedNumbers != nil {
		m := *t.MatchedNumbers
		t.MatchedNumbers = &m
	}
	if t.Prize != nil {
		p := *t.Prize
		t.Prize = &p
	}
	return t
}
