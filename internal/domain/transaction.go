package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of money movement a transaction records
type TransactionType string

const (
	TypeDeposit        TransactionType = "deposit"
	TypeWithdraw       TransactionType = "withdraw"
	TypeTicketPurchase TransactionType = "ticket-purchase"
	TypeWinning        TransactionType = "winning"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdraw, TypeTicketPurchase, TypeWinning:
		return true
	}
	return false
}

// Sign is +1 for credits (deposit, winning) and -1 for debits (withdraw, ticket-purchase)
func (t TransactionType) Sign() int64 {
	switch t {
	case TypeDeposit, TypeWinning:
		return 1
	case TypeWithdraw, TypeTicketPurchase:
		return -1
	}
	return 0
}

// TransactionStatus is the moderation state of a transaction
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusRejected  TransactionStatus = "rejected"
)

// Valid reports whether s is one of the known statuses
func (s TransactionStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusRejected
}

// IsTerminal reports whether no further transition is allowed from s
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// PaymentDetails carries the manually attested payment information
type PaymentDetails struct {
	Reference string `json:"transaction_id,omitempty"` // UPI transaction reference quoted by the payer
	UPIID     string `json:"upi_id,omitempty"`         // Counterparty UPI id for payouts
	Name      string `json:"name,omitempty"`           // Account holder name
	Mobile    string `json:"mobile,omitempty"`         // Contact number
	Proof     string `json:"screenshot,omitempty"`     // Proof attachment (data URL or link)
}

// Transaction Model
type Transaction struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`                       // Primary key (uuid)
	UserID      string            `gorm:"size:36;index;not null" json:"user_id"`              // Owner
	Type        TransactionType   `gorm:"size:20;index;not null" json:"type"`                 // deposit, withdraw, ticket-purchase, winning
	Amount      decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"amount"`          // Always positive
	Status      TransactionStatus `gorm:"size:16;index;not null" json:"status"`               // pending, completed, rejected
	Timestamp   time.Time         `gorm:"index;not null" json:"timestamp"`                    // Creation time, immutable
	Description string            `gorm:"size:255" json:"description"`                        // Human readable summary
	Details     *PaymentDetails   `gorm:"serializer:json;type:text" json:"details,omitempty"` // Optional payment details
}

// Delta is the signed balance effect of the transaction once completed
func (t Transaction) Delta() decimal.Decimal {
	return t.Amount.Mul(decimal.NewFromInt(t.Type.Sign()))
}

// ValidAmount reports whether amount is positive and has at most two decimal places
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

// Clone returns a copy that shares no memory with t
func (t Transaction) Clone() Transaction {
	if t.Details != nil {
		d := *t.Details
		t.Details = &d
	}
	return t
}
