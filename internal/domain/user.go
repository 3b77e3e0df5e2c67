package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles a user can hold
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User Model
type User struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`                         // Primary key (uuid)
	Name      string          `gorm:"size:100;not null" json:"name"`                        // Display name
	Email     string          `gorm:"size:190;uniqueIndex;not null" json:"email"`           // Unique login email
	Mobile    string          `gorm:"size:20" json:"mobile"`                                // Contact number
	Password  string          `gorm:"not null" json:"-"`                                    // Hashed password
	Role      string          `gorm:"size:16;default:user" json:"role"`                     // Role: user or admin
	Balance   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"` // Cached ledger balance
	CreatedAt time.Time       `json:"created_at"`                                           // Registration time
}

// IsAdmin reports whether the user may use the admin endpoints
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
