package domain

import "github.com/shopspring/decimal"

// Changes is the write set of one mutating operation. It is persisted as a
// single unit before the in-memory state is published.
type Changes struct {
	Users        []User
	Balances     map[string]decimal.Decimal // userID -> new cached balance
	Transactions []Transaction
	Tickets      []Ticket
	Draws        []DrawResult
	Winners      []Winner
}

// SetBalance records the new cached balance of a user
func (c *Changes) SetBalance(userID string, balance decimal.Decimal) {
	if c.Balances == nil {
		c.Balances = make(map[string]decimal.Decimal)
	}
	c.Balances[userID] = balance
}

// Empty reports whether there is nothing to write
func (c *Changes) Empty() bool {
	return len(c.Users) == 0 && len(c.Balances) == 0 && len(c.Transactions) == 0 &&
		len(c.Tickets) == 0 && len(c.Draws) == 0 && len(c.Winners) == 0
}
