package api

import (
	"fmt"
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"lucky_lottery/internal/domain"
	"lucky_lottery/internal/middleware"
	"lucky_lottery/internal/tickets"

	"github.com/gin-gonic/gin" // Gin web framework
)

// SelectionHandler returns the numbers picked so far
func SelectionHandler(t *tickets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"numbers": t.Selection(middleware.UserID(c))})
	}
}

// ToggleNumberHandler adds or removes one number from the selection
func ToggleNumberHandler(t *tickets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := strconv.Atoi(c.Param("n"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid number"})
			return
		}
		numbers, err := t.Toggle(middleware.UserID(c), n)
		if err != nil {
			respondError(c, err, "Number selection")
			return
		}
		c.JSON(http.StatusOK, gin.H{"numbers": numbers})
	}
}

// ClearSelectionHandler discards the selection
func ClearSelectionHandler(t *tickets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		t.Clear(middleware.UserID(c))
		c.JSON(http.StatusOK, gin.H{"numbers": []int{}})
	}
}

// PurchaseHandler buys a ticket with the current selection
func PurchaseHandler(t *tickets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ticket, err := t.Purchase(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err, "Ticket purchase")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Ticket purchased", "ticket": ticket})
	}
}

// ListTicketsHandler lists the user's tickets, newest first, optionally by status
func ListTicketsHandler(t *tickets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := domain.TicketStatus(c.Query("status"))
		switch status {
		case "", domain.TicketActive, domain.TicketDrawn, domain.TicketWon, domain.TicketLost:
		default:
			respondError(c, fmt.Errorf("%w: unknown ticket status %q", domain.ErrValidation, status), "Ticket list")
			return
		}
		c.JSON(http.StatusOK, gin.H{"tickets": t.Tickets(middleware.UserID(c), status)})
	}
}
