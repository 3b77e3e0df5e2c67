package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"lucky_lottery/internal/accounts"
	"lucky_lottery/internal/admin"
	"lucky_lottery/internal/cache"
	"lucky_lottery/internal/domain"
	"lucky_lottery/internal/ledger"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// pendingTTL bounds how long a superseded cache generation lingers
const pendingTTL = 60 * time.Second

// paginate reads page and page_size, defaulting to 1 and 20
func paginate(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
	}
	return page, pageSize
}

// ListUsersHandler returns all users with their live balances
func ListUsersHandler(users *accounts.Service, l *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := paginate(c)
		all := users.List()
		total := len(all)
		totalPages := (total + pageSize - 1) / pageSize // Calculate total pages

		start := min((page-1)*pageSize, total)
		end := min(start+pageSize, total)
		resp := make([]domain.User, 0, end-start)
		for _, u := range all[start:end] {
			if balance, err := l.Balance(u.ID); err == nil {
				u.Balance = balance // The ledger is the source of truth
			}
			resp = append(resp, u)
		}
		c.JSON(http.StatusOK, gin.H{
			"users":       resp,       // List of users
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of users
			"total_pages": totalPages, // Total pages
		})
	}
}

// PendingHandler serves a pending queue, through the cache when one is configured.
// The entry is stored under the key's current generation, read before the list,
// so an approval racing with the fill can never be served from the cache.
func PendingHandler(list func() []domain.Transaction, rc *cache.Cache, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		vkey, err := rc.VersionedKey(ctx, key)
		if err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Cache read failed")
			c.JSON(http.StatusOK, gin.H{
				"transactions": list(), // Pending transactions
				"cached":       false,  // Indicate response is not from cache
			})
			return
		}
		var cached []domain.Transaction
		found, err := rc.Get(ctx, vkey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached, // Pending transactions
				"cached":       true,   // Indicate response is from cache
			})
			return
		}
		if err != nil {
			logrus.WithError(err).WithField("key", vkey).Warn("Cache read failed")
		}
		txs := list()
		if err := rc.Set(ctx, vkey, txs, pendingTTL); err != nil {
			logrus.WithError(err).WithField("key", vkey).Warn("Cache write failed")
		}
		c.JSON(http.StatusOK, gin.H{
			"transactions": txs,   // Pending transactions
			"cached":       false, // Indicate response is not from cache
		})
	}
}

// ApproveHandler completes a pending deposit or withdrawal
func ApproveHandler(s *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx, err := s.Approve(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Approval")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Transaction approved", "transaction": tx})
	}
}

// RejectRequest names the kind of payment being rejected
type RejectRequest struct {
	Type domain.TransactionType `json:"type" binding:"required"` // deposit or withdraw
}

// RejectHandler rejects a pending deposit or withdrawal
func RejectHandler(s *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RejectRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		tx, err := s.Reject(c.Request.Context(), c.Param("id"), req.Type)
		if err != nil {
			respondError(c, err, "Rejection")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Transaction rejected", "transaction": tx})
	}
}
