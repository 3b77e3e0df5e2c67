package api

import (
	"fmt"
	"net/http" // HTTP status codes
	"net/url"  // Query escaping
	"strings"  // String manipulation

	"lucky_lottery/internal/admin"
	"lucky_lottery/internal/cache"
	"lucky_lottery/internal/domain"
	"lucky_lottery/internal/ledger"
	"lucky_lottery/internal/middleware"
	"lucky_lottery/internal/tickets"

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact money amounts
)

// DepositRequest is a manually attested UPI payment to the platform
type DepositRequest struct {
	Amount        decimal.Decimal `json:"amount"`                            // Deposit amount
	TransactionID string          `json:"transaction_id" binding:"required"` // UPI reference of the payment
	Name          string          `json:"name" binding:"required"`           // Payer name
	Mobile        string          `json:"mobile"`                            // Payer mobile
	Screenshot    string          `json:"screenshot"`                        // Optional proof of payment
}

// WithdrawRequest asks for a payout to a UPI handle
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`                    // Withdrawal amount
	UPIID  string          `json:"upi_id" binding:"required"` // Destination UPI handle
	Name   string          `json:"name" binding:"required"`   // Account holder name
	Mobile string          `json:"mobile"`                    // Contact number
}

// GetWalletHandler returns the user's balance and the ticket price
func GetWalletHandler(l *ledger.Store, t *tickets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		balance, err := l.Balance(middleware.UserID(c))
		if err != nil {
			respondError(c, err, "Balance lookup")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"balance":      balance,   // Current balance
			"ticket_price": t.Price(), // Price of one ticket
		})
	}
}

// UPIPayURI builds the upi://pay intent a payment app opens, e.g.
// upi://pay?pa=9933308636@ybl&pn=LuckyLottery
func UPIPayURI(upiID, payeeName string) string {
	esc := func(v string) string {
		return strings.ReplaceAll(url.QueryEscape(v), "%40", "@") // UPI handles keep their @
	}
	return "upi://pay?pa=" + esc(upiID) + "&pn=" + esc(payeeName)
}

// DepositInfoHandler tells users where to send a deposit before filing it
func DepositInfoHandler(upiID, payeeName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if upiID == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Deposits are not configured"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"upi_id":     upiID,                       // Payee UPI handle
			"payee_name": payeeName,                   // Payee name
			"upi_uri":    UPIPayURI(upiID, payeeName), // Intent for QR codes and deep links
		})
	}
}

// parseFilter reads the status and type query parameters
func parseFilter(c *gin.Context) (ledger.Filter, error) {
	f := ledger.Filter{
		Status: domain.TransactionStatus(c.Query("status")),
		Type:   domain.TransactionType(c.Query("type")),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, f.Status)
	}
	if f.Type != "" && !f.Type.Valid() {
		return f, fmt.Errorf("%w: unknown type %q", domain.ErrValidation, f.Type)
	}
	return f, nil
}

// TransactionHistoryHandler lists the user's transactions, most recent first
func TransactionHistoryHandler(l *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := parseFilter(c)
		if err != nil {
			respondError(c, err, "Transaction history")
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": l.Transactions(middleware.UserID(c), f)})
	}
}

// DepositHandler files a pending deposit for admin review
func DepositHandler(l *ledger.Store, rc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DepositRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		tx, err := l.RequestDeposit(c.Request.Context(), middleware.UserID(c), req.Amount, domain.PaymentDetails{
			Reference: req.TransactionID,
			Name:      req.Name,
			Mobile:    req.Mobile,
			Proof:     req.Screenshot,
		})
		if err != nil {
			respondError(c, err, "Deposit request")
			return
		}
		rc.Invalidate(c.Request.Context(), admin.PendingKey(domain.TypeDeposit)) // Admin queue changed
		c.JSON(http.StatusCreated, gin.H{"message": "Deposit request submitted", "transaction": tx})
	}
}

// WithdrawHandler files a pending withdrawal for admin review
func WithdrawHandler(l *ledger.Store, rc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WithdrawRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		tx, err := l.RequestWithdrawal(c.Request.Context(), middleware.UserID(c), req.Amount, domain.PaymentDetails{
			UPIID:  req.UPIID,
			Name:   req.Name,
			Mobile: req.Mobile,
		})
		if err != nil {
			respondError(c, err, "Withdrawal request")
			return
		}
		rc.Invalidate(c.Request.Context(), admin.PendingKey(domain.TypeWithdraw)) // Admin queue changed
		c.JSON(http.StatusCreated, gin.H{"message": "Withdrawal request submitted", "transaction": tx})
	}
}
