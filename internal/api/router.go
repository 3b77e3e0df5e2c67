package api

import (
	"lucky_lottery/internal/accounts"
	"lucky_lottery/internal/admin"
	"lucky_lottery/internal/cache"
	"lucky_lottery/internal/draw"
	"lucky_lottery/internal/ledger"
	"lucky_lottery/internal/middleware"
	"lucky_lottery/internal/tickets"

	"github.com/gin-gonic/gin" // Gin web framework
)

// Services the HTTP layer is built on
type Services struct {
	Users      *accounts.Service
	Ledger     *ledger.Store
	Tickets    *tickets.Store
	Draws      *draw.Engine
	Admin      *admin.Service
	Cache      *cache.Cache // may be nil
	JWTSecret  string
	PayeeUPIID string // Where users pay deposits
	PayeeName  string
}

// Register mounts every route on r
func Register(r gin.IRouter, s Services) {
	// Auth routes
	r.POST("/user", RegisterHandler(s.Users))                 // Registration endpoint
	r.POST("/user/login", LoginHandler(s.Users, s.JWTSecret)) // Login endpoint

	auth := middleware.JWTAuthMiddleware(s.JWTSecret)

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet", auth)
	walletGroup.GET("", GetWalletHandler(s.Ledger, s.Tickets))                      // Balance endpoint
	walletGroup.GET("/transactions", TransactionHistoryHandler(s.Ledger))           // Transaction history endpoint
	walletGroup.GET("/deposit-info", DepositInfoHandler(s.PayeeUPIID, s.PayeeName)) // Payee details for deposits
	walletGroup.POST("/deposit", DepositHandler(s.Ledger, s.Cache))                 // Deposit request endpoint
	walletGroup.POST("/withdraw", WithdrawHandler(s.Ledger, s.Cache))               // Withdrawal request endpoint

	// Ticket routes (protected by JWT)
	ticketGroup := r.Group("/tickets", auth)
	ticketGroup.GET("", ListTicketsHandler(s.Tickets))                 // Ticket list endpoint
	ticketGroup.POST("", PurchaseHandler(s.Tickets))                   // Purchase endpoint
	ticketGroup.GET("/selection", SelectionHandler(s.Tickets))         // Current selection
	ticketGroup.POST("/selection/:n", ToggleNumberHandler(s.Tickets))  // Toggle one number
	ticketGroup.DELETE("/selection", ClearSelectionHandler(s.Tickets)) // Clear selection

	// Draw results are public
	r.GET("/draws", DrawResultsHandler(s.Draws))
	r.GET("/draws/winners", WinnersHandler(s.Draws))

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin", auth, middleware.AdminOnlyMiddleware(s.Users))
	adminGroup.GET("/users", ListUsersHandler(s.Users, s.Ledger))                                                    // List users endpoint
	adminGroup.GET("/deposits", PendingHandler(s.Admin.PendingDeposits, s.Cache, cache.KeyPendingDeposits))          // Pending deposits
	adminGroup.GET("/withdrawals", PendingHandler(s.Admin.PendingWithdrawals, s.Cache, cache.KeyPendingWithdrawals)) // Pending withdrawals
	adminGroup.POST("/transactions/:id/approve", ApproveHandler(s.Admin))                                            // Approve payment
	adminGroup.POST("/transactions/:id/reject", RejectHandler(s.Admin))                                              // Reject payment
	adminGroup.POST("/draws", RunDrawHandler(s.Draws))                                                               // Run the draw now
}
