package api

import (
	"net/http" // HTTP status codes

	"lucky_lottery/internal/accounts"
	"lucky_lottery/internal/domain"
	"lucky_lottery/internal/utils" // Utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// RegisterRequest is the sign-up payload
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`     // Display name
	Email    string `json:"email" binding:"required"`    // Login email
	Mobile   string `json:"mobile" binding:"required"`   // 10 digit mobile number
	Password string `json:"password" binding:"required"` // Password must be provided
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Login email
	Password string `json:"password" binding:"required"` // Password must be provided
}

// AuthResponse is returned on successful login
type AuthResponse struct {
	Token string      `json:"token"` // JWT token
	User  domain.User `json:"user"`  // Logged in account
}

// RegisterHandler creates a user account with an empty wallet
func RegisterHandler(users *accounts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := users.Register(c.Request.Context(), req.Name, req.Email, req.Mobile, req.Password)
		if err != nil {
			respondError(c, err, "Registration")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(users *accounts.Service, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := users.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			// Do not reveal whether the email exists
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token, User: *user})
	}
}
