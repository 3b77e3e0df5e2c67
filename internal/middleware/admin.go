package middleware

import (
	"net/http" // HTTP status codes

	"lucky_lottery/internal/domain"

	"github.com/gin-gonic/gin" // Gin web framework
)

// UserLookup resolves the current account
type UserLookup interface {
	Get(id string) (*domain.User, error)
}

// AdminOnlyMiddleware checks the user's role on each request, so a demoted
// admin loses access before the token expires
func AdminOnlyMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, err := users.Get(userID)
		if err != nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}
