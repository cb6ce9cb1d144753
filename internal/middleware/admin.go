package middleware

import (
	"net/http" // HTTP status codes

	"canteen_system/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// RoleMiddleware re-reads the caller's role and status from the database on
// each request, so a demoted or blocked account loses access immediately
// rather than when its token expires.
func RoleMiddleware(db *gorm.DB, roles ...string) gin.HandlerFunc {
	return requireRole(db, "Insufficient role", roles...)
}

// AdminOnlyMiddleware checks the user's role from the database on each request
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return requireRole(db, "Admin access required", domain.RoleAdmin)
}

func requireRole(db *gorm.DB, denied string, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		userID, exists := c.Get(UserIDKey) // Get userID from context
		// Check if userID exists in context
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			// If user not found or any error, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": denied})
			return
		}
		if user.Status != domain.UserActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is not active"})
			return
		}
		if len(allowed) > 0 && !allowed[user.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": denied})
			return
		}
		c.Set(RoleKey, user.Role) // Fresh role for handlers
		c.Next()                  // Proceed to the next handler
	}
}
