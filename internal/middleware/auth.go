package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waiyaki/maintraq/db"
	"github.com/waiyaki/maintraq/internal/auth"
	"github.com/waiyaki/maintraq/internal/models"
	"github.com/waiyaki/maintraq/internal/types"
	"github.com/waiyaki/maintraq/internal/workflow"
)

type AuthenticatedUser struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Confirmed   bool   `json:"confirmed"`
	Admin       bool   `json:"is_admin"`
	Maintenance bool   `json:"is_maintenance"`
}

// Role names the single effective role of the user.
func (u AuthenticatedUser) Role() string {
	switch {
	case u.Admin:
		return "admin"
	case u.Maintenance:
		return "maintainer"
	default:
		return "requester"
	}
}

// Actor converts the session user into a workflow actor.
func (u AuthenticatedUser) Actor() workflow.Actor {
	return workflow.Actor{ID: u.ID, Admin: u.Admin, Maintenance: u.Maintenance}
}

// AuthMiddleware authenticates the session cookie (or a Bearer header),
// loads the user row, touches its last-seen timestamp and threads the actor
// through the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, err := ctx.Cookie(types.SessionCookieName)

		if err != nil || tokenString == "" {
			authHeader := ctx.GetHeader("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)

			if len(parts) != 2 || parts[0] != "Bearer" {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
				return
			}

			tokenString = parts[1]
		}

		userID, err := auth.VerifySessionToken(tokenString)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		var user models.User

		if err := db.DB.Where("id = ?", userID).First(&user).Error; err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		// Last-seen ping. A column update, not Save, so it cannot clobber
		// concurrent field changes. Best-effort: the request proceeds either way.
		if err := db.DB.Model(&user).UpdateColumn("last_seen", time.Now()).Error; err != nil {
			log.Printf("Failed to update last seen for user %d: %v", user.ID, err)
		}

		ctx.Set(types.ContextUserKey, AuthenticatedUser{
			ID:          user.ID,
			Username:    user.Username,
			Name:        user.Name,
			Email:       user.Email,
			Confirmed:   user.Confirmed,
			Admin:       user.IsAdmin,
			Maintenance: user.IsMaintenance,
		})
		ctx.Next()
	}
}

// RequireConfirmed blocks accounts that have not redeemed their confirmation
// token from everything except the auth surface.
func RequireConfirmed() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, exists := ctx.Get(types.ContextUserKey)

		if !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		if !user.(AuthenticatedUser).Confirmed {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Please confirm your account first"})
			return
		}

		ctx.Next()
	}
}

// RequireAdmin gates admin-only routes.
func RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, exists := ctx.Get(types.ContextUserKey)

		if !exists || !user.(AuthenticatedUser).Admin {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator access required"})
			return
		}

		ctx.Next()
	}
}
