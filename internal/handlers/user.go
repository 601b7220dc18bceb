package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/waiyaki/maintraq/db"
	"github.com/waiyaki/maintraq/internal/models"
	"github.com/waiyaki/maintraq/internal/phone"
	"github.com/waiyaki/maintraq/internal/utils"
	"gorm.io/gorm"
)

// UpdateUserRequest carries an admin's edits to another user's profile.
// Absent fields are left unchanged.
type UpdateUserRequest struct {
	Email         *string `json:"email" binding:"omitempty,email"`
	Username      *string `json:"username" binding:"omitempty,max=64"`
	Name          *string `json:"name"`
	PhoneNumber   *string `json:"phone_number"`
	IsAdmin       *bool   `json:"is_admin"`
	IsMaintenance *bool   `json:"is_maintenance"`
}

// ListUsers serves the admin's user directory.
func ListUsers(ctx *gin.Context) {
	var users []models.User

	if err := db.DB.Order("username").Find(&users).Error; err != nil {
		log.Printf("Failed to list users: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	response := make([]gin.H, 0, len(users))
	for i := range users {
		response = append(response, adminUserResponse(&users[i]))
	}

	ctx.JSON(http.StatusOK, gin.H{"users": response})
}

// EditUserForm returns the profile an admin is about to edit.
func EditUserForm(ctx *gin.Context) {
	user, ok := loadUser(ctx)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user":   adminUserResponse(user),
		"fields": []string{"email", "username", "name", "phone_number", "is_admin", "is_maintenance"},
	})
}

// UpdateUser lets an admin edit another user's profile and grant or revoke
// the admin and maintenance roles. Duplicate checks exclude the user's own
// row so resubmitting unchanged fields is not an error.
func UpdateUser(ctx *gin.Context) {
	user, ok := loadUser(ctx)

	if !ok {
		return
	}

	var req UpdateUserRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)

		if !usernamePattern.MatchString(username) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Usernames should only contain letters, numbers, dots or underscores"})
			return
		}
		user.Username = username
	}

	if req.Name != nil {
		user.Name = *req.Name
	}

	if req.PhoneNumber != nil && strings.TrimSpace(*req.PhoneNumber) != "" {
		number, region, err := phone.Normalize(*req.PhoneNumber)

		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user.PhoneNumber = number
		user.PhoneRegion = region
	}

	if msg, err := checkDuplicateUser(user.Email, user.Username, user.PhoneNumber, user.ID); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	} else if msg != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}

	if req.IsMaintenance != nil {
		user.IsMaintenance = *req.IsMaintenance
	}

	if err := db.DB.Save(user).Error; err != nil {
		log.Printf("Failed to update user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "The profile has been updated",
		"user":    adminUserResponse(user),
	})
}

func loadUser(ctx *gin.Context) (*models.User, bool) {
	userID, err := utils.GetUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	var user models.User

	if err := db.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			log.Printf("Failed to load user: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		}
		return nil, false
	}

	return &user, true
}

// adminUserResponse is the profile view for admins: the public shape plus the
// role flags the edit form toggles.
func adminUserResponse(user *models.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"username":       user.Username,
		"name":           user.Name,
		"email":          user.Email,
		"phone_number":   user.PhoneNumber,
		"confirmed":      user.Confirmed,
		"role":           user.Role(),
		"is_admin":       user.IsAdmin,
		"is_maintenance": user.IsMaintenance,
	}
}
