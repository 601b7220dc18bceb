package handlers

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/waiyaki/maintraq/db"
	"github.com/waiyaki/maintraq/internal/auth"
	"github.com/waiyaki/maintraq/internal/config"
	"github.com/waiyaki/maintraq/internal/models"
	"github.com/waiyaki/maintraq/internal/notify"
	"github.com/waiyaki/maintraq/internal/phone"
	"github.com/waiyaki/maintraq/internal/types"
	"github.com/waiyaki/maintraq/internal/utils"
	"gorm.io/gorm"
)

var (
	// Notifier dispatches outbound email; set once by Setup.
	Notifier *notify.Dispatcher

	Domain     string
	adminEmail string
)

// Setup wires the handler package to its collaborators.
func Setup(cfg *config.Config, notifier *notify.Dispatcher) {
	Notifier = notifier
	Domain = cfg.Domain
	adminEmail = cfg.AdminEmail
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required,max=64"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	Password2   string `json:"password2" binding:"required"`
}

type LoginRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

func RegisterForm(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"fields": []string{"email", "username", "name", "phone_number", "password", "password2"},
	})
}

func Register(ctx *gin.Context) {
	var req RegisterRequest

	if err := ctx.BindJSON(&req); err != nil {
		log.Printf("Failed to bind JSON: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if req.Password != req.Password2 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "The passwords did not match"})
		return
	}

	if !usernamePattern.MatchString(req.Username) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Usernames should only contain letters, numbers, dots or underscores"})
		return
	}

	number, region, err := phone.Normalize(req.PhoneNumber)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if msg, err := checkDuplicateUser(req.Email, req.Username, number, 0); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	} else if msg != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)

	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	newUser := models.User{
		Email:        req.Email,
		Username:     req.Username,
		Name:         req.Name,
		PhoneNumber:  number,
		PhoneRegion:  region,
		PasswordHash: passwordHash,
		// The designated admin address is promoted at creation.
		IsAdmin: adminEmail != "" && req.Email == adminEmail,
	}

	if err := db.DB.Create(&newUser).Error; err != nil {
		log.Printf("Failed to create user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := auth.GenerateActionToken(auth.PurposeConfirm, newUser.ID, "", auth.ActionTokenTTL)

	if err != nil {
		log.Printf("Failed to generate confirmation token: %v", err)
	} else {
		Notifier.ConfirmAccount(ctx.Request.Context(), &newUser, token)
	}

	sessionToken, err := auth.GenerateSessionToken(newUser.ID, newUser.Username, false)

	if err != nil {
		log.Printf("Failed to generate session token: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setSessionCookie(ctx, sessionToken, 60*60*24)

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "A confirmation email has been sent to you",
		"user":    userResponse(&newUser),
	})
}

func LoginForm(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"fields": []string{"username", "password", "remember_me"},
	})
}

func Login(ctx *gin.Context) {
	var req LoginRequest

	if err := ctx.BindJSON(&req); err != nil {
		log.Printf("Failed to bind JSON: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User

	err := db.DB.Where("username = ?", req.Username).First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password"})
			return
		}
		log.Printf("Database error when fetching user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := auth.GenerateSessionToken(user.ID, user.Username, req.RememberMe)

	if err != nil {
		log.Printf("Failed to generate session token: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	maxAge := 60 * 60 * 24
	if req.RememberMe {
		maxAge = 60 * 60 * 24 * 7
	}

	setSessionCookie(ctx, token, maxAge)

	ctx.JSON(http.StatusOK, gin.H{"user": userResponse(&user)})
}

func Logout(ctx *gin.Context) {
	setSessionCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Confirm redeems an account confirmation token. Redeeming twice is a no-op:
// an already confirmed account stays confirmed.
func Confirm(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if currentUser.Confirmed {
		ctx.JSON(http.StatusOK, gin.H{"message": "Your account is already confirmed"})
		return
	}

	if _, err := auth.VerifyActionToken(ctx.Param("token"), auth.PurposeConfirm, currentUser.ID); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "The confirmation link is invalid or has expired"})
		return
	}

	if err := db.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).
		Update("confirmed", true).Error; err != nil {
		log.Printf("Failed to confirm user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Welcome, " + currentUser.Username + "! Your account has been confirmed, thanks!",
	})
}

func ResendConfirmation(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if currentUser.Confirmed {
		ctx.JSON(http.StatusOK, gin.H{"message": "Your account is already confirmed"})
		return
	}

	var user models.User

	if err := db.DB.First(&user, currentUser.ID).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := auth.GenerateActionToken(auth.PurposeConfirm, user.ID, "", auth.ActionTokenTTL)

	if err != nil {
		log.Printf("Failed to generate confirmation token: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	Notifier.ConfirmAccount(ctx.Request.Context(), &user, token)

	ctx.JSON(http.StatusOK, gin.H{"message": "A new confirmation has been sent to you via email"})
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type PasswordResetForm struct {
	Password  string `json:"password" binding:"required,min=8"`
	Password2 string `json:"password2" binding:"required"`
}

func RequestPasswordReset(ctx *gin.Context) {
	var req PasswordResetRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User

	err := db.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error

	if err == nil {
		token, tokenErr := auth.GenerateActionToken(auth.PurposeReset, user.ID, "", auth.ActionTokenTTL)
		if tokenErr != nil {
			log.Printf("Failed to generate reset token: %v", tokenErr)
		} else {
			Notifier.PasswordReset(ctx.Request.Context(), &user, token)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when fetching user: %v", err)
	}

	// Same response either way so addresses cannot be probed.
	ctx.JSON(http.StatusOK, gin.H{"message": "If that address is registered, a reset email has been sent"})
}

func ResetPassword(ctx *gin.Context) {
	var req PasswordResetForm

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Password != req.Password2 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "The passwords did not match"})
		return
	}

	userID, err := auth.SubjectOfActionToken(ctx.Param("token"), auth.PurposeReset)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "The reset link is invalid or has expired"})
		return
	}

	var user models.User

	if err := db.DB.First(&user, userID).Error; err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "The reset link is invalid or has expired"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)

	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := db.DB.Model(&user).Update("password_hash", passwordHash).Error; err != nil {
		log.Printf("Failed to update password: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Your password has been updated"})
}

type EmailChangeRequest struct {
	NewEmail string `json:"new_email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func RequestEmailChange(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req EmailChangeRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	newEmail := strings.ToLower(strings.TrimSpace(req.NewEmail))

	var user models.User

	if err := db.DB.First(&user, currentUser.ID).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid password"})
		return
	}

	var existing models.User

	err = db.DB.Where("email = ?", newEmail).First(&existing).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "This email is already registered"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking email: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := auth.GenerateActionToken(auth.PurposeChangeEmail, user.ID, newEmail, auth.ActionTokenTTL)

	if err != nil {
		log.Printf("Failed to generate email change token: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	Notifier.EmailChange(ctx.Request.Context(), &user, newEmail, token)

	ctx.JSON(http.StatusOK, gin.H{"message": "A confirmation email has been sent to your new address"})
}

func ChangeEmail(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	newEmail, err := auth.VerifyActionToken(ctx.Param("token"), auth.PurposeChangeEmail, currentUser.ID)

	if err != nil || newEmail == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "The email change link is invalid or has expired"})
		return
	}

	// The address may have been claimed between request and redemption.
	var existing models.User

	dbErr := db.DB.Where("email = ?", newEmail).First(&existing).Error

	if dbErr == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "This email is already registered"})
		return
	}

	if !errors.Is(dbErr, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking email: %v", dbErr)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := db.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).
		Update("email", newEmail).Error; err != nil {
		log.Printf("Failed to update email: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Your email address has been updated"})
}

func Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User

	if err := db.DB.First(&user, currentUser.ID).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": userResponse(&user)})
}

func checkDuplicateUser(email, username, phoneNumber string, excludeID uint) (string, error) {
	checks := []struct {
		column  string
		value   string
		message string
	}{
		{"email", email, "This email is already registered"},
		{"username", username, "Username is taken"},
		{"phone_number", phoneNumber, "Phone number already on record"},
	}

	for _, check := range checks {
		var existing models.User

		query := db.DB.Where(check.column+" = ?", check.value)
		if excludeID != 0 {
			query = query.Where("id != ?", excludeID)
		}

		err := query.First(&existing).Error

		if err == nil {
			return check.message, nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Database error when checking existing user: %v", err)
			return "", err
		}
	}

	return "", nil
}

func userResponse(user *models.User) types.UserResponse {
	return types.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Name:        user.Name,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Confirmed:   user.Confirmed,
		Role:        user.Role(),
	}
}

func setSessionCookie(ctx *gin.Context, token string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     types.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   Domain,
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}
