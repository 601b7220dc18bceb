package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waiyaki/maintraq/db"
	"github.com/waiyaki/maintraq/internal/auth"
	"github.com/waiyaki/maintraq/internal/models"
)

func registration() map[string]interface{} {
	return map[string]interface{}{
		"email":        "wanjiku@example.com",
		"username":     "wanjiku",
		"name":         "Wanjiku Maina",
		"phone_number": "+254712345678",
		"password":     "correct horse battery",
		"password2":    "correct horse battery",
	}
}

func TestRegisterCreatesUnconfirmedUser(t *testing.T) {
	r, mock := setupTest(t)

	w := doJSON(t, r, http.MethodPost, "/register", "", registration())
	require.Equal(t, http.StatusCreated, w.Code)

	var user models.User
	require.NoError(t, db.DB.Where("username = ?", "wanjiku").First(&user).Error)

	assert.False(t, user.Confirmed)
	assert.False(t, user.IsAdmin)
	assert.Equal(t, "+254712345678", user.PhoneNumber)
	assert.Equal(t, "KE", user.PhoneRegion)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)

	// The confirmation mail went out to the new user.
	require.Len(t, mock.Sent, 1)
	assert.Equal(t, "wanjiku@example.com", mock.Sent[0].To)
	assert.Equal(t, "Confirm Your Account", mock.Sent[0].Subject)
}

func TestRegisterPromotesDesignatedAdmin(t *testing.T) {
	r, _ := setupTest(t)

	payload := registration()
	payload["email"] = testAdminEmail

	w := doJSON(t, r, http.MethodPost, "/register", "", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	var user models.User
	require.NoError(t, db.DB.Where("email = ?", testAdminEmail).First(&user).Error)
	assert.True(t, user.IsAdmin)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r, _ := setupTest(t)
	createUser(t, "wanjiku", "wanjiku@example.com", "+254712345678")

	tests := []struct {
		name    string
		mutate  func(map[string]interface{})
		message string
	}{
		{
			name:    "duplicate email",
			mutate:  func(p map[string]interface{}) { p["username"] = "other"; p["phone_number"] = "+254722000000" },
			message: "This email is already registered",
		},
		{
			name:    "duplicate username",
			mutate:  func(p map[string]interface{}) { p["email"] = "other@example.com"; p["phone_number"] = "+254722000000" },
			message: "Username is taken",
		},
		{
			name:    "duplicate phone",
			mutate:  func(p map[string]interface{}) { p["email"] = "other@example.com"; p["username"] = "other" },
			message: "Phone number already on record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := registration()
			tt.mutate(payload)

			w := doJSON(t, r, http.MethodPost, "/register", "", payload)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeBody(t, w)["error"])
			// No second row was created.
			assert.EqualValues(t, 1, countRows(t, &models.User{}))
		})
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	r, _ := setupTest(t)

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"password mismatch", func(p map[string]interface{}) { p["password2"] = "something else entirely" }},
		{"short password", func(p map[string]interface{}) { p["password"] = "short"; p["password2"] = "short" }},
		{"bad username", func(p map[string]interface{}) { p["username"] = "9starts-with-digit" }},
		{"bad phone", func(p map[string]interface{}) { p["phone_number"] = "12345" }},
		{"bad email", func(p map[string]interface{}) { p["email"] = "not-an-email" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := registration()
			tt.mutate(payload)

			w := doJSON(t, r, http.MethodPost, "/register", "", payload)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.EqualValues(t, 0, countRows(t, &models.User{}))
		})
	}
}

func TestLogin(t *testing.T) {
	r, _ := setupTest(t)
	createUser(t, "wanjiku", "wanjiku@example.com", "+254712345678")

	t.Run("valid credentials", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/login", "", map[string]interface{}{
			"username": "wanjiku",
			"password": "correct horse battery",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Set-Cookie"), "token=")
	})

	t.Run("wrong password", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/login", "", map[string]interface{}{
			"username": "wanjiku",
			"password": "wrong password here",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid username or password", decodeBody(t, w)["error"])
	})

	t.Run("unknown username", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/login", "", map[string]interface{}{
			"username": "nobody",
			"password": "correct horse battery",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid username or password", decodeBody(t, w)["error"])
	})
}

func TestConfirmAccount(t *testing.T) {
	r, _ := setupTest(t)
	user := createUser(t, "wanjiku", "wanjiku@example.com", "+254712345678", unconfirmed)
	session := sessionFor(t, user)

	token, err := auth.GenerateActionToken(auth.PurposeConfirm, user.ID, "", auth.ActionTokenTTL)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/confirm/"+token, session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reloadUser(t, user.ID).Confirmed)

	// Redeeming again is a no-op, not an error.
	w = doJSON(t, r, http.MethodGet, "/confirm/"+token, session, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Your account is already confirmed", decodeBody(t, w)["message"])
	assert.True(t, reloadUser(t, user.ID).Confirmed)
}

func TestConfirmRejectsForeignToken(t *testing.T) {
	r, _ := setupTest(t)
	user := createUser(t, "wanjiku", "wanjiku@example.com", "+254712345678", unconfirmed)
	other := createUser(t, "other", "other@example.com", "+254722000000", unconfirmed)

	token, err := auth.GenerateActionToken(auth.PurposeConfirm, other.ID, "", auth.ActionTokenTTL)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/confirm/"+token, sessionFor(t, user), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, reloadUser(t, user.ID).Confirmed)
}

func TestConfirmRejectsWrongPurposeToken(t *testing.T) {
	r, _ := setupTest(t)
	user := createUser(t, "wanjiku", "wanjiku@example.com", "+254712345678", unconfirmed)

	token, err := auth.GenerateActionToken(auth.PurposeReset, user.ID, "", auth.ActionTokenTTL)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/confirm/"+token, sessionFor(t, user), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, reloadUser(t, user.ID).Confirmed)
}

func TestPasswordReset(t *testing.T) {
	r, mock := setupTest(t)
	user := createUser(t, "wanjiku", "wanjiku@example.com", "+254712345678")

	w := doJSON(t, r, http.MethodPost, "/reset", "", map[string]interface{}{
		"email": "wanjiku@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mock.Sent, 1)

	token, err := auth.GenerateActionToken(auth.PurposeReset, user.ID, "", auth.ActionTokenTTL)
	require.NoError(t, err)

	w = doJSON(t, r, http.MethodPost, "/reset/"+token, "", map[string]interface{}{
		"password":  "a brand new password",
		"password2": "a brand new password",
	})
	require.Equal(t, http.StatusOK, w.Code)

	assert.True(t, auth.VerifyPassword(reloadUser(t, user.ID).PasswordHash, "a brand new password"))
}

func TestPasswordResetUnknownEmailLeaksNothing(t *testing.T) {
	r, mock := setupTest(t)

	w := doJSON(t, r, http.MethodPost, "/reset", "", map[string]interface{}{
		"email": "nobody@example.com",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mock.Sent)
}

func TestEmailChange(t *testing.T) {
	r, mock := setupTest(t)
	user := createUser(t, "wanjiku", "wanjiku@example.com", "+254712345678")
	session := sessionFor(t, user)

	w := doJSON(t, r, http.MethodPost, "/change-email", session, map[string]interface{}{
		"new_email": "new@example.com",
		"password":  "correct horse battery",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mock.Sent, 1)
	assert.Equal(t, "new@example.com", mock.Sent[0].To)

	token, err := auth.GenerateActionToken(auth.PurposeChangeEmail, user.ID, "new@example.com", auth.ActionTokenTTL)
	require.NoError(t, err)

	w = doJSON(t, r, http.MethodGet, "/change-email/"+token, session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new@example.com", reloadUser(t, user.ID).Email)
}

func TestEmailChangeRejectsTakenAddress(t *testing.T) {
	r, _ := setupTest(t)
	user := createUser(t, "wanjiku", "wanjiku@example.com", "+254712345678")
	createUser(t, "other", "taken@example.com", "+254722000000")

	token, err := auth.GenerateActionToken(auth.PurposeChangeEmail, user.ID, "taken@example.com", auth.ActionTokenTTL)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/change-email/"+token, sessionFor(t, user), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "wanjiku@example.com", reloadUser(t, user.ID).Email)
}

func reloadUser(t *testing.T, id uint) models.User {
	t.Helper()

	var user models.User
	require.NoError(t, db.DB.First(&user, id).Error)
	return user
}
