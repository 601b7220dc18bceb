package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/waiyaki/maintraq/db"
	"github.com/waiyaki/maintraq/internal/auth"
	"github.com/waiyaki/maintraq/internal/config"
	"github.com/waiyaki/maintraq/internal/handlers"
	"github.com/waiyaki/maintraq/internal/mailer"
	"github.com/waiyaki/maintraq/internal/models"
	"github.com/waiyaki/maintraq/internal/notify"
	"github.com/waiyaki/maintraq/internal/router"
)

const testAdminEmail = "admin@example.com"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	auth.SetJWTSecret("test-signing-secret")
	m.Run()
}

// setupTest gives each test its own database, mock mailer and router.
func setupTest(t *testing.T) (*gin.Engine, *mailer.Mock) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "maintraq.db")

	conn, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Facility{},
		&models.Task{},
		&models.Notification{},
	))

	db.DB = conn

	mock := mailer.NewMock()
	handlers.Setup(
		&config.Config{AdminEmail: testAdminEmail},
		notify.New(mock, conn, testAdminEmail, ""),
	)

	return router.NewRouter(), mock
}

type userOpt func(*models.User)

func asAdmin(u *models.User)      { u.IsAdmin = true }
func asMaintainer(u *models.User) { u.IsMaintenance = true }
func unconfirmed(u *models.User)  { u.Confirmed = false }

func createUser(t *testing.T, username, email, phoneNumber string, opts ...userOpt) models.User {
	t.Helper()

	hash, err := auth.HashPassword("correct horse battery")
	require.NoError(t, err)

	user := models.User{
		Email:        email,
		Username:     username,
		PhoneNumber:  phoneNumber,
		PhoneRegion:  "KE",
		PasswordHash: hash,
		Confirmed:    true,
	}

	for _, opt := range opts {
		opt(&user)
	}

	require.NoError(t, db.DB.Create(&user).Error)
	return user
}

func createFacility(t *testing.T, name string) models.Facility {
	t.Helper()

	facility := models.Facility{Name: name}
	require.NoError(t, db.DB.Create(&facility).Error)
	return facility
}

func createTask(t *testing.T, requester models.User, facility models.Facility, description string) models.Task {
	t.Helper()

	task := models.Task{
		FacilityID:    facility.ID,
		RequestedByID: requester.ID,
		Description:   description,
	}
	require.NoError(t, db.DB.Create(&task).Error)
	return task
}

func sessionFor(t *testing.T, user models.User) string {
	t.Helper()

	token, err := auth.GenerateSessionToken(user.ID, user.Username, false)
	require.NoError(t, err)
	return token
}

// doJSON performs a request with an optional session token and JSON body.
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func reloadTask(t *testing.T, id uint) models.Task {
	t.Helper()

	var task models.Task
	require.NoError(t, db.DB.First(&task, id).Error)
	return task
}

func countRows(t *testing.T, model interface{}) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.DB.Model(model).Count(&count).Error)
	return count
}
