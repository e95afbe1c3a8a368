package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"presence-sync-service/internal/domain"
	"presence-sync-service/internal/repository"
)

func setupHandlerTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.DirectoryUser{},
		&domain.CurrentPresence{},
		&domain.PresenceSnapshot{},
	))

	h := NewPresenceHandler(repository.NewUserRepository(db), repository.NewPresenceRepository(db))
	r := gin.New()
	r.GET("/api/history", h.GetHistory)
	r.GET("/api/users", h.GetUsers)
	return db, r
}

func seedHistory(t *testing.T, db *gorm.DB) {
	t.Helper()

	alice := domain.DirectoryUser{AADUserID: "aad-1", DisplayName: "Alice", IsActive: true}
	bob := domain.DirectoryUser{AADUserID: "aad-2", DisplayName: "Bob", IsActive: true}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)

	t1 := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(5 * time.Minute)
	require.NoError(t, db.Create(&[]domain.PresenceSnapshot{
		{UserID: alice.ID, Availability: domain.AvailabilityAvailable, Activity: domain.ActivityAvailable, FetchedAt: t1},
		{UserID: bob.ID, Availability: domain.AvailabilityBusy, Activity: domain.ActivityInACall, FetchedAt: t1},
		{UserID: alice.ID, Availability: domain.AvailabilityAway, Activity: domain.ActivityAway, FetchedAt: t2},
	}).Error)
}

func doRequest(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetHistory(t *testing.T) {
	db, r := setupHandlerTest(t)
	seedHistory(t, db)

	w := doRequest(r, "/api/history")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 3)

	// Most recent observation first, timestamps in RFC3339 UTC
	assert.Equal(t, "aad-1", entries[0]["user_id"])
	assert.Equal(t, "Away", entries[0]["availability"])
	assert.Equal(t, "2026-09-01T10:05:00Z", entries[0]["collected_at"])
	assert.Equal(t, "2026-09-01T10:00:00Z", entries[1]["collected_at"])
}

func TestGetHistory_FilterByUser(t *testing.T) {
	db, r := setupHandlerTest(t)
	seedHistory(t, db)

	w := doRequest(r, "/api/history?user_id=aad-2")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Bob", entries[0]["display_name"])
	assert.Equal(t, "Busy", entries[0]["availability"])
	assert.Equal(t, "InACall", entries[0]["activity"])
}

func TestGetHistory_Empty(t *testing.T) {
	_, r := setupHandlerTest(t)

	w := doRequest(r, "/api/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetUsers(t *testing.T) {
	db, r := setupHandlerTest(t)
	seedHistory(t, db)

	w := doRequest(r, "/api/users")
	require.Equal(t, http.StatusOK, w.Code)

	var users []map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0]["display_name"])
	assert.Equal(t, "aad-1", users[0]["user_id"])
	assert.Equal(t, "Bob", users[1]["display_name"])
}
