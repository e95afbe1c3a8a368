package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"presence-sync-service/internal/dto"
	"presence-sync-service/internal/repository"
	"presence-sync-service/internal/response"
)

// PresenceHandler serves the read-only projections over the synced data
type PresenceHandler struct {
	users     repository.UserRepository
	presences repository.PresenceRepository
}

// NewPresenceHandler creates a new PresenceHandler
func NewPresenceHandler(users repository.UserRepository, presences repository.PresenceRepository) *PresenceHandler {
	return &PresenceHandler{
		users:     users,
		presences: presences,
	}
}

// GetHistory returns the historical presence observations, most recent
// first, optionally filtered by user id
func (h *PresenceHandler) GetHistory(c *gin.Context) {
	userID := c.Query("user_id")

	entries, err := h.presences.History(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.ToHistoryResponse(entries))
}

// GetUsers returns the distinct known (user id, display name) pairs
func (h *PresenceHandler) GetUsers(c *gin.Context) {
	users, err := h.users.ListKnown(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.ToUsersResponse(users))
}
