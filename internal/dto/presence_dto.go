package dto

import (
	"time"

	"presence-sync-service/internal/repository"
)

// HistoryEntryResponse is one historical presence observation
type HistoryEntryResponse struct {
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
	Availability string `json:"availability"`
	Activity     string `json:"activity"`
	CollectedAt  string `json:"collected_at"`
}

// ToHistoryResponse maps repository history entries to API DTOs
func ToHistoryResponse(entries []repository.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			UserID:       e.UserID,
			DisplayName:  e.DisplayName,
			Availability: e.Availability,
			Activity:     e.Activity,
			CollectedAt:  e.FetchedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// UserResponse is one known directory user
type UserResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// ToUsersResponse maps known users to API DTOs
func ToUsersResponse(users []repository.KnownUser) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, UserResponse{
			UserID:      u.AADUserID,
			DisplayName: u.DisplayName,
		})
	}
	return out
}
