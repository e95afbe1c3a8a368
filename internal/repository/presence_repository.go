package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"presence-sync-service/internal/domain"
)

const snapshotInsertBatchSize = 1000

// HistoryEntry is one row of the historical presence projection
type HistoryEntry struct {
	UserID       string    `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Availability string    `json:"availability"`
	Activity     string    `json:"activity"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// PresenceRepository defines the interface for presence data access
type PresenceRepository interface {
	// UpsertCurrent writes the latest presence for a user, touching the row
	// only when it is newly created or availability, activity, or fetch time
	// changed. Returns whether a write happened.
	UpsertCurrent(ctx context.Context, userID uuid.UUID, availability, activity string, fetchedAt time.Time) (bool, error)
	CurrentByUserID(ctx context.Context, userID uuid.UUID) (*domain.CurrentPresence, error)
	// BulkInsertSnapshots appends historical snapshots in one batched insert
	BulkInsertSnapshots(ctx context.Context, snapshots []domain.PresenceSnapshot) error
	// History returns the presence time series, most recent first. An empty
	// aadUserID returns all users.
	History(ctx context.Context, aadUserID string) ([]HistoryEntry, error)
}

// presenceRepositoryImpl is the GORM implementation of PresenceRepository
type presenceRepositoryImpl struct {
	db *gorm.DB
}

// NewPresenceRepository creates a new instance of PresenceRepository
func NewPresenceRepository(db *gorm.DB) PresenceRepository {
	return &presenceRepositoryImpl{db: db}
}

func (r *presenceRepositoryImpl) UpsertCurrent(ctx context.Context, userID uuid.UUID, availability, activity string, fetchedAt time.Time) (bool, error) {
	written := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.CurrentPresence
		err := lockForUpdate(tx).Where("user_id = ?", userID).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			current = domain.CurrentPresence{
				UserID:       userID,
				Availability: availability,
				Activity:     activity,
				FetchedAt:    fetchedAt,
			}
			if err := tx.Create(&current).Error; err != nil {
				return err
			}
			written = true
			return nil
		}
		if err != nil {
			return err
		}

		if current.Availability == availability && current.Activity == activity && !current.FetchedAt.Before(fetchedAt) {
			return nil
		}

		written = true
		return tx.Model(&current).Updates(map[string]interface{}{
			"availability": availability,
			"activity":     activity,
			"fetched_at":   fetchedAt,
		}).Error
	})
	if err != nil {
		return false, err
	}

	return written, nil
}

func (r *presenceRepositoryImpl) CurrentByUserID(ctx context.Context, userID uuid.UUID) (*domain.CurrentPresence, error) {
	var current domain.CurrentPresence
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&current).Error; err != nil {
		return nil, err
	}
	return &current, nil
}

func (r *presenceRepositoryImpl) BulkInsertSnapshots(ctx context.Context, snapshots []domain.PresenceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(snapshots, snapshotInsertBatchSize).Error
}

func (r *presenceRepositoryImpl) History(ctx context.Context, aadUserID string) ([]HistoryEntry, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.PresenceSnapshot{}).
		Select("directory_users.aad_user_id AS user_id",
			"directory_users.display_name",
			"presence_snapshots.availability",
			"presence_snapshots.activity",
			"presence_snapshots.fetched_at").
		Joins("JOIN directory_users ON directory_users.id = presence_snapshots.user_id").
		Order("presence_snapshots.fetched_at DESC, directory_users.aad_user_id ASC")

	if aadUserID != "" {
		query = query.Where("directory_users.aad_user_id = ?", aadUserID)
	}

	var entries []HistoryEntry
	if err := query.Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
