package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"presence-sync-service/internal/domain"
	"presence-sync-service/internal/graph"
	"presence-sync-service/internal/repository"
)

// UpsertResult summarizes one presence upsert pass
type UpsertResult struct {
	Processed int
}

// Upserter writes presence observations: the current-presence row per user
// (only on change) plus an immutable historical snapshot per observation.
type Upserter struct {
	users     repository.UserRepository
	presences repository.PresenceRepository
	logger    *zap.Logger
}

// NewUpserter creates a new Upserter
func NewUpserter(users repository.UserRepository, presences repository.PresenceRepository, logger *zap.Logger) *Upserter {
	return &Upserter{
		users:     users,
		presences: presences,
		logger:    logger,
	}
}

// UpsertPresence applies a batch of observations fetched at asOf. asOf is
// captured once per poll cycle, not per request. Observations for users the
// store does not know are logged and skipped; snapshots are appended in one
// bulk insert at the end.
func (u *Upserter) UpsertPresence(ctx context.Context, observations []graph.PresenceObservation, asOf time.Time) (*UpsertResult, error) {
	result := &UpsertResult{}
	snapshots := make([]domain.PresenceSnapshot, 0, len(observations))

	for _, obs := range observations {
		user, err := u.users.FindByAADID(ctx, obs.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Guard against inconsistent upstream data between the
			// membership and presence calls
			u.logger.Warn("Skipping presence observation",
				zap.Error(&DataIntegrityError{AADUserID: obs.ID}),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user %s: %w", obs.ID, err)
		}

		if _, err := u.presences.UpsertCurrent(ctx, user.ID, obs.Availability, obs.Activity, asOf); err != nil {
			return nil, fmt.Errorf("failed to upsert current presence for %s: %w", obs.ID, err)
		}

		snapshots = append(snapshots, domain.PresenceSnapshot{
			UserID:       user.ID,
			Availability: obs.Availability,
			Activity:     obs.Activity,
			FetchedAt:    asOf,
		})
		result.Processed++
	}

	if err := u.presences.BulkInsertSnapshots(ctx, snapshots); err != nil {
		return nil, fmt.Errorf("failed to insert presence snapshots: %w", err)
	}

	return result, nil
}
