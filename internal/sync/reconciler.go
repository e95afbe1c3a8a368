package sync

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"presence-sync-service/internal/domain"
	"presence-sync-service/internal/graph"
	"presence-sync-service/internal/repository"
)

const maxDisplayNameLen = 255

// MemberSource yields directory member records one at a time, returning
// (nil, nil) when exhausted. *graph.MemberPager satisfies it.
type MemberSource interface {
	Next(ctx context.Context) (*graph.MemberRecord, error)
}

// ReconcileResult summarizes one membership reconciliation pass
type ReconcileResult struct {
	Created     int
	Updated     int
	Deactivated int64
	// MemberIDs preserves the listing order for the presence fetch
	MemberIDs []string
	ActiveIDs map[string]struct{}
}

// Reconciler aligns the stored directory users with the upstream group
// membership, deactivating members that disappeared from the listing.
type Reconciler struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(users repository.UserRepository, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		users:  users,
		logger: logger,
	}
}

// Reconcile drains the member source, upserting each user, then bulk
// deactivates every active user absent from the listing.
func (r *Reconciler) Reconcile(ctx context.Context, members MemberSource) (*ReconcileResult, error) {
	result := &ReconcileResult{
		ActiveIDs: make(map[string]struct{}),
	}

	for {
		member, err := members.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve group members: %w", err)
		}
		if member == nil {
			break
		}

		if err := r.reconcileMember(ctx, member, result); err != nil {
			return nil, err
		}

		result.MemberIDs = append(result.MemberIDs, member.ID)
		result.ActiveIDs[member.ID] = struct{}{}
	}

	deactivated, err := r.users.DeactivateMissing(ctx, result.MemberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate departed members: %w", err)
	}
	result.Deactivated = deactivated

	if deactivated > 0 {
		r.logger.Info("Deactivated members no longer in group",
			zap.Int64("count", deactivated),
		)
	}

	return result, nil
}

func (r *Reconciler) reconcileMember(ctx context.Context, member *graph.MemberRecord, result *ReconcileResult) error {
	displayName := truncate(member.DisplayName, maxDisplayNameLen)

	user, created, err := r.users.FindOrCreateForUpdate(ctx, member.ID, domain.DirectoryUser{
		DisplayName: displayName,
		Email:       member.Email,
		IsActive:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", member.ID, err)
	}

	if created {
		result.Created++
		return nil
	}

	// Update only what changed; keep writes minimal
	fields := map[string]interface{}{}
	if displayName != "" && user.DisplayName != displayName {
		fields["display_name"] = displayName
	}
	if !emailEqual(user.Email, member.Email) {
		fields["email"] = member.Email
	}
	if !user.IsActive {
		fields["is_active"] = true
	}

	if len(fields) > 0 {
		if err := r.users.UpdateFields(ctx, user, fields); err != nil {
			return fmt.Errorf("failed to update user %s: %w", member.ID, err)
		}
		result.Updated++
	}

	return nil
}

// truncate caps s at max characters without splitting a multibyte rune
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func emailEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
