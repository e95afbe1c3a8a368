package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"presence-sync-service/internal/graph"
)

// CycleSummary reports the counters of one completed poll cycle
type CycleSummary struct {
	TotalMembers       int           `json:"total_members"`
	Created            int           `json:"created"`
	Updated            int           `json:"updated"`
	Deactivated        int64         `json:"deactivated"`
	PresencesProcessed int           `json:"presences_processed"`
	Duration           time.Duration `json:"duration"`
}

// Syncer sequences one poll cycle: token acquisition, membership
// reconciliation, bulk deactivation, batched presence fetch, presence
// upsert. It is the cycle's single entry point, invoked by the scheduler.
//
// A failing step aborts the remainder of the cycle; writes committed by
// completed steps are retained. The next scheduled cycle is the recovery
// mechanism.
type Syncer struct {
	groupID    string
	tokens     *graph.TokenProvider
	client     *graph.Client
	reconciler *Reconciler
	upserter   *Upserter
	logger     *zap.Logger
}

// NewSyncer creates a new Syncer for the given group
func NewSyncer(groupID string, tokens *graph.TokenProvider, client *graph.Client, reconciler *Reconciler, upserter *Upserter, logger *zap.Logger) *Syncer {
	return &Syncer{
		groupID:    groupID,
		tokens:     tokens,
		client:     client,
		reconciler: reconciler,
		upserter:   upserter,
		logger:     logger,
	}
}

// RunPollCycle executes one synchronization cycle and returns its summary
func (s *Syncer) RunPollCycle(ctx context.Context) (*CycleSummary, error) {
	if s.groupID == "" {
		return nil, &ConfigError{Setting: "graph.group_id"}
	}

	started := time.Now()

	token, err := s.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	reconciled, err := s.reconciler.Reconcile(ctx, s.client.IterMembers(s.groupID, token))
	if err != nil {
		return nil, err
	}

	summary := &CycleSummary{
		TotalMembers: len(reconciled.MemberIDs),
		Created:      reconciled.Created,
		Updated:      reconciled.Updated,
		Deactivated:  reconciled.Deactivated,
	}

	if summary.TotalMembers == 0 {
		summary.Duration = time.Since(started)
		s.logger.Info("Group has no members, nothing to poll",
			zap.String("group_id", s.groupID),
		)
		return summary, nil
	}

	// One timestamp per cycle: every observation of this cycle is recorded
	// as fetched at the same instant
	asOf := time.Now().UTC()

	observations, err := s.client.FetchPresence(ctx, reconciled.MemberIDs, token)
	if err != nil {
		return nil, err
	}

	upserted, err := s.upserter.UpsertPresence(ctx, observations, asOf)
	if err != nil {
		return nil, err
	}

	summary.PresencesProcessed = upserted.Processed
	summary.Duration = time.Since(started)

	return summary, nil
}
