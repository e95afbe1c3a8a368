package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"presence-sync-service/internal/config"
	"presence-sync-service/internal/domain"
	"presence-sync-service/internal/graph"
	"presence-sync-service/internal/repository"
)

// fakeGraph emulates the three Graph endpoints a poll cycle touches: the
// token exchange, the paged members listing, and the presence batch call.
type fakeGraph struct {
	t        *testing.T
	members  []graph.MemberRecord
	pageSize int

	tokenStatus   int // 0 means success
	extraPresence []string

	tokenCalls    int
	memberCalls   int
	presenceCalls int

	server *httptest.Server
}

func newFakeGraph(t *testing.T) *fakeGraph {
	f := &fakeGraph{t: t, pageSize: 100}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGraph) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/oauth2/v2.0/token"):
		f.tokenCalls++
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok-e2e"}`))

	case strings.HasPrefix(r.URL.Path, "/groups/"):
		f.memberCalls++
		assert.Equal(f.t, "Bearer tok-e2e", r.Header.Get("Authorization"))

		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		end := skip + f.pageSize
		if end > len(f.members) {
			end = len(f.members)
		}

		value := make([]map[string]interface{}, 0, end-skip)
		for _, m := range f.members[skip:end] {
			item := map[string]interface{}{"id": m.ID, "displayName": m.DisplayName}
			if m.Email != nil {
				item["mail"] = *m.Email
			}
			value = append(value, item)
		}

		body := map[string]interface{}{"value": value}
		if end < len(f.members) {
			body["@odata.nextLink"] = fmt.Sprintf("%s%s?skip=%d", f.server.URL, r.URL.Path, end)
		}
		json.NewEncoder(w).Encode(body)

	case r.URL.Path == "/communications/getPresencesByUserId":
		f.presenceCalls++
		assert.Equal(f.t, "Bearer tok-e2e", r.Header.Get("Authorization"))

		var req struct {
			IDs []string `json:"ids"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		ids := append(append([]string{}, req.IDs...), f.extraPresence...)
		value := make([]map[string]string, 0, len(ids))
		for _, id := range ids {
			value = append(value, map[string]string{
				"id":           id,
				"availability": "Available",
				"activity":     "Available",
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"value": value})

	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestSyncer(t *testing.T, fake *fakeGraph, db *gorm.DB, groupID string) *Syncer {
	t.Helper()

	cfg := &config.GraphConfig{
		AuthorityURL:          fake.server.URL,
		TenantID:              "tenant-1",
		ClientID:              "client-1",
		ClientSecret:          "secret-1",
		Scope:                 "https://graph.microsoft.com/.default",
		BaseURL:               fake.server.URL,
		BatchSize:             100,
		MaxRetries:            4,
		InitialBackoffSeconds: 0.001,
		RequestTimeoutSeconds: 5,
	}

	logger := zap.NewNop()
	tokens := graph.NewTokenProvider(cfg, logger)
	client := graph.NewClient(cfg, logger, nil)
	users := repository.NewUserRepository(db)
	presences := repository.NewPresenceRepository(db)
	reconciler := NewReconciler(users, logger)
	upserter := NewUpserter(users, presences, logger)
	return NewSyncer(groupID, tokens, client, reconciler, upserter, logger)
}

func makeMembers(n int) []graph.MemberRecord {
	members := make([]graph.MemberRecord, n)
	for i := range members {
		members[i] = graph.MemberRecord{
			ID:          fmt.Sprintf("aad-%03d", i),
			DisplayName: fmt.Sprintf("User %03d", i),
		}
	}
	return members
}

func TestRunPollCycle_FullCycle(t *testing.T) {
	db := setupTestDB(t)
	fake := newFakeGraph(t)
	fake.members = makeMembers(3)
	fake.pageSize = 2 // force pagination

	syncer := newTestSyncer(t, fake, db, "group-1")

	summary, err := syncer.RunPollCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalMembers)
	assert.Equal(t, 3, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, int64(0), summary.Deactivated)
	assert.Equal(t, 3, summary.PresencesProcessed)

	assert.Equal(t, 1, fake.tokenCalls)
	assert.Equal(t, 2, fake.memberCalls)
	assert.Equal(t, 1, fake.presenceCalls)

	var userCount, currentCount, snapCount int64
	require.NoError(t, db.Model(&domain.DirectoryUser{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&domain.CurrentPresence{}).Count(&currentCount).Error)
	require.NoError(t, db.Model(&domain.PresenceSnapshot{}).Count(&snapCount).Error)
	assert.Equal(t, int64(3), userCount)
	assert.Equal(t, int64(3), currentCount)
	assert.Equal(t, int64(3), snapCount)
}

func TestRunPollCycle_BatchesLargeGroups(t *testing.T) {
	db := setupTestDB(t)
	fake := newFakeGraph(t)
	fake.members = makeMembers(150)

	syncer := newTestSyncer(t, fake, db, "group-1")

	summary, err := syncer.RunPollCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 150, summary.TotalMembers)
	assert.Equal(t, 150, summary.PresencesProcessed)
	// 150 ids at a batch size of 100 means two presence requests
	assert.Equal(t, 2, fake.presenceCalls)
}

func TestRunPollCycle_SecondCycleIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	fake := newFakeGraph(t)
	fake.members = makeMembers(2)

	syncer := newTestSyncer(t, fake, db, "group-1")
	ctx := context.Background()

	_, err := syncer.RunPollCycle(ctx)
	require.NoError(t, err)

	summary, err := syncer.RunPollCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalMembers)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, int64(0), summary.Deactivated)

	// Each cycle acquires a fresh token and appends fresh snapshots
	assert.Equal(t, 2, fake.tokenCalls)
	var snapCount int64
	require.NoError(t, db.Model(&domain.PresenceSnapshot{}).Count(&snapCount).Error)
	assert.Equal(t, int64(4), snapCount)
}

func TestRunPollCycle_DeactivatesDepartedMembers(t *testing.T) {
	db := setupTestDB(t)
	fake := newFakeGraph(t)
	fake.members = makeMembers(2)

	syncer := newTestSyncer(t, fake, db, "group-1")
	ctx := context.Background()

	_, err := syncer.RunPollCycle(ctx)
	require.NoError(t, err)

	fake.members = fake.members[:1]
	summary, err := syncer.RunPollCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TotalMembers)
	assert.Equal(t, int64(1), summary.Deactivated)

	departed, err := repository.NewUserRepository(db).FindByAADID(ctx, "aad-001")
	require.NoError(t, err)
	assert.False(t, departed.IsActive)

	// No presence is recorded for a member that left the group
	var snapCount int64
	require.NoError(t, db.Model(&domain.PresenceSnapshot{}).Where("user_id = ?", departed.ID).Count(&snapCount).Error)
	assert.Equal(t, int64(1), snapCount)
}

func TestRunPollCycle_EmptyGroupShortCircuits(t *testing.T) {
	db := setupTestDB(t)
	fake := newFakeGraph(t)

	syncer := newTestSyncer(t, fake, db, "group-1")

	summary, err := syncer.RunPollCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalMembers)
	assert.Equal(t, 0, summary.PresencesProcessed)
	assert.Equal(t, 0, fake.presenceCalls)
}

func TestRunPollCycle_UnknownPresenceObservationSkipped(t *testing.T) {
	db := setupTestDB(t)
	fake := newFakeGraph(t)
	fake.members = makeMembers(2)
	fake.extraPresence = []string{"aad-ghost"}

	syncer := newTestSyncer(t, fake, db, "group-1")

	summary, err := syncer.RunPollCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.PresencesProcessed)
}

func TestRunPollCycle_MissingGroupID(t *testing.T) {
	db := setupTestDB(t)
	fake := newFakeGraph(t)

	syncer := newTestSyncer(t, fake, db, "")

	_, err := syncer.RunPollCycle(context.Background())
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "graph.group_id", cfgErr.Setting)
	assert.Equal(t, 0, fake.tokenCalls)
}

func TestRunPollCycle_AuthFailureAbortsBeforeWrites(t *testing.T) {
	db := setupTestDB(t)
	fake := newFakeGraph(t)
	fake.members = makeMembers(2)
	fake.tokenStatus = http.StatusUnauthorized

	syncer := newTestSyncer(t, fake, db, "group-1")

	_, err := syncer.RunPollCycle(context.Background())
	require.Error(t, err)

	var authErr *graph.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 0, fake.memberCalls)

	var userCount int64
	require.NoError(t, db.Model(&domain.DirectoryUser{}).Count(&userCount).Error)
	assert.Equal(t, int64(0), userCount)
}
