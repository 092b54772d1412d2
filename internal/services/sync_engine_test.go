package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"refsync/internal/config"
	"refsync/internal/models"
	"refsync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeAdapter is an in-memory provider for engine tests.
type fakeAdapter struct {
	mu          sync.Mutex
	collections []Collection
	items       map[string][]NormalizedReference
	created     []NormalizedReference
	updated     map[string]NormalizedReference
	readonly    bool
	nextID      int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		items:   make(map[string][]NormalizedReference),
		updated: make(map[string]NormalizedReference),
	}
}

func (f *fakeAdapter) Authenticate(ctx context.Context) error { return nil }

func (f *fakeAdapter) GetCollections(ctx context.Context) ([]Collection, error) {
	return f.collections, nil
}

func (f *fakeAdapter) GetReferences(ctx context.Context, collectionID string, limit, offset int) ([]NormalizedReference, error) {
	all := f.items[collectionID]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeAdapter) CreateReference(ctx context.Context, ref NormalizedReference) (*NormalizedReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ref.ExternalID = fmt.Sprintf("ext-%d", f.nextID)
	f.created = append(f.created, ref)
	return &ref, nil
}

func (f *fakeAdapter) UpdateReference(ctx context.Context, externalID string, ref NormalizedReference) (*NormalizedReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref.ExternalID = externalID
	f.updated[externalID] = ref
	return &ref, nil
}

func (f *fakeAdapter) ReadOnly() bool { return f.readonly }

type engineFixture struct {
	db       *gorm.DB
	engine   *SyncEngine
	detector *ChangeDetector
	refRepo  *repository.ReferenceRepository
	mappings *repository.MappingRepository
	sessions *repository.SyncSessionRepository
	conflict *repository.ConflictRepository
	stats    *repository.StatisticsRepository
	user     *models.User
	account  *models.ReferenceManagerAccount
	adapter  *fakeAdapter
	provider models.ServiceProvider
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := setupTestDB(t)
	user := createTestUser(t, db)

	provider := models.ServiceProvider("fake-" + t.Name())
	adapter := newFakeAdapter()
	RegisterAdapterFactory(provider, func(account models.ReferenceManagerAccount, timeout time.Duration) (ServiceAdapter, error) {
		return adapter, nil
	})

	account := createTestAccount(t, db, user.ID, provider)

	refRepo := repository.NewReferenceRepository(db)
	mappings := repository.NewMappingRepository(db)
	sessions := repository.NewSyncSessionRepository(db)
	logs := repository.NewSyncLogRepository(db)
	conflicts := repository.NewConflictRepository(db)
	stats := repository.NewStatisticsRepository(db)
	accounts := repository.NewAccountRepository(db)
	detector := NewChangeDetector()
	resolver := NewConflictResolver(refRepo, mappings, conflicts, detector)
	aggregator := NewStatisticsAggregator(stats)

	cfg := config.SyncConfig{
		PageSize:       2,
		PushItemCap:    100,
		AdapterTimeout: 5 * time.Second,
		MaxPullWorkers: 2,
	}
	engine := NewSyncEngine(cfg, accounts, refRepo, mappings, sessions, logs, resolver, detector, aggregator)

	return &engineFixture{
		db:       db,
		engine:   engine,
		detector: detector,
		refRepo:  refRepo,
		mappings: mappings,
		sessions: sessions,
		conflict: conflicts,
		stats:    stats,
		user:     user,
		account:  account,
		adapter:  adapter,
		provider: provider,
	}
}

func (f *engineFixture) runSync(t *testing.T, direction models.SyncDirection, policy models.ConflictPolicy) *models.SyncSession {
	t.Helper()
	profile := createTestProfile(t, f.db, f.user.ID, direction, policy, f.account)
	session, err := f.engine.StartSession(profile, "manual")
	require.NoError(t, err)
	require.NoError(t, f.engine.Run(context.Background(), session, profile))

	final, err := f.sessions.GetBySessionID(session.SessionID)
	require.NoError(t, err)
	return final
}

func TestRunImportsNewRemoteItem(t *testing.T) {
	f := newEngineFixture(t)
	f.adapter.collections = []Collection{{ID: "col-1", Name: "Papers"}}
	f.adapter.items["col-1"] = []NormalizedReference{{
		ExternalID: "remote-1",
		Title:      "A Pulled Paper",
		Authors:    []string{"Alice Smith", "Bob Jones"},
		Year:       2023,
		DOI:        "10.1234/pulled",
		Keywords:   []string{"testing"},
	}}

	session := f.runSync(t, models.DirectionImportOnly, models.PolicyMerge)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Equal(t, 1, session.ItemsCreated)
	assert.Equal(t, 1, session.ItemsProcessed)

	local, err := f.refRepo.GetByDOI(f.user.ID, "10.1234/pulled")
	require.NoError(t, err)
	require.NotNil(t, local)
	assert.Equal(t, "A Pulled Paper", local.Title)
	assert.Equal(t, []string{"Alice Smith", "Bob Jones"}, local.AuthorNames())

	mapping, err := f.mappings.GetByKey(f.provider, "remote-1", f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, models.MappingSynced, mapping.SyncStatus)
	assert.Equal(t, f.detector.HashLocal(local), mapping.LocalHash)
	assert.Equal(t, f.detector.HashRemote(f.adapter.items["col-1"][0]), mapping.RemoteHash)
}

func TestRunSecondPullIsIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	f.adapter.collections = []Collection{{ID: "col-1", Name: "Papers"}}
	f.adapter.items["col-1"] = []NormalizedReference{{
		ExternalID: "remote-1",
		Title:      "Stable Paper",
		DOI:        "10.1234/stable",
	}}

	first := f.runSync(t, models.DirectionImportOnly, models.PolicyMerge)
	require.Equal(t, 1, first.ItemsCreated)

	second := f.runSync(t, models.DirectionImportOnly, models.PolicyMerge)
	assert.Equal(t, models.SessionCompleted, second.Status)
	assert.Zero(t, second.ItemsCreated)
	assert.Zero(t, second.ItemsUpdated)
	assert.Equal(t, 1, second.ItemsSkipped)
	assert.Equal(t, second.TotalItems, second.ItemsCreated+second.ItemsUpdated+second.ItemsSkipped)

	var count int64
	require.NoError(t, f.db.Model(&models.Reference{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRunCompletedCountersPartitionItems(t *testing.T) {
	f := newEngineFixture(t)

	unchanged := createTestReference(t, f.db, f.user.ID, "Settled", nil)
	remoteUnchanged := NormalizedReference{ExternalID: "remote-same", Title: "Settled"}
	require.NoError(t, f.mappings.Upsert(&models.ReferenceMapping{
		ReferenceID: unchanged.ID,
		AccountID:   f.account.ID,
		Service:     f.provider,
		ExternalID:  "remote-same",
		LocalHash:   f.detector.HashLocal(unchanged),
		RemoteHash:  f.detector.HashRemote(remoteUnchanged),
		SyncStatus:  models.MappingSynced,
	}))

	disputed := createTestReference(t, f.db, f.user.ID, "Local Side", nil)
	require.NoError(t, f.mappings.Upsert(&models.ReferenceMapping{
		ReferenceID: disputed.ID,
		AccountID:   f.account.ID,
		Service:     f.provider,
		ExternalID:  "remote-disputed",
		LocalHash:   f.detector.HashLocal(disputed),
		RemoteHash:  f.detector.HashRemote(NormalizedReference{ExternalID: "remote-disputed", Title: "Local Side"}),
		SyncStatus:  models.MappingSynced,
	}))

	f.adapter.collections = []Collection{{ID: "col-1", Name: "Papers"}}
	f.adapter.items["col-1"] = []NormalizedReference{
		{ExternalID: "remote-new", Title: "Brand New", DOI: "10.1/new"},
		remoteUnchanged,
		{ExternalID: "remote-disputed", Title: "Remote Side"},
	}

	session := f.runSync(t, models.DirectionImportOnly, models.PolicyAsk)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Equal(t, 3, session.TotalItems)
	assert.Equal(t, 3, session.ItemsProcessed)
	assert.Equal(t, 1, session.ItemsCreated)
	assert.Zero(t, session.ItemsUpdated)
	assert.Equal(t, 2, session.ItemsSkipped)

	// A completed session's items partition into the three outcome buckets.
	assert.Equal(t, session.TotalItems, session.ItemsCreated+session.ItemsUpdated+session.ItemsSkipped)
}

func TestRunDeduplicatesDOIAcrossAccounts(t *testing.T) {
	f := newEngineFixture(t)
	second := createTestAccount(t, f.db, f.user.ID, f.provider)

	f.adapter.collections = []Collection{{ID: "col-1", Name: "Papers"}}
	f.adapter.items["col-1"] = []NormalizedReference{{
		ExternalID: "remote-1",
		Title:      "Shared DOI Paper",
		DOI:        "10.1234/shared",
	}}

	// Two accounts pulled by parallel workers both carry the same DOI; one
	// import wins and the other adopts it by linking a second mapping.
	profile := createTestProfile(t, f.db, f.user.ID, models.DirectionImportOnly, models.PolicyMerge, f.account, second)
	session, err := f.engine.StartSession(profile, "manual")
	require.NoError(t, err)
	require.NoError(t, f.engine.Run(context.Background(), session, profile))

	final, err := f.sessions.GetBySessionID(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, final.Status)
	assert.Equal(t, 1, final.ItemsCreated)
	assert.Equal(t, 2, final.TotalItems)
	assert.Equal(t, final.TotalItems, final.ItemsCreated+final.ItemsUpdated+final.ItemsSkipped)

	var refCount int64
	require.NoError(t, f.db.Model(&models.Reference{}).Count(&refCount).Error)
	assert.EqualValues(t, 1, refCount)

	for _, accountID := range []uint{f.account.ID, second.ID} {
		mapping, err := f.mappings.GetByKey(f.provider, "remote-1", accountID)
		require.NoError(t, err)
		require.NotNil(t, mapping)
		assert.Equal(t, models.MappingSynced, mapping.SyncStatus)
	}
}

func TestRunAskPolicyDefersConflict(t *testing.T) {
	f := newEngineFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Local Title", nil)

	oldRemote := NormalizedReference{ExternalID: "remote-1", Title: "Local Title"}
	mapping := &models.ReferenceMapping{
		ReferenceID: local.ID,
		AccountID:   f.account.ID,
		Service:     f.provider,
		ExternalID:  "remote-1",
		LocalHash:   f.detector.HashLocal(local),
		RemoteHash:  f.detector.HashRemote(oldRemote),
		SyncStatus:  models.MappingSynced,
	}
	require.NoError(t, f.mappings.Upsert(mapping))

	f.adapter.collections = []Collection{{ID: "col-1", Name: "Papers"}}
	f.adapter.items["col-1"] = []NormalizedReference{{
		ExternalID: "remote-1",
		Title:      "Remote Title",
	}}

	session := f.runSync(t, models.DirectionImportOnly, models.PolicyAsk)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Equal(t, 1, session.ConflictsFound)
	assert.Zero(t, session.ConflictsResolved)
	assert.Equal(t, 1, session.ItemsSkipped)

	reloaded, err := f.refRepo.GetByID(local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Local Title", reloaded.Title)

	stored, err := f.mappings.GetByID(mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MappingConflict, stored.SyncStatus)

	conflicts, err := f.conflict.GetBySessionID(session.ID)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.True(t, conflicts[0].IsPending())
}

func TestRunPushCreatesUnmappedLocal(t *testing.T) {
	f := newEngineFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Export Me", []string{"Carol White"})

	session := f.runSync(t, models.DirectionExportOnly, models.PolicyMerge)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Equal(t, 1, session.ItemsCreated)

	require.Len(t, f.adapter.created, 1)
	assert.Equal(t, "Export Me", f.adapter.created[0].Title)

	mapping, err := f.mappings.GetByReferenceAndAccount(local.ID, f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, "ext-1", mapping.ExternalID)
	assert.Equal(t, models.MappingSynced, mapping.SyncStatus)
}

func TestRunPushUpdatesChangedLocal(t *testing.T) {
	f := newEngineFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Original", nil)

	mapping := &models.ReferenceMapping{
		ReferenceID: local.ID,
		AccountID:   f.account.ID,
		Service:     f.provider,
		ExternalID:  "remote-9",
		LocalHash:   f.detector.HashLocal(local),
		RemoteHash:  f.detector.HashLocal(local),
		SyncStatus:  models.MappingSynced,
	}
	require.NoError(t, f.mappings.Upsert(mapping))

	local.Title = "Changed Locally"
	require.NoError(t, f.refRepo.Update(local))

	session := f.runSync(t, models.DirectionExportOnly, models.PolicyMerge)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Equal(t, 1, session.ItemsUpdated)

	pushed, ok := f.adapter.updated["remote-9"]
	require.True(t, ok)
	assert.Equal(t, "Changed Locally", pushed.Title)

	stored, err := f.mappings.GetByID(mapping.ID)
	require.NoError(t, err)
	reloaded, err := f.refRepo.GetByID(local.ID)
	require.NoError(t, err)
	assert.Equal(t, f.detector.HashLocal(reloaded), stored.LocalHash)
}

func TestRunPushSkipsReadOnlyProvider(t *testing.T) {
	f := newEngineFixture(t)
	f.adapter.readonly = true
	createTestReference(t, f.db, f.user.ID, "Never Exported", nil)

	session := f.runSync(t, models.DirectionExportOnly, models.PolicyMerge)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Empty(t, f.adapter.created)
	assert.Zero(t, session.ItemsCreated)
}

func TestRunPushDefersPendingConflictMapping(t *testing.T) {
	f := newEngineFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Contested", nil)

	mapping := &models.ReferenceMapping{
		ReferenceID: local.ID,
		AccountID:   f.account.ID,
		Service:     f.provider,
		ExternalID:  "remote-7",
		SyncStatus:  models.MappingConflict,
	}
	require.NoError(t, f.mappings.Upsert(mapping))

	session := f.runSync(t, models.DirectionExportOnly, models.PolicyMerge)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Empty(t, f.adapter.created)
	assert.Empty(t, f.adapter.updated)
	assert.Equal(t, 1, session.ItemsSkipped)
}

func TestRunRecordsDailyStatistics(t *testing.T) {
	f := newEngineFixture(t)
	f.adapter.collections = []Collection{{ID: "col-1", Name: "Papers"}}
	f.adapter.items["col-1"] = []NormalizedReference{{
		ExternalID: "remote-1",
		Title:      "Counted",
		DOI:        "10.1/counted",
	}}

	session := f.runSync(t, models.DirectionImportOnly, models.PolicyMerge)
	require.Equal(t, models.SessionCompleted, session.Status)

	row, err := f.stats.GetByUserAndDate(f.user.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 1, row.SessionsRun)
	assert.Equal(t, 1, row.SessionsSucceeded)
	assert.Equal(t, 1, row.ItemsCreated)
	assert.True(t, row.APICallsMade > 0)
}

func TestRunExhaustedBudgetSkipsAccount(t *testing.T) {
	f := newEngineFixture(t)
	now := time.Now()
	require.NoError(t, f.db.Model(&models.ReferenceManagerAccount{}).
		Where("id = ?", f.account.ID).
		Updates(map[string]interface{}{
			"daily_api_limit": 1,
			"api_calls_today": 1,
			"api_calls_date":  now,
		}).Error)

	f.adapter.collections = []Collection{{ID: "col-1", Name: "Papers"}}
	f.adapter.items["col-1"] = []NormalizedReference{{ExternalID: "remote-1", Title: "Unreachable"}}

	session := f.runSync(t, models.DirectionImportOnly, models.PolicyMerge)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Zero(t, session.ItemsCreated)
	assert.Zero(t, session.APICallsMade)
}
