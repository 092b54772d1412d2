package services

import (
	"testing"

	"refsync/internal/models"
	"refsync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type resolverFixture struct {
	db       *gorm.DB
	refRepo  *repository.ReferenceRepository
	mappings *repository.MappingRepository
	conflict *repository.ConflictRepository
	detector *ChangeDetector
	resolver *ConflictResolver
	tracker  *SessionTracker
	user     *models.User
	account  *models.ReferenceManagerAccount
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	db := setupTestDB(t)
	user := createTestUser(t, db)
	account := createTestAccount(t, db, user.ID, models.ProviderZotero)
	profile := createTestProfile(t, db, user.ID, models.DirectionBidirectional, models.PolicyMerge, account)

	sessionRepo := repository.NewSyncSessionRepository(db)
	session := &models.SyncSession{
		SessionID: "test-session",
		ProfileID: profile.ID,
		UserID:    user.ID,
		Status:    models.SessionRunning,
	}
	require.NoError(t, sessionRepo.Create(session))

	refRepo := repository.NewReferenceRepository(db)
	mappings := repository.NewMappingRepository(db)
	conflicts := repository.NewConflictRepository(db)
	detector := NewChangeDetector()

	return &resolverFixture{
		db:       db,
		refRepo:  refRepo,
		mappings: mappings,
		conflict: conflicts,
		detector: detector,
		resolver: NewConflictResolver(refRepo, mappings, conflicts, detector),
		tracker:  NewSessionTracker(session, sessionRepo, repository.NewSyncLogRepository(db)),
		user:     user,
		account:  account,
	}
}

func (f *resolverFixture) createMapping(t *testing.T, ref *models.Reference, externalID string) *models.ReferenceMapping {
	t.Helper()
	mapping := &models.ReferenceMapping{
		ReferenceID: ref.ID,
		AccountID:   f.account.ID,
		Service:     f.account.Provider,
		ExternalID:  externalID,
		LocalHash:   f.detector.HashLocal(ref),
		SyncStatus:  models.MappingSynced,
	}
	require.NoError(t, f.mappings.Upsert(mapping))
	return mapping
}

func TestDetectFieldConflictsBothSidesRequired(t *testing.T) {
	f := newResolverFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Local Title", nil)
	local.Abstract = ""
	local.PublicationYear = 2020

	remote := NormalizedReference{
		Title:    "Remote Title",
		Abstract: "only the remote has one",
		Year:     2021,
	}

	conflicts := f.resolver.DetectFieldConflicts(local, remote)
	require.Len(t, conflicts, 2)

	fields := []string{conflicts[0].Field, conflicts[1].Field}
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "publication_year")
	// The one-sided abstract is not a conflict.
	assert.NotContains(t, fields, "abstract")
}

func TestDetectFieldConflictsEqualValues(t *testing.T) {
	f := newResolverFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Same", nil)
	local.DOI = "10.1/x"

	remote := NormalizedReference{Title: "Same", DOI: "10.1/x"}
	assert.Empty(t, f.resolver.DetectFieldConflicts(local, remote))
}

func TestMergeKeywordsUnion(t *testing.T) {
	got := MergeKeywords([]string{"nlp", "ml"}, []string{"ml", "vision", ""})
	assert.Equal(t, []string{"ml", "nlp", "vision"}, got)
}

func TestReconcileRemoteWins(t *testing.T) {
	f := newResolverFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Old Title", []string{"Alice Smith"})
	mapping := f.createMapping(t, local, "ext-1")

	remote := NormalizedReference{
		ExternalID: "ext-1",
		Title:      "New Title",
		Authors:    []string{"Alice Smith"},
		Year:       2022,
	}

	result, err := f.resolver.Reconcile(f.tracker, models.PolicyRemoteWins, mapping, local, remote)
	require.NoError(t, err)
	assert.True(t, result.LocalChanged)
	assert.Equal(t, 1, result.ConflictsFound)
	assert.Equal(t, 1, result.ConflictsResolved)

	reloaded, err := f.refRepo.GetByID(local.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Title", reloaded.Title)
	assert.Equal(t, 2022, reloaded.PublicationYear)

	stored, err := f.mappings.GetByID(mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MappingSynced, stored.SyncStatus)
	assert.Equal(t, f.detector.HashRemote(remote), stored.RemoteHash)
	assert.Equal(t, f.detector.HashLocal(reloaded), stored.LocalHash)

	conflicts, err := f.conflict.GetBySessionID(f.tracker.SessionRowID())
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "title", conflicts[0].ConflictType)
	require.NotNil(t, conflicts[0].Resolution)
	assert.Equal(t, "remote_wins", *conflicts[0].Resolution)
	assert.Equal(t, "New Title", conflicts[0].ResolvedValue)
}

func TestReconcileMergeFillsEmptyFields(t *testing.T) {
	f := newResolverFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Stable Title", nil)
	require.Empty(t, local.Abstract)
	mapping := f.createMapping(t, local, "ext-2")

	remote := NormalizedReference{
		ExternalID: "ext-2",
		Title:      "Stable Title",
		Abstract:   "filled in from the remote side",
	}

	result, err := f.resolver.Reconcile(f.tracker, models.PolicyMerge, mapping, local, remote)
	require.NoError(t, err)
	assert.True(t, result.LocalChanged)
	assert.Zero(t, result.ConflictsFound)

	reloaded, err := f.refRepo.GetByID(local.ID)
	require.NoError(t, err)
	assert.Equal(t, "filled in from the remote side", reloaded.Abstract)
	assert.Equal(t, "Stable Title", reloaded.Title)
}

func TestReconcileMergeKeepsLocalOnBothSidedConflict(t *testing.T) {
	f := newResolverFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Local Wins Here", nil)
	mapping := f.createMapping(t, local, "ext-3")

	remote := NormalizedReference{ExternalID: "ext-3", Title: "Remote Version"}

	result, err := f.resolver.Reconcile(f.tracker, models.PolicyMerge, mapping, local, remote)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ConflictsFound)
	assert.Equal(t, 1, result.ConflictsResolved)

	reloaded, err := f.refRepo.GetByID(local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Local Wins Here", reloaded.Title)
}

func TestReconcileLocalWinsAdvancesRemoteHashOnly(t *testing.T) {
	f := newResolverFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Kept Title", nil)
	mapping := f.createMapping(t, local, "ext-4")
	originalLocalHash := mapping.LocalHash

	remote := NormalizedReference{ExternalID: "ext-4", Title: "Discarded Title"}

	result, err := f.resolver.Reconcile(f.tracker, models.PolicyLocalWins, mapping, local, remote)
	require.NoError(t, err)
	assert.False(t, result.LocalChanged)
	assert.False(t, result.Skipped)

	stored, err := f.mappings.GetByID(mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MappingSynced, stored.SyncStatus)
	assert.Equal(t, originalLocalHash, stored.LocalHash)
	assert.Equal(t, f.detector.HashRemote(remote), stored.RemoteHash)

	reloaded, err := f.refRepo.GetByID(local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kept Title", reloaded.Title)
}

func TestReconcileAskDefersDecision(t *testing.T) {
	f := newResolverFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Disputed", nil)
	mapping := f.createMapping(t, local, "ext-5")
	originalRemoteHash := mapping.RemoteHash

	remote := NormalizedReference{ExternalID: "ext-5", Title: "Also Disputed"}

	result, err := f.resolver.Reconcile(f.tracker, models.PolicyAsk, mapping, local, remote)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 1, result.ConflictsFound)
	assert.Zero(t, result.ConflictsResolved)

	stored, err := f.mappings.GetByID(mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MappingConflict, stored.SyncStatus)
	// Hashes stay put so the diff resurfaces until someone decides.
	assert.Equal(t, originalRemoteHash, stored.RemoteHash)

	conflicts, err := f.conflict.GetBySessionID(f.tracker.SessionRowID())
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.True(t, conflicts[0].IsPending())

	reloaded, err := f.refRepo.GetByID(local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Disputed", reloaded.Title)
}

func TestReconcileSkipLeavesEverything(t *testing.T) {
	f := newResolverFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Untouched", nil)
	mapping := f.createMapping(t, local, "ext-6")

	remote := NormalizedReference{ExternalID: "ext-6", Title: "Different"}

	result, err := f.resolver.Reconcile(f.tracker, models.PolicySkip, mapping, local, remote)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.False(t, result.LocalChanged)

	stored, err := f.mappings.GetByID(mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MappingConflict, stored.SyncStatus)

	conflicts, err := f.conflict.GetBySessionID(f.tracker.SessionRowID())
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.NotNil(t, conflicts[0].Resolution)
	assert.Equal(t, "skip", *conflicts[0].Resolution)
}
