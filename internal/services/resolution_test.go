package services

import (
	"testing"

	"refsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyResolutionSettlesPendingConflict(t *testing.T) {
	f := newResolverFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Old", nil)
	mapping := f.createMapping(t, local, "ext-10")

	remote := NormalizedReference{ExternalID: "ext-10", Title: "New"}
	result, err := f.resolver.Reconcile(f.tracker, models.PolicyAsk, mapping, local, remote)
	require.NoError(t, err)
	require.Equal(t, 1, result.ConflictsFound)

	conflicts, err := f.conflict.GetBySessionID(f.tracker.SessionRowID())
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	svc := NewResolutionService(f.refRepo, f.mappings, f.conflict, f.detector)
	resolved, err := svc.ApplyResolution(conflicts[0].ID, "New", "alice")
	require.NoError(t, err)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, "manual", *resolved.Resolution)
	assert.Equal(t, "New", resolved.ResolvedValue)
	assert.Equal(t, "alice", resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)

	reloaded, err := f.refRepo.GetByID(local.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", reloaded.Title)

	// Last pending conflict on the mapping is gone, so it returns to synced
	// with a refreshed local fingerprint.
	stored, err := f.mappings.GetByID(mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MappingSynced, stored.SyncStatus)
	assert.Equal(t, f.detector.HashLocal(reloaded), stored.LocalHash)
}

func TestApplyResolutionRejectsSettledConflict(t *testing.T) {
	f := newResolverFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Old", nil)
	mapping := f.createMapping(t, local, "ext-11")

	remote := NormalizedReference{ExternalID: "ext-11", Title: "New"}
	_, err := f.resolver.Reconcile(f.tracker, models.PolicyAsk, mapping, local, remote)
	require.NoError(t, err)

	conflicts, err := f.conflict.GetBySessionID(f.tracker.SessionRowID())
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	svc := NewResolutionService(f.refRepo, f.mappings, f.conflict, f.detector)
	_, err = svc.ApplyResolution(conflicts[0].ID, "New", "alice")
	require.NoError(t, err)

	_, err = svc.ApplyResolution(conflicts[0].ID, "Another", "bob")
	assert.Error(t, err)
}

func TestApplyResolutionValidatesYear(t *testing.T) {
	f := newResolverFixture(t)
	local := createTestReference(t, f.db, f.user.ID, "Paper", nil)
	local.PublicationYear = 2020
	require.NoError(t, f.refRepo.Update(local))
	mapping := f.createMapping(t, local, "ext-12")

	remote := NormalizedReference{ExternalID: "ext-12", Title: "Paper", Year: 2021}
	_, err := f.resolver.Reconcile(f.tracker, models.PolicyAsk, mapping, local, remote)
	require.NoError(t, err)

	conflicts, err := f.conflict.GetBySessionID(f.tracker.SessionRowID())
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, "publication_year", conflicts[0].ConflictType)

	svc := NewResolutionService(f.refRepo, f.mappings, f.conflict, f.detector)
	_, err = svc.ApplyResolution(conflicts[0].ID, "not-a-year", "alice")
	assert.Error(t, err)

	resolved, err := svc.ApplyResolution(conflicts[0].ID, "2021", "alice")
	require.NoError(t, err)
	require.NotNil(t, resolved.Resolution)

	reloaded, err := f.refRepo.GetByID(local.ID)
	require.NoError(t, err)
	assert.Equal(t, 2021, reloaded.PublicationYear)
}
