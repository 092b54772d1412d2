package services

import (
	"fmt"
	"sort"
	"strconv"

	"refsync/internal/models"
	"refsync/internal/repository"
	"refsync/internal/utils"
)

// FieldConflict is one detected disagreement: both sides non-empty and
// unequal on a tracked field.
type FieldConflict struct {
	Field       string
	LocalValue  string
	RemoteValue string
}

// ReconcileResult summarizes what a reconciliation did to the local record
// and the mapping.
type ReconcileResult struct {
	LocalChanged      bool
	Skipped           bool
	ConflictsFound    int
	ConflictsResolved int
	MappingStatus     models.MappingStatus
}

// ConflictResolver reconciles a remote payload against an existing local
// record once their fingerprints differ.
type ConflictResolver struct {
	refRepo      *repository.ReferenceRepository
	mappingRepo  *repository.MappingRepository
	conflictRepo *repository.ConflictRepository
	detector     *ChangeDetector
	logger       *utils.Logger
}

// NewConflictResolver creates a new ConflictResolver
func NewConflictResolver(
	refRepo *repository.ReferenceRepository,
	mappingRepo *repository.MappingRepository,
	conflictRepo *repository.ConflictRepository,
	detector *ChangeDetector,
) *ConflictResolver {
	return &ConflictResolver{
		refRepo:      refRepo,
		mappingRepo:  mappingRepo,
		conflictRepo: conflictRepo,
		detector:     detector,
		logger:       utils.NewLogger("ConflictResolver"),
	}
}

// DetectFieldConflicts compares the tracked fields. A conflict exists only
// where both sides are non-empty and differ; a one-sided value is "nothing
// to conflict".
func (r *ConflictResolver) DetectFieldConflicts(local *models.Reference, remote NormalizedReference) []FieldConflict {
	var conflicts []FieldConflict

	check := func(field, localVal, remoteVal string) {
		if localVal != "" && remoteVal != "" && localVal != remoteVal {
			conflicts = append(conflicts, FieldConflict{Field: field, LocalValue: localVal, RemoteValue: remoteVal})
		}
	}

	check("title", local.Title, remote.Title)
	check("abstract", local.Abstract, remote.Abstract)
	check("doi", local.DOI, remote.DOI)

	localYear, remoteYear := "", ""
	if local.PublicationYear > 0 {
		localYear = strconv.Itoa(local.PublicationYear)
	}
	if remote.Year > 0 {
		remoteYear = strconv.Itoa(remote.Year)
	}
	check("publication_year", localYear, remoteYear)

	return conflicts
}

// Reconcile applies the profile's conflict policy to one mapping. Every
// detected conflict is recorded for audit regardless of the strategy;
// `ask` defers the decision and leaves the local record untouched.
func (r *ConflictResolver) Reconcile(
	tracker *SessionTracker,
	policy models.ConflictPolicy,
	mapping *models.ReferenceMapping,
	local *models.Reference,
	remote NormalizedReference,
) (*ReconcileResult, error) {
	conflicts := r.DetectFieldConflicts(local, remote)
	result := &ReconcileResult{
		ConflictsFound: len(conflicts),
		MappingStatus:  models.MappingSynced,
	}

	resolved := policy != models.PolicyAsk
	for _, c := range conflicts {
		row := &models.ConflictResolution{
			SessionID:    tracker.SessionRowID(),
			MappingID:    mapping.ID,
			ConflictType: c.Field,
			LocalValue:   c.LocalValue,
			RemoteValue:  c.RemoteValue,
		}
		if resolved {
			resolution := string(policy)
			row.Resolution = &resolution
			row.ResolvedValue = r.resolvedValueFor(policy, c)
			row.ResolvedBy = "system"
			now := tracker.Now()
			row.ResolvedAt = &now
		}
		if err := r.conflictRepo.Create(row); err != nil {
			return nil, fmt.Errorf("failed to record conflict on %s: %w", c.Field, err)
		}
		tracker.Log("WARN", models.OpConflict,
			fmt.Sprintf("conflict on %s: local=%q remote=%q (policy=%s)", c.Field, c.LocalValue, c.RemoteValue, policy),
			&mapping.ID)
	}
	if resolved {
		result.ConflictsResolved = len(conflicts)
	}

	switch policy {
	case models.PolicyRemoteWins:
		r.applyRemote(local, remote)
		result.LocalChanged = true

	case models.PolicyLocalWins:
		// Keep local values; only the remote fingerprint advances so the
		// same diff is not reprocessed next run.

	case models.PolicyMerge:
		result.LocalChanged = r.applyMerge(local, remote)

	case models.PolicySkip:
		result.Skipped = true
		result.MappingStatus = models.MappingConflict

	case models.PolicyAsk:
		result.Skipped = true
		result.MappingStatus = models.MappingConflict

	default:
		return nil, fmt.Errorf("unknown conflict policy %q", policy)
	}

	if result.LocalChanged {
		if err := r.refRepo.Update(local); err != nil {
			return nil, fmt.Errorf("failed to persist reconciled reference %d: %w", local.ID, err)
		}
		if len(remote.Authors) > 0 && policy == models.PolicyRemoteWins {
			if err := r.refRepo.LinkAuthors(local.ID, remote.Authors); err != nil {
				return nil, fmt.Errorf("failed to relink authors for reference %d: %w", local.ID, err)
			}
			local.Authors = nil
			if refreshed, err := r.refRepo.GetByID(local.ID); err == nil {
				*local = *refreshed
			}
		}
	}

	// Refresh fingerprints for every outcome that leaves the mapping
	// synced; skip/ask leave hashes alone so the diff resurfaces.
	if result.MappingStatus == models.MappingSynced {
		localHash := r.detector.HashLocal(local)
		remoteHash := r.detector.HashRemote(remote)
		if err := r.mappingRepo.UpdateHashes(mapping.ID, localHash, remoteHash); err != nil {
			return nil, fmt.Errorf("failed to refresh hashes for mapping %d: %w", mapping.ID, err)
		}
		mapping.LocalHash = localHash
		mapping.RemoteHash = remoteHash
		mapping.SyncStatus = models.MappingSynced
	} else {
		if err := r.mappingRepo.UpdateStatus(mapping.ID, result.MappingStatus); err != nil {
			return nil, fmt.Errorf("failed to update mapping %d status: %w", mapping.ID, err)
		}
		mapping.SyncStatus = result.MappingStatus
	}

	// local_wins advances only the remote fingerprint.
	if policy == models.PolicyLocalWins {
		remoteHash := r.detector.HashRemote(remote)
		if err := r.mappingRepo.UpdateHashes(mapping.ID, mapping.LocalHash, remoteHash); err != nil {
			return nil, fmt.Errorf("failed to refresh remote hash for mapping %d: %w", mapping.ID, err)
		}
		mapping.RemoteHash = remoteHash
	}

	return result, nil
}

// resolvedValueFor reports the value a strategy settles on for one conflict.
func (r *ConflictResolver) resolvedValueFor(policy models.ConflictPolicy, c FieldConflict) string {
	switch policy {
	case models.PolicyRemoteWins:
		return c.RemoteValue
	case models.PolicyLocalWins, models.PolicyMerge:
		// merge keeps the local value for both-sided scalar conflicts.
		return c.LocalValue
	default:
		return ""
	}
}

// applyRemote overwrites local fields with the remote payload. Empty remote
// fields carry no information and are left alone.
func (r *ConflictResolver) applyRemote(local *models.Reference, remote NormalizedReference) {
	if remote.Title != "" {
		local.Title = remote.Title
	}
	if remote.Abstract != "" {
		local.Abstract = remote.Abstract
	}
	if remote.Year > 0 {
		local.PublicationYear = remote.Year
	}
	if remote.DOI != "" {
		local.DOI = remote.DOI
	}
	if remote.Journal != "" {
		local.Journal = normalizeJournalName(remote.Journal)
	}
	if remote.URL != "" {
		local.URL = remote.URL
	}
	if remote.Type != "" {
		local.ReferenceType = remote.Type
	}
	if len(remote.Keywords) > 0 {
		local.Keywords = normalizeKeywords(remote.Keywords)
	}
	if len(remote.Tags) > 0 {
		local.Tags = remote.Tags
	}
	if remote.Notes != "" {
		local.Notes = remote.Notes
	}
}

// applyMerge fills empty local fields from the remote side and unions
// keywords. Both-sided scalar disagreements keep the local value.
func (r *ConflictResolver) applyMerge(local *models.Reference, remote NormalizedReference) bool {
	changed := false

	if local.Title == "" && remote.Title != "" {
		local.Title = remote.Title
		changed = true
	}
	if local.Abstract == "" && remote.Abstract != "" {
		local.Abstract = remote.Abstract
		changed = true
	}
	if local.PublicationYear == 0 && remote.Year > 0 {
		local.PublicationYear = remote.Year
		changed = true
	}
	if local.DOI == "" && remote.DOI != "" {
		local.DOI = remote.DOI
		changed = true
	}
	if local.Journal == "" && remote.Journal != "" {
		local.Journal = normalizeJournalName(remote.Journal)
		changed = true
	}
	if local.URL == "" && remote.URL != "" {
		local.URL = remote.URL
		changed = true
	}
	if local.Notes == "" && remote.Notes != "" {
		local.Notes = remote.Notes
		changed = true
	}

	if len(remote.Keywords) > 0 {
		merged := MergeKeywords(local.Keywords, remote.Keywords)
		if !equalStringSlices(merged, local.Keywords) {
			local.Keywords = merged
			changed = true
		}
	}

	return changed
}

// MergeKeywords returns the sorted, de-duplicated union of both sides.
func MergeKeywords(local, remote []string) []string {
	set := make(map[string]bool, len(local)+len(remote))
	for _, kw := range local {
		if kw != "" {
			set[kw] = true
		}
	}
	for _, kw := range remote {
		if kw != "" {
			set[kw] = true
		}
	}
	merged := make([]string, 0, len(set))
	for kw := range set {
		merged = append(merged, kw)
	}
	sort.Strings(merged)
	return merged
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
