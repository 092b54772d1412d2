package services

import (
	"fmt"
	"strconv"

	"refsync/internal/models"
	"refsync/internal/repository"
	"refsync/internal/utils"
)

// ResolutionService settles conflicts that a run deferred with the `ask`
// policy. The chosen value lands on the local record; the remote side picks
// it up on the next push once the mapping returns to synced.
type ResolutionService struct {
	refRepo      *repository.ReferenceRepository
	mappingRepo  *repository.MappingRepository
	conflictRepo *repository.ConflictRepository
	detector     *ChangeDetector
	logger       *utils.Logger
}

// NewResolutionService creates a new ResolutionService
func NewResolutionService(
	refRepo *repository.ReferenceRepository,
	mappingRepo *repository.MappingRepository,
	conflictRepo *repository.ConflictRepository,
	detector *ChangeDetector,
) *ResolutionService {
	return &ResolutionService{
		refRepo:      refRepo,
		mappingRepo:  mappingRepo,
		conflictRepo: conflictRepo,
		detector:     detector,
		logger:       utils.NewLogger("ResolutionService"),
	}
}

// ApplyResolution writes the chosen value to the local record, stamps the
// conflict, and flips the mapping back to synced once no pending conflicts
// remain on it.
func (s *ResolutionService) ApplyResolution(conflictID uint, resolvedValue, resolvedBy string) (*models.ConflictResolution, error) {
	conflict, err := s.conflictRepo.GetByID(conflictID)
	if err != nil {
		return nil, err
	}
	if !conflict.IsPending() {
		return nil, fmt.Errorf("conflict %d is already resolved", conflictID)
	}

	mapping, err := s.mappingRepo.GetByID(conflict.MappingID)
	if err != nil {
		return nil, err
	}
	local, err := s.refRepo.GetByID(mapping.ReferenceID)
	if err != nil {
		return nil, err
	}

	if err := applyFieldValue(local, conflict.ConflictType, resolvedValue); err != nil {
		return nil, err
	}
	if err := s.refRepo.Update(local); err != nil {
		return nil, fmt.Errorf("failed to persist resolved reference %d: %w", local.ID, err)
	}

	if err := s.conflictRepo.MarkResolved(conflictID, "manual", resolvedValue, resolvedBy); err != nil {
		return nil, fmt.Errorf("failed to stamp conflict %d: %w", conflictID, err)
	}

	pending, err := s.conflictRepo.CountPendingByMapping(mapping.ID)
	if err != nil {
		return nil, err
	}
	if pending == 0 {
		// Refresh only the local fingerprint; the remote one is still the
		// value observed when the conflict was detected, so the next run
		// pushes the decision out.
		localHash := s.detector.HashLocal(local)
		if err := s.mappingRepo.UpdateHashes(mapping.ID, localHash, mapping.RemoteHash); err != nil {
			return nil, fmt.Errorf("failed to refresh mapping %d: %w", mapping.ID, err)
		}
		s.logger.Info("Mapping %d fully resolved, back to synced", mapping.ID)
	}

	return s.conflictRepo.GetByID(conflictID)
}

// applyFieldValue writes a resolved value onto the field a conflict tracks.
func applyFieldValue(ref *models.Reference, field, value string) error {
	switch field {
	case "title":
		ref.Title = value
	case "abstract":
		ref.Abstract = value
	case "doi":
		ref.DOI = value
	case "publication_year":
		year, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("publication_year must be numeric: %w", err)
		}
		ref.PublicationYear = year
	default:
		return fmt.Errorf("unknown conflict field %q", field)
	}
	return nil
}
