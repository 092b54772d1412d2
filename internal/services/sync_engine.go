package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"refsync/internal/config"
	"refsync/internal/models"
	"refsync/internal/repository"
	"refsync/internal/utils"

	"github.com/google/uuid"
)

// errBudgetExhausted stops an account's phase once its daily API budget is
// spent. It is not a run failure; the session continues with other accounts.
var errBudgetExhausted = errors.New("daily API budget exhausted")

// SyncEngine orchestrates sync runs: pull from each account, reconcile
// against local records, then push local changes back out.
type SyncEngine struct {
	cfg         config.SyncConfig
	accountRepo *repository.AccountRepository
	refRepo     *repository.ReferenceRepository
	mappingRepo *repository.MappingRepository
	sessionRepo *repository.SyncSessionRepository
	logRepo     *repository.SyncLogRepository
	resolver    *ConflictResolver
	detector    *ChangeDetector
	stats       *StatisticsAggregator
	adoptLocks  *keyLock
	logger      *utils.Logger
}

// keyLock serializes critical sections per string key. Entries are
// refcounted so the map does not grow with every key ever seen.
type keyLock struct {
	mu   sync.Mutex
	keys map[string]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{keys: make(map[string]*keyLockEntry)}
}

func (l *keyLock) lock(key string) {
	l.mu.Lock()
	entry, ok := l.keys[key]
	if !ok {
		entry = &keyLockEntry{}
		l.keys[key] = entry
	}
	entry.refs++
	l.mu.Unlock()
	entry.mu.Lock()
}

func (l *keyLock) unlock(key string) {
	l.mu.Lock()
	entry := l.keys[key]
	entry.refs--
	if entry.refs == 0 {
		delete(l.keys, key)
	}
	l.mu.Unlock()
	entry.mu.Unlock()
}

// NewSyncEngine creates a new SyncEngine
func NewSyncEngine(
	cfg config.SyncConfig,
	accountRepo *repository.AccountRepository,
	refRepo *repository.ReferenceRepository,
	mappingRepo *repository.MappingRepository,
	sessionRepo *repository.SyncSessionRepository,
	logRepo *repository.SyncLogRepository,
	resolver *ConflictResolver,
	detector *ChangeDetector,
	stats *StatisticsAggregator,
) *SyncEngine {
	return &SyncEngine{
		cfg:         cfg,
		accountRepo: accountRepo,
		refRepo:     refRepo,
		mappingRepo: mappingRepo,
		sessionRepo: sessionRepo,
		logRepo:     logRepo,
		resolver:    resolver,
		detector:    detector,
		stats:       stats,
		adoptLocks:  newKeyLock(),
		logger:      utils.NewLogger("SyncEngine"),
	}
}

// StartSession creates the pending session row for a run. The caller decides
// whether Run executes inline or on a goroutine.
func (e *SyncEngine) StartSession(profile *models.SyncProfile, trigger string) (*models.SyncSession, error) {
	if trigger == "" {
		trigger = "manual"
	}
	session := &models.SyncSession{
		SessionID: uuid.NewString(),
		ProfileID: profile.ID,
		UserID:    profile.UserID,
		Trigger:   trigger,
		Status:    models.SessionPending,
	}
	if err := e.sessionRepo.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create sync session: %w", err)
	}
	return session, nil
}

// syncTarget pairs one account with its constructed adapter for a run.
type syncTarget struct {
	account models.ReferenceManagerAccount
	adapter ServiceAdapter
}

// Run executes a session to a terminal state. Account-level failures
// (adapter construction, authentication, budget) skip that account and the
// run continues; the session fails only on infrastructure errors or panic.
func (e *SyncEngine) Run(ctx context.Context, session *models.SyncSession, profile *models.SyncProfile) (err error) {
	tracker := NewSessionTracker(session, e.sessionRepo, e.logRepo)

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("sync run panicked: %v", r)
			e.logger.ErrorWithStack(fmt.Errorf("%v", r), "sync run panicked (session=%s)", session.SessionID)
			if failErr := tracker.MarkFailed(msg); failErr != nil {
				e.logger.Error("Failed to mark session %s failed: %v", session.SessionID, failErr)
			}
			e.recordStatistics(tracker)
			err = fmt.Errorf("%s", msg)
		}
	}()

	if err := tracker.MarkRunning(); err != nil {
		return fmt.Errorf("failed to start session %s: %w", session.SessionID, err)
	}
	e.logger.Info("Session %s started (profile=%d trigger=%s)", session.SessionID, profile.ID, session.Trigger)

	targets := e.buildTargets(ctx, tracker, profile)
	if len(targets) == 0 {
		tracker.Log("WARN", models.OpFetch, "no usable accounts for this run", nil)
	}

	if profile.PullEnabled() {
		e.runPullPhase(ctx, tracker, profile, targets)
	}
	if profile.PushEnabled() {
		for _, target := range targets {
			if ctx.Err() != nil {
				break
			}
			e.pushAccount(ctx, tracker, profile, target)
		}
	}

	now := time.Now()
	for _, target := range targets {
		if err := e.accountRepo.UpdateLastSyncAt(target.account.ID, now); err != nil {
			e.logger.Warn("Failed to stamp last sync on account %d: %v", target.account.ID, err)
		}
	}

	if ctx.Err() != nil {
		msg := fmt.Sprintf("sync cancelled: %v", ctx.Err())
		tracker.Log("WARN", models.OpCleanup, msg, nil)
		if failErr := tracker.MarkFailed(msg); failErr != nil {
			e.logger.Error("Failed to mark session %s failed: %v", session.SessionID, failErr)
		}
		e.recordStatistics(tracker)
		return ctx.Err()
	}

	if err := tracker.MarkCompleted(); err != nil {
		return fmt.Errorf("failed to complete session %s: %w", session.SessionID, err)
	}
	e.recordStatistics(tracker)
	e.logger.Info("Session %s completed: %d created, %d updated, %d skipped, %d conflicts",
		session.SessionID, session.ItemsCreated, session.ItemsUpdated, session.ItemsSkipped, session.ConflictsFound)
	return nil
}

// buildTargets constructs and authenticates an adapter per active account.
// Accounts that cannot produce a working adapter are logged and dropped.
func (e *SyncEngine) buildTargets(ctx context.Context, tracker *SessionTracker, profile *models.SyncProfile) []syncTarget {
	var targets []syncTarget
	for _, account := range profile.ActiveAccounts() {
		adapter, err := NewServiceAdapter(account, e.cfg.AdapterTimeout)
		if err != nil {
			tracker.Log("ERROR", models.OpError,
				fmt.Sprintf("account %d (%s): adapter construction failed: %v", account.ID, account.Provider, err), nil)
			continue
		}

		if allowed, err := e.registerCall(tracker, account.ID); err != nil || !allowed {
			tracker.Log("WARN", models.OpError,
				fmt.Sprintf("account %d (%s): skipped, API budget exhausted", account.ID, account.Provider), nil)
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.AdapterTimeout)
		authErr := adapter.Authenticate(callCtx)
		cancel()
		if authErr != nil {
			tracker.Log("ERROR", models.OpError,
				fmt.Sprintf("account %d (%s): authentication failed: %v", account.ID, account.Provider, authErr), nil)
			continue
		}

		targets = append(targets, syncTarget{account: account, adapter: adapter})
	}
	return targets
}

// runPullPhase pulls all targets through a bounded worker pool. Counter
// updates go through single-statement increments, so workers never lose
// progress to each other.
func (e *SyncEngine) runPullPhase(ctx context.Context, tracker *SessionTracker, profile *models.SyncProfile, targets []syncTarget) {
	if len(targets) == 0 {
		return
	}
	workers := e.cfg.MaxPullWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(targets) {
		workers = len(targets)
	}

	queue := make(chan syncTarget)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range queue {
				e.pullAccount(ctx, tracker, profile, target)
			}
		}()
	}
	for _, target := range targets {
		queue <- target
	}
	close(queue)
	wg.Wait()
}

// pullAccount imports one account's collections. A collection-level failure
// is logged and the remaining collections still run.
func (e *SyncEngine) pullAccount(ctx context.Context, tracker *SessionTracker, profile *models.SyncProfile, target syncTarget) {
	account := target.account

	collections, err := e.fetchCollections(ctx, tracker, target)
	if err != nil {
		tracker.Log("ERROR", models.OpFetch,
			fmt.Sprintf("account %d (%s): failed to list collections: %v", account.ID, account.Provider, err), nil)
		return
	}

	selected := selectCollections(collections, profile.SyncCollections)
	if len(selected) == 0 {
		tracker.Log("INFO", models.OpFetch,
			fmt.Sprintf("account %d (%s): no collections matched the profile filter", account.ID, account.Provider), nil)
		return
	}

	for _, collection := range selected {
		if ctx.Err() != nil {
			return
		}
		if err := e.pullCollection(ctx, tracker, profile, target, collection); err != nil {
			if errors.Is(err, errBudgetExhausted) {
				tracker.Log("WARN", models.OpFetch,
					fmt.Sprintf("account %d (%s): API budget exhausted mid-pull", account.ID, account.Provider), nil)
				return
			}
			tracker.Log("ERROR", models.OpFetch,
				fmt.Sprintf("account %d (%s): collection %q failed: %v", account.ID, account.Provider, collection.Name, err), nil)
		}
	}
}

func (e *SyncEngine) fetchCollections(ctx context.Context, tracker *SessionTracker, target syncTarget) ([]Collection, error) {
	if allowed, err := e.registerCall(tracker, target.account.ID); err != nil {
		return nil, err
	} else if !allowed {
		return nil, errBudgetExhausted
	}
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.AdapterTimeout)
	defer cancel()
	return target.adapter.GetCollections(callCtx)
}

// selectCollections applies the profile's collection filter, matching either
// provider id or display name. An empty filter selects everything.
func selectCollections(collections []Collection, filter models.StringSlice) []Collection {
	if len(filter) == 0 {
		return collections
	}
	wanted := make(map[string]bool, len(filter))
	for _, f := range filter {
		wanted[f] = true
	}
	var selected []Collection
	for _, c := range collections {
		if wanted[c.ID] || wanted[c.Name] {
			selected = append(selected, c)
		}
	}
	return selected
}

// pullCollection pages through one collection and processes every record.
func (e *SyncEngine) pullCollection(ctx context.Context, tracker *SessionTracker, profile *models.SyncProfile, target syncTarget, collection Collection) error {
	pageSize := e.cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	for offset := 0; ; offset += pageSize {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if allowed, err := e.registerCall(tracker, target.account.ID); err != nil {
			return err
		} else if !allowed {
			return errBudgetExhausted
		}

		callCtx, cancel := context.WithTimeout(ctx, e.cfg.AdapterTimeout)
		page, err := target.adapter.GetReferences(callCtx, collection.ID, pageSize, offset)
		cancel()
		if err != nil {
			return err
		}

		tracker.Log("DEBUG", models.OpFetch,
			fmt.Sprintf("account %d: fetched %d items from %q at offset %d", target.account.ID, len(page), collection.Name, offset), nil)

		// Every fetched item lands in exactly one of created/updated/skipped
		// so the totals add up once the session completes. Item-level
		// failures count as skipped and the pull continues.
		for i := range page {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			tracker.Increment(repository.CounterTotalItems, 1)
			if err := e.processPulledItem(tracker, profile, target.account, page[i]); err != nil {
				tracker.Increment(repository.CounterItemsSkipped, 1)
				tracker.Log("ERROR", models.OpError,
					fmt.Sprintf("account %d: item %q failed: %v", target.account.ID, page[i].ExternalID, err), nil)
			}
			tracker.Increment(repository.CounterItemsProcessed, 1)
		}

		if len(page) < pageSize {
			return nil
		}
	}
}

// processPulledItem reconciles one remote record with local state.
func (e *SyncEngine) processPulledItem(tracker *SessionTracker, profile *models.SyncProfile, account models.ReferenceManagerAccount, remote NormalizedReference) error {
	if remote.ExternalID == "" {
		return errors.New("remote record has no external id")
	}
	remoteHash := e.detector.HashRemote(remote)

	mapping, err := e.mappingRepo.GetByKey(account.Provider, remote.ExternalID, account.ID)
	if err != nil {
		return fmt.Errorf("mapping lookup failed: %w", err)
	}

	if mapping == nil {
		return e.adoptRemoteItem(tracker, profile, account, remote, remoteHash)
	}

	// Fast path: remote fingerprint unchanged since the last run, nothing
	// to reconcile.
	if mapping.RemoteHash == remoteHash {
		tracker.Increment(repository.CounterItemsSkipped, 1)
		return nil
	}

	local, err := e.refRepo.GetByID(mapping.ReferenceID)
	if err != nil {
		return fmt.Errorf("local record %d missing for mapping %d: %w", mapping.ReferenceID, mapping.ID, err)
	}

	// Both sides may have converged to the same content independently.
	if e.detector.HashLocal(local) == remoteHash {
		if err := e.mappingRepo.UpdateHashes(mapping.ID, remoteHash, remoteHash); err != nil {
			return err
		}
		tracker.Increment(repository.CounterItemsSkipped, 1)
		return nil
	}

	result, err := e.resolver.Reconcile(tracker, profile.ConflictPolicy, mapping, local, remote)
	if err != nil {
		return err
	}
	e.applyReconcileCounters(tracker, result)
	if result.LocalChanged {
		tracker.Log("INFO", models.OpUpdate,
			fmt.Sprintf("updated local record %d from %s item %s", local.ID, account.Provider, remote.ExternalID), &mapping.ID)
	}
	return nil
}

// adoptRemoteItem handles a remote record with no mapping yet: link it to an
// existing local record when the DOI already exists, otherwise import it as
// a new one.
func (e *SyncEngine) adoptRemoteItem(tracker *SessionTracker, profile *models.SyncProfile, account models.ReferenceManagerAccount, remote NormalizedReference, remoteHash string) error {
	// Serialize the get-or-create per (user, DOI) so parallel pull workers
	// seeing the same DOI through different accounts cannot both miss the
	// lookup and import it twice.
	if remote.DOI != "" {
		key := fmt.Sprintf("%d/%s", profile.UserID, remote.DOI)
		e.adoptLocks.lock(key)
		defer e.adoptLocks.unlock(key)
	}

	existing, err := e.refRepo.GetByDOI(profile.UserID, remote.DOI)
	if err != nil {
		return fmt.Errorf("DOI lookup failed: %w", err)
	}

	if existing != nil {
		mapping := &models.ReferenceMapping{
			ReferenceID: existing.ID,
			AccountID:   account.ID,
			Service:     account.Provider,
			ExternalID:  remote.ExternalID,
			SyncStatus:  models.MappingSynced,
		}
		if err := e.mappingRepo.Upsert(mapping); err != nil {
			return fmt.Errorf("failed to create mapping: %w", err)
		}
		tracker.Log("INFO", models.OpCreate,
			fmt.Sprintf("linked %s item %s to existing record %d via DOI %s", account.Provider, remote.ExternalID, existing.ID, remote.DOI), &mapping.ID)

		if e.detector.HashLocal(existing) == remoteHash {
			if err := e.mappingRepo.UpdateHashes(mapping.ID, remoteHash, remoteHash); err != nil {
				return err
			}
			tracker.Increment(repository.CounterItemsSkipped, 1)
			return nil
		}
		result, err := e.resolver.Reconcile(tracker, profile.ConflictPolicy, mapping, existing, remote)
		if err != nil {
			return err
		}
		e.applyReconcileCounters(tracker, result)
		return nil
	}

	ref := &models.Reference{
		Title:           remote.Title,
		Abstract:        remote.Abstract,
		PublicationYear: remote.Year,
		Journal:         normalizeJournalName(remote.Journal),
		DOI:             remote.DOI,
		URL:             remote.URL,
		ReferenceType:   remote.Type,
		Keywords:        normalizeKeywords(remote.Keywords),
		Tags:            remote.Tags,
		Notes:           remote.Notes,
		SavedByID:       profile.UserID,
	}
	if ref.ReferenceType == "" {
		ref.ReferenceType = "journal_article"
	}
	if err := e.refRepo.Create(ref); err != nil {
		return fmt.Errorf("failed to create local record: %w", err)
	}
	if len(remote.Authors) > 0 {
		if err := e.refRepo.LinkAuthors(ref.ID, remote.Authors); err != nil {
			return fmt.Errorf("failed to link authors: %w", err)
		}
	}
	// Reload so the local fingerprint includes the linked authors.
	created, err := e.refRepo.GetByID(ref.ID)
	if err != nil {
		return err
	}

	mapping := &models.ReferenceMapping{
		ReferenceID: created.ID,
		AccountID:   account.ID,
		Service:     account.Provider,
		ExternalID:  remote.ExternalID,
		LocalHash:   e.detector.HashLocal(created),
		RemoteHash:  remoteHash,
		SyncStatus:  models.MappingSynced,
	}
	if err := e.mappingRepo.Upsert(mapping); err != nil {
		return fmt.Errorf("failed to create mapping: %w", err)
	}

	tracker.Increment(repository.CounterItemsCreated, 1)
	tracker.Log("INFO", models.OpCreate,
		fmt.Sprintf("imported %s item %s as record %d", account.Provider, remote.ExternalID, created.ID), &mapping.ID)
	return nil
}

func (e *SyncEngine) applyReconcileCounters(tracker *SessionTracker, result *ReconcileResult) {
	tracker.Increment(repository.CounterConflictsFound, result.ConflictsFound)
	tracker.Increment(repository.CounterConflictsResolved, result.ConflictsResolved)
	// One outcome bucket per item: a reconcile that leaves the local record
	// untouched (skip, ask, local_wins, no-op merge) counts as skipped.
	if result.LocalChanged {
		tracker.Increment(repository.CounterItemsUpdated, 1)
	} else {
		tracker.Increment(repository.CounterItemsSkipped, 1)
	}
}

// pushAccount exports local changes to one account. Read-only providers are
// skipped; mappings with pending conflicts are left alone until resolved.
func (e *SyncEngine) pushAccount(ctx context.Context, tracker *SessionTracker, profile *models.SyncProfile, target syncTarget) {
	account := target.account

	if ro, ok := target.adapter.(ReadOnlyAdapter); ok && ro.ReadOnly() {
		tracker.Log("INFO", models.OpCleanup,
			fmt.Sprintf("account %d (%s): read-only provider, push skipped", account.ID, account.Provider), nil)
		return
	}

	filter := repository.SyncItemsFilter{
		UserID:      profile.UserID,
		After:       profile.SyncAfterDate,
		Before:      profile.SyncBeforeDate,
		IncludeTags: profile.SyncTags,
		ExcludeTags: profile.ExcludeTags,
		Limit:       e.cfg.PushItemCap,
	}
	refs, err := e.refRepo.FindForSync(filter)
	if err != nil {
		tracker.Log("ERROR", models.OpError,
			fmt.Sprintf("account %d: failed to load push candidates: %v", account.ID, err), nil)
		return
	}

	// Same accounting as the pull phase: each candidate lands in exactly
	// one of created/updated/skipped, failures included.
	for i := range refs {
		if ctx.Err() != nil {
			return
		}
		tracker.Increment(repository.CounterTotalItems, 1)
		err := e.pushItem(ctx, tracker, target, &refs[i])
		if err != nil {
			tracker.Increment(repository.CounterItemsSkipped, 1)
		}
		tracker.Increment(repository.CounterItemsProcessed, 1)
		if err != nil {
			if errors.Is(err, errBudgetExhausted) {
				tracker.Log("WARN", models.OpError,
					fmt.Sprintf("account %d (%s): API budget exhausted mid-push", account.ID, account.Provider), nil)
				return
			}
			tracker.Log("ERROR", models.OpError,
				fmt.Sprintf("account %d: push of record %d failed: %v", account.ID, refs[i].ID, err), nil)
		}
	}
}

// pushItem creates or updates one local record on the remote side.
func (e *SyncEngine) pushItem(ctx context.Context, tracker *SessionTracker, target syncTarget, ref *models.Reference) error {
	account := target.account
	localHash := e.detector.HashLocal(ref)

	mapping, err := e.mappingRepo.GetByReferenceAndAccount(ref.ID, account.ID)
	if err != nil {
		return fmt.Errorf("mapping lookup failed: %w", err)
	}

	if mapping == nil {
		if allowed, err := e.registerCall(tracker, account.ID); err != nil {
			return err
		} else if !allowed {
			return errBudgetExhausted
		}
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.AdapterTimeout)
		created, err := target.adapter.CreateReference(callCtx, normalizedFromReference(ref))
		cancel()
		if err != nil {
			return fmt.Errorf("remote create failed: %w", err)
		}
		if created == nil || created.ExternalID == "" {
			return errors.New("remote create returned no external id")
		}

		newMapping := &models.ReferenceMapping{
			ReferenceID: ref.ID,
			AccountID:   account.ID,
			Service:     account.Provider,
			ExternalID:  created.ExternalID,
			LocalHash:   localHash,
			RemoteHash:  e.detector.HashRemote(*created),
			SyncStatus:  models.MappingSynced,
		}
		if err := e.mappingRepo.Upsert(newMapping); err != nil {
			return fmt.Errorf("failed to record mapping: %w", err)
		}

		tracker.Increment(repository.CounterItemsCreated, 1)
		tracker.Log("INFO", models.OpCreate,
			fmt.Sprintf("exported record %d to %s as %s", ref.ID, account.Provider, created.ExternalID), &newMapping.ID)
		return nil
	}

	if mapping.SyncStatus == models.MappingConflict {
		tracker.Increment(repository.CounterItemsSkipped, 1)
		tracker.Log("WARN", models.OpConflict,
			fmt.Sprintf("record %d has pending conflicts on %s, push deferred", ref.ID, account.Provider), &mapping.ID)
		return nil
	}

	// Unchanged since the last sync, nothing to push.
	if mapping.LocalHash == localHash {
		tracker.Increment(repository.CounterItemsSkipped, 1)
		return nil
	}

	if allowed, err := e.registerCall(tracker, account.ID); err != nil {
		return err
	} else if !allowed {
		return errBudgetExhausted
	}
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.AdapterTimeout)
	updated, err := target.adapter.UpdateReference(callCtx, mapping.ExternalID, normalizedFromReference(ref))
	cancel()
	if err != nil {
		return fmt.Errorf("remote update failed: %w", err)
	}
	if updated == nil {
		return errors.New("remote update returned no payload")
	}

	if err := e.mappingRepo.UpdateHashes(mapping.ID, localHash, e.detector.HashRemote(*updated)); err != nil {
		return fmt.Errorf("failed to refresh hashes: %w", err)
	}

	tracker.Increment(repository.CounterItemsUpdated, 1)
	tracker.Log("INFO", models.OpUpdate,
		fmt.Sprintf("pushed record %d changes to %s item %s", ref.ID, account.Provider, mapping.ExternalID), &mapping.ID)
	return nil
}

// registerCall reserves one unit of the account's daily API budget and
// bumps the session counter when the reservation succeeds.
func (e *SyncEngine) registerCall(tracker *SessionTracker, accountID uint) (bool, error) {
	allowed, err := e.accountRepo.RegisterAPICall(accountID)
	if err != nil {
		return false, fmt.Errorf("failed to register API call: %w", err)
	}
	if allowed {
		tracker.Increment(repository.CounterAPICallsMade, 1)
	}
	return allowed, nil
}

func (e *SyncEngine) recordStatistics(tracker *SessionTracker) {
	if e.stats == nil {
		return
	}
	if err := e.stats.Record(tracker.Session()); err != nil {
		e.logger.Warn("Failed to record statistics for session %s: %v", tracker.SessionID(), err)
	}
}

// normalizedFromReference converts a local record to the adapter contract.
// Authors must be loaded.
func normalizedFromReference(ref *models.Reference) NormalizedReference {
	return NormalizedReference{
		Title:    ref.Title,
		Abstract: ref.Abstract,
		Authors:  ref.AuthorNames(),
		Year:     ref.PublicationYear,
		Journal:  ref.Journal,
		DOI:      ref.DOI,
		URL:      ref.URL,
		Type:     ref.ReferenceType,
		Keywords: ref.Keywords,
		Tags:     ref.Tags,
		Notes:    ref.Notes,
	}
}
