package services

import (
	"sync"
	"time"

	"refsync/internal/models"
	"refsync/internal/repository"
	"refsync/internal/utils"
)

// SessionTracker carries one session's persistent progress state through a
// sync run. Counter updates and log appends are best-effort: a tracking
// write failure must never abort the sync itself, so errors here are logged
// and swallowed. Pull workers increment concurrently, so the in-memory
// mirror is guarded by a mutex the same way the database side uses
// single-statement increments.
type SessionTracker struct {
	mu          sync.Mutex
	session     *models.SyncSession
	sessionRepo *repository.SyncSessionRepository
	logRepo     *repository.SyncLogRepository
	logger      *utils.Logger
}

// NewSessionTracker creates a new SessionTracker
func NewSessionTracker(
	session *models.SyncSession,
	sessionRepo *repository.SyncSessionRepository,
	logRepo *repository.SyncLogRepository,
) *SessionTracker {
	return &SessionTracker{
		session:     session,
		sessionRepo: sessionRepo,
		logRepo:     logRepo,
		logger:      utils.NewLogger("SessionTracker"),
	}
}

// SessionRowID returns the session's database primary key.
func (t *SessionTracker) SessionRowID() uint {
	return t.session.ID
}

// SessionID returns the session's public identifier.
func (t *SessionTracker) SessionID() string {
	return t.session.SessionID
}

// Session returns a snapshot of the tracked session with its in-memory
// counters. Safe to call while workers are still incrementing.
func (t *SessionTracker) Session() *models.SyncSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := *t.session
	return &snapshot
}

// Now returns the current time. Kept on the tracker so resolution
// timestamps line up with log timestamps.
func (t *SessionTracker) Now() time.Time {
	return time.Now()
}

// MarkRunning transitions the session from pending to running.
func (t *SessionTracker) MarkRunning() error {
	if err := t.sessionRepo.MarkRunning(t.session.ID); err != nil {
		return err
	}
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session.Status = models.SessionRunning
	t.session.StartedAt = &now
	return nil
}

// MarkCompleted transitions the session to its successful terminal state.
func (t *SessionTracker) MarkCompleted() error {
	if err := t.sessionRepo.MarkCompleted(t.session.ID); err != nil {
		return err
	}
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session.Status = models.SessionCompleted
	t.session.CompletedAt = &now
	return nil
}

// MarkFailed transitions the session to failed. Counters accumulated so far
// stay as they are so partial progress remains visible.
func (t *SessionTracker) MarkFailed(lastError string) error {
	if err := t.sessionRepo.MarkFailed(t.session.ID, lastError); err != nil {
		return err
	}
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session.Status = models.SessionFailed
	t.session.CompletedAt = &now
	t.session.LastError = lastError
	return nil
}

// Log appends one entry to the session's trail.
func (t *SessionTracker) Log(level string, op models.SyncOperation, message string, mappingID *uint) {
	entry := &models.SyncLog{
		SessionID: t.session.ID,
		Level:     level,
		Operation: op,
		Message:   message,
		MappingID: mappingID,
	}
	if err := t.logRepo.Append(entry); err != nil {
		t.logger.Warn("Failed to append session log (%s/%s): %v", level, op, err)
	}
}

// Increment adds delta to one session counter, both in the database and in
// the in-memory copy handed to progress observers.
func (t *SessionTracker) Increment(counter repository.SessionCounter, delta int) {
	if delta == 0 {
		return
	}
	if err := t.sessionRepo.Increment(t.session.ID, counter, delta); err != nil {
		t.logger.Warn("Failed to increment %s by %d: %v", counter, delta, err)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch counter {
	case repository.CounterTotalItems:
		t.session.TotalItems += delta
	case repository.CounterItemsProcessed:
		t.session.ItemsProcessed += delta
	case repository.CounterItemsCreated:
		t.session.ItemsCreated += delta
	case repository.CounterItemsUpdated:
		t.session.ItemsUpdated += delta
	case repository.CounterItemsSkipped:
		t.session.ItemsSkipped += delta
	case repository.CounterConflictsFound:
		t.session.ConflictsFound += delta
	case repository.CounterConflictsResolved:
		t.session.ConflictsResolved += delta
	case repository.CounterAPICallsMade:
		t.session.APICallsMade += delta
	}
}
