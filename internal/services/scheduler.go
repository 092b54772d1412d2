package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"refsync/internal/repository"
	"refsync/internal/utils"
)

// AutoSyncScheduler runs auto-sync profiles on their configured intervals.
// A watcher goroutine periodically reloads the profile set so enabling,
// disabling, or retuning a profile takes effect without a restart. Each
// profile gets its own ticker goroutine; runs for one profile never overlap
// because the worker executes them inline.
type AutoSyncScheduler struct {
	engine      *SyncEngine
	profileRepo *repository.SyncProfileRepository
	logger      *utils.Logger

	refreshInterval time.Duration

	running    bool
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex

	workers map[uint]*profileWorker
}

type profileWorker struct {
	interval time.Duration
	cancel   context.CancelFunc
}

// NewAutoSyncScheduler creates a new AutoSyncScheduler
func NewAutoSyncScheduler(engine *SyncEngine, profileRepo *repository.SyncProfileRepository) *AutoSyncScheduler {
	return &AutoSyncScheduler{
		engine:          engine,
		profileRepo:     profileRepo,
		logger:          utils.NewLogger("AutoSyncScheduler"),
		refreshInterval: 30 * time.Second,
		shutdownCh:      make(chan struct{}),
		workers:         make(map[uint]*profileWorker),
	}
}

// Start launches the watcher goroutine.
func (s *AutoSyncScheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.watchProfiles()

	s.logger.Info("Started")
	return nil
}

// Stop cancels all profile workers and waits for them to exit.
func (s *AutoSyncScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	for id, worker := range s.workers {
		worker.cancel()
		delete(s.workers, id)
	}
	s.mu.Unlock()

	close(s.shutdownCh)
	s.wg.Wait()

	s.logger.Info("Stopped")
}

// watchProfiles keeps the worker set aligned with the database.
func (s *AutoSyncScheduler) watchProfiles() {
	defer s.wg.Done()

	s.reconcileWorkers()
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdownCh:
			return
		case <-ticker.C:
			s.reconcileWorkers()
		}
	}
}

// reconcileWorkers starts workers for newly enabled profiles, restarts ones
// whose interval changed, and cancels workers for disabled profiles.
func (s *AutoSyncScheduler) reconcileWorkers() {
	profiles, err := s.profileRepo.GetAutoSyncProfiles()
	if err != nil {
		s.logger.Error("Failed to load auto-sync profiles: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	seen := make(map[uint]bool, len(profiles))
	for _, profile := range profiles {
		seen[profile.ID] = true
		interval := time.Duration(profile.SyncIntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = time.Hour
		}

		if worker, ok := s.workers[profile.ID]; ok {
			if worker.interval == interval {
				continue
			}
			worker.cancel()
			delete(s.workers, profile.ID)
			s.logger.Info("Profile %d interval changed, restarting worker", profile.ID)
		}

		ctx, cancel := context.WithCancel(context.Background())
		s.workers[profile.ID] = &profileWorker{interval: interval, cancel: cancel}
		s.wg.Add(1)
		go s.runProfileLoop(ctx, profile.ID, interval)
		s.logger.Info("Profile %d scheduled every %s", profile.ID, interval)
	}

	for id, worker := range s.workers {
		if !seen[id] {
			worker.cancel()
			delete(s.workers, id)
			s.logger.Info("Profile %d no longer auto-syncs, worker stopped", id)
		}
	}
}

// runProfileLoop fires one sync per tick. The run executes inline so a slow
// sync simply delays the next one instead of stacking up.
func (s *AutoSyncScheduler) runProfileLoop(ctx context.Context, profileID uint, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, profileID)
		}
	}
}

func (s *AutoSyncScheduler) runOnce(ctx context.Context, profileID uint) {
	// Reload so the run sees current policy, filters, and accounts.
	profile, err := s.profileRepo.GetByID(profileID)
	if err != nil {
		s.logger.Error("Failed to load profile %d: %v", profileID, err)
		return
	}
	if !profile.EnableAutoSync {
		return
	}

	session, err := s.engine.StartSession(profile, "scheduled")
	if err != nil {
		s.logger.Error("Failed to start scheduled session for profile %d: %v", profileID, err)
		return
	}
	if err := s.engine.Run(ctx, session, profile); err != nil {
		s.logger.Warn("Scheduled sync for profile %d ended with error: %v", profileID, err)
	}
}
