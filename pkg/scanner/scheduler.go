package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
)

// Scheduler runs the scanner's jobs on fixed intervals: source scans,
// market mirror sync, and cleanup.
type Scheduler struct {
	scanner *Scanner

	scanInterval    time.Duration
	syncInterval    time.Duration
	cleanupInterval time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// SchedulerConfig holds the job intervals
type SchedulerConfig struct {
	ScanInterval    time.Duration
	SyncInterval    time.Duration
	CleanupInterval time.Duration
}

// NewScheduler creates a scheduler for the given scanner
func NewScheduler(s *Scanner, cfg SchedulerConfig) *Scheduler {
	if cfg.ScanInterval == 0 {
		cfg.ScanInterval = 15 * time.Minute
	}
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = 30 * time.Minute
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 24 * time.Hour
	}

	return &Scheduler{
		scanner:         s,
		scanInterval:    cfg.ScanInterval,
		syncInterval:    cfg.SyncInterval,
		cleanupInterval: cfg.CleanupInterval,
	}
}

// Start begins the periodic jobs
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.scanWorker(ctx)

	s.wg.Add(1)
	go s.syncWorker(ctx)

	s.wg.Add(1)
	go s.cleanupWorker(ctx)

	lgr.Printf("[INFO] scheduler started: scan every %v, market sync every %v, cleanup every %v",
		s.scanInterval, s.syncInterval, s.cleanupInterval)
}

// Stop gracefully stops all workers
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// scanWorker periodically scans all sources
func (s *Scheduler) scanWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	// run immediately on start
	s.scanner.ScanAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanner.ScanAll(ctx)
		}
	}
}

// syncWorker periodically refreshes the market mirror
func (s *Scheduler) syncWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	if _, err := s.scanner.SyncMarkets(ctx); err != nil {
		lgr.Printf("[WARN] initial market sync failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.scanner.SyncMarkets(ctx); err != nil {
				lgr.Printf("[WARN] market sync failed: %v", err)
			}
		}
	}
}

// cleanupWorker periodically removes stale data
func (s *Scheduler) cleanupWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.scanner.Cleanup(ctx); err != nil {
				lgr.Printf("[WARN] cleanup failed: %v", err)
			}
		}
	}
}
