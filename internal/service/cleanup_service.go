package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// RoomCleaner removes expired rooms and reports how many were deleted.
type RoomCleaner interface {
	CleanupExpiredRooms(ctx context.Context) (int, error)
}

// CleanupService runs the cleaner once on Start and then on every interval
// until Stop is called. Each instance owns its own loop.
type CleanupService struct {
	cleaner  RoomCleaner
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewCleanupService(cleaner RoomCleaner, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupService{
		cleaner:  cleaner,
		interval: interval,
	}
}

// Start is a no-op when the loop is already running.
func (s *CleanupService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Printf("[Cleanup] service already running")
		return
	}

	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(s.stopCh, s.doneCh)
	log.Printf("[Cleanup] service started (interval: %s)", s.interval)
}

// Stop halts the loop and waits for an in-progress run to finish.
func (s *CleanupService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
	log.Printf("[Cleanup] service stopped")
}

func (s *CleanupService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *CleanupService) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-stopCh:
			return
		}
	}
}

// RunOnce performs a single cleanup pass and logs the outcome.
func (s *CleanupService) RunOnce(ctx context.Context) (int, error) {
	cleaned, err := s.cleaner.CleanupExpiredRooms(ctx)
	if err != nil {
		log.Printf("[Cleanup] failed to clean expired rooms: %v", err)
		return cleaned, err
	}
	if cleaned > 0 {
		log.Printf("[Cleanup] removed %d expired rooms", cleaned)
	}
	return cleaned, nil
}
