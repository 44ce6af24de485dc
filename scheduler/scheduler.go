// Package scheduler implements background job scheduling
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"ghostlore.app/aiservice"
	"ghostlore.app/config"
	"ghostlore.app/repository"
)

// recommendationRetention bounds how long stale AI suggestions are kept as
// fallback data before cleanup.
const recommendationRetention = 7 * 24 * time.Hour

// Scheduler manages periodic tasks for the application
type Scheduler struct {
	config          *config.Config
	ai              aiservice.ClientInterface
	recommendations *repository.RecommendationRepository
	quit            chan struct{}

	aiHealthy bool
}

// NewScheduler creates and configures a new task scheduler
func NewScheduler(cfg *config.Config, ai aiservice.ClientInterface, recommendations *repository.RecommendationRepository) *Scheduler {
	return &Scheduler{
		config:          cfg,
		ai:              ai,
		recommendations: recommendations,
		quit:            make(chan struct{}),
		aiHealthy:       true,
	}
}

// Start begins the scheduler's operations
func (s *Scheduler) Start() {
	probeInterval := time.Duration(s.config.AIService.ProbeInterval) * time.Second
	go s.scheduleInterval(probeInterval, s.probeAIService)
	go s.scheduleInterval(24*time.Hour, s.cleanupStaleRecommendations)
}

// Stop halts all scheduled jobs
func (s *Scheduler) Stop() {
	close(s.quit)
}

func (s *Scheduler) scheduleInterval(interval time.Duration, job func()) {
	job()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			job()
		case <-s.quit:
			return
		}
	}
}

// probeAIService tracks upstream availability and logs state transitions
// only, so a long outage does not flood the logs.
func (s *Scheduler) probeAIService() {
	timeout := time.Duration(s.config.AIService.HealthTimeout) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	healthy := s.ai.HealthCheck(ctx)
	if healthy != s.aiHealthy {
		if healthy {
			slog.Info("AI service recovered")
		} else {
			slog.Warn("AI service unavailable, recommendations will use stored fallback")
		}
		s.aiHealthy = healthy
	}
}

func (s *Scheduler) cleanupStaleRecommendations() {
	removed, err := s.recommendations.DeleteOlderThan(time.Now().Add(-recommendationRetention))
	if err != nil {
		slog.Error("Error cleaning up stale recommendations", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("Cleaned up stale recommendations", "removed", removed)
	}
}
