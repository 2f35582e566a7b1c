package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotasul/transport-backend/internal/config"
	"github.com/sirupsen/logrus"
)

// LifecycleRunner runs the unified trip lifecycle pass
type LifecycleRunner interface {
	RunPass() (LifecycleCounts, error)
}

// ReservationExpirer expires stale pending reservations
type ReservationExpirer interface {
	ExpireStale() (int, error)
}

// ReservationCompleter bulk-completes reservations on departed trips
type ReservationCompleter interface {
	CompleteDeparted() (int64, error)
}

// SchedulerService manages the recurring lifecycle jobs
type SchedulerService struct {
	cron      *cron.Cron
	cfg       config.SchedulerConfig
	lifecycle LifecycleRunner
	expirer   ReservationExpirer
	completer ReservationCompleter
	logger    *logrus.Logger
}

// NewSchedulerService creates a new SchedulerService
func NewSchedulerService(
	cfg config.SchedulerConfig,
	lifecycle LifecycleRunner,
	expirer ReservationExpirer,
	completer ReservationCompleter,
	logger *logrus.Logger,
) *SchedulerService {
	return &SchedulerService{
		cron:      cron.New(cron.WithSeconds()),
		cfg:       cfg,
		lifecycle: lifecycle,
		expirer:   expirer,
		completer: completer,
		logger:    logger,
	}
}

// Start registers and starts all recurring jobs
func (s *SchedulerService) Start() error {
	// Lifecycle pass: expire stale reservations, then advance trip statuses
	_, err := s.cron.AddFunc(s.cfg.LifecycleSpec, func() { s.lifecycleJob() })
	if err != nil {
		return fmt.Errorf("failed to schedule lifecycle job: %w", err)
	}

	// Daily sweep: bulk-complete reservations on departed trips
	_, err = s.cron.AddFunc(s.cfg.DailyCompleteSpec, func() { s.dailyCompletionJob() })
	if err != nil {
		return fmt.Errorf("failed to schedule daily completion job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"lifecycle_spec":      s.cfg.LifecycleSpec,
		"daily_complete_spec": s.cfg.DailyCompleteSpec,
	}).Info("Lifecycle scheduler started")

	return nil
}

// Stop stops the scheduler, waiting for running jobs to finish
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Lifecycle scheduler stopped")
}

// LifecycleSummary reports the outcome of one lifecycle job run
type LifecycleSummary struct {
	Expired int             `json:"expired"`
	Trips   LifecycleCounts `json:"trips"`
}

func (s *SchedulerService) lifecycleJob() (LifecycleSummary, error) {
	startTime := time.Now()

	var summary LifecycleSummary
	var firstErr error

	expired, err := s.expirer.ExpireStale()
	if err != nil {
		s.logger.WithError(err).Error("Reservation expiration pass failed")
		firstErr = err
	}
	summary.Expired = expired

	counts, err := s.lifecycle.RunPass()
	if err != nil {
		s.logger.WithError(err).Error("Trip lifecycle pass reported errors")
		if firstErr == nil {
			firstErr = err
		}
	}
	summary.Trips = counts

	s.logger.WithFields(logrus.Fields{
		"expired":     expired,
		"started":     counts.Started,
		"completed":   counts.Completed,
		"deactivated": counts.Deactivated,
		"duration":    time.Since(startTime).String(),
	}).Info("Lifecycle job finished")

	return summary, firstErr
}

func (s *SchedulerService) dailyCompletionJob() (int64, error) {
	startTime := time.Now()

	count, err := s.completer.CompleteDeparted()
	if err != nil {
		s.logger.WithError(err).Error("Daily reservation completion failed")
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"completed": count,
		"duration":  time.Since(startTime).String(),
	}).Info("Daily completion job finished")

	return count, nil
}

// RunLifecycleNow runs the lifecycle job immediately (manual trigger)
func (s *SchedulerService) RunLifecycleNow() (LifecycleSummary, error) {
	return s.lifecycleJob()
}

// RunDailyCompletionNow runs the daily completion job immediately
func (s *SchedulerService) RunDailyCompletionNow() (int64, error) {
	return s.dailyCompletionJob()
}

// JobStatus describes one scheduled job for the admin status endpoint
type JobStatus struct {
	ID      cron.EntryID `json:"id"`
	NextRun time.Time    `json:"next_run"`
	PrevRun time.Time    `json:"prev_run"`
}

// GetJobStatus returns the status of scheduled jobs
func (s *SchedulerService) GetJobStatus() []JobStatus {
	entries := s.cron.Entries()
	jobs := make([]JobStatus, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, JobStatus{
			ID:      entry.ID,
			NextRun: entry.Next,
			PrevRun: entry.Prev,
		})
	}
	return jobs
}
