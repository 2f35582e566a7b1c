package services

import (
	"time"

	"github.com/rotasul/transport-backend/internal/database"
	"github.com/sirupsen/logrus"
)

// LifecycleCounts reports how many trips each phase of a pass affected
type LifecycleCounts struct {
	Started     int64 `json:"started"`
	Completed   int64 `json:"completed"`
	Deactivated int64 `json:"deactivated"`
}

// TripLifecycleService drives automatic trip status transitions. The guards in
// the underlying statements make a pass re-entrant: a concurrent scheduler
// instance applying the same transition is a no-op.
type TripLifecycleService struct {
	tripRepo           *database.TripRepository
	defaultTimezone    string
	defaultMarginHours int
	logger             *logrus.Logger
	now                func() time.Time
}

// NewTripLifecycleService creates a new TripLifecycleService
func NewTripLifecycleService(
	tripRepo *database.TripRepository,
	defaultTimezone string,
	defaultMarginHours int,
	logger *logrus.Logger,
) *TripLifecycleService {
	return &TripLifecycleService{
		tripRepo:           tripRepo,
		defaultTimezone:    defaultTimezone,
		defaultMarginHours: defaultMarginHours,
		logger:             logger,
		now:                time.Now,
	}
}

// RunPass executes the unified lifecycle pass: start departed trips, complete
// arrived (or safety-margin overdue) trips, then deactivate any COMPLETED
// trips still flagged active. Phase errors do not abort the remaining phases.
func (s *TripLifecycleService) RunPass() (LifecycleCounts, error) {
	var counts LifecycleCounts
	var firstErr error
	now := s.now()

	started, err := s.tripRepo.StartDue(now, s.defaultTimezone)
	if err != nil {
		s.logger.WithError(err).Error("Trip start phase failed")
		firstErr = err
	}
	counts.Started = started

	completed, err := s.tripRepo.CompleteDue(now, s.defaultTimezone, s.defaultMarginHours)
	if err != nil {
		s.logger.WithError(err).Error("Trip completion phase failed")
		if firstErr == nil {
			firstErr = err
		}
	}
	counts.Completed = completed

	deactivated, err := s.tripRepo.DeactivateCompleted()
	if err != nil {
		s.logger.WithError(err).Error("Trip deactivation phase failed")
		if firstErr == nil {
			firstErr = err
		}
	}
	counts.Deactivated = deactivated

	s.logger.WithFields(logrus.Fields{
		"started":     counts.Started,
		"completed":   counts.Completed,
		"deactivated": counts.Deactivated,
	}).Info("Trip lifecycle pass finished")

	return counts, firstErr
}
