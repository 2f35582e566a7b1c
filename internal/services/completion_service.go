package services

import (
	"time"

	"github.com/rotasul/transport-backend/internal/database"
	"github.com/sirupsen/logrus"
)

// CompletionService bulk-completes reservations on departed trips. It is a
// daily safety net independent of the trip-status transition, covering
// reservations whose trip completion was delayed or missed.
type CompletionService struct {
	reservationRepo *database.ReservationRepository
	defaultTimezone string
	logger          *logrus.Logger
	now             func() time.Time
}

// NewCompletionService creates a new CompletionService
func NewCompletionService(
	reservationRepo *database.ReservationRepository,
	defaultTimezone string,
	logger *logrus.Logger,
) *CompletionService {
	return &CompletionService{
		reservationRepo: reservationRepo,
		defaultTimezone: defaultTimezone,
		logger:          logger,
		now:             time.Now,
	}
}

// CompleteDeparted completes CONFIRMED and CHECKED_IN reservations whose trip
// has departed, returning the affected count
func (s *CompletionService) CompleteDeparted() (int64, error) {
	count, err := s.reservationRepo.CompleteDeparted(s.now(), s.defaultTimezone)
	if err != nil {
		return 0, err
	}

	s.logger.WithField("count", count).Info("Completed reservations on departed trips")
	return count, nil
}
