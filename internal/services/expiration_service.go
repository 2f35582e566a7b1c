package services

import (
	"time"

	"github.com/rotasul/transport-backend/internal/database"
	"github.com/sirupsen/logrus"
)

// expirationBatchSize bounds how many stale reservations one pass processes.
const expirationBatchSize = 500

// ExpirationService expires stale PENDING reservations. Eligibility is one
// cross-tenant query with a defaulted per-tenant window; each row is then
// expired in its own transaction so a failing row cannot block the rest of
// the pass. Failed rows stay eligible and are retried on the next run.
type ExpirationService struct {
	reservationRepo *database.ReservationRepository
	defaultMinutes  int
	logger          *logrus.Logger
	now             func() time.Time
}

// NewExpirationService creates a new ExpirationService
func NewExpirationService(
	reservationRepo *database.ReservationRepository,
	defaultMinutes int,
	logger *logrus.Logger,
) *ExpirationService {
	return &ExpirationService{
		reservationRepo: reservationRepo,
		defaultMinutes:  defaultMinutes,
		logger:          logger,
		now:             time.Now,
	}
}

// ExpireStale runs one expiration pass and returns the number of reservations
// expired
func (s *ExpirationService) ExpireStale() (int, error) {
	stale, err := s.reservationRepo.FindStalePending(s.now(), s.defaultMinutes, expirationBatchSize)
	if err != nil {
		return 0, err
	}

	if len(stale) == 0 {
		return 0, nil
	}

	expired := 0
	for _, row := range stale {
		if _, err := s.reservationRepo.Expire(row.TenantID, row.ID); err != nil {
			// Guard miss means someone confirmed or cancelled it since the
			// eligibility query ran; anything else is transient and retried
			// naturally on the next pass.
			s.logger.WithError(err).WithFields(logrus.Fields{
				"tenant_id":      row.TenantID,
				"reservation_id": row.ID,
			}).Warn("Failed to expire reservation, skipping")
			continue
		}
		expired++
	}

	s.logger.WithFields(logrus.Fields{
		"eligible": len(stale),
		"expired":  expired,
	}).Info("Expired stale pending reservations")

	return expired, nil
}
