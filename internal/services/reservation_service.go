package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotasul/transport-backend/internal/database"
	"github.com/rotasul/transport-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// ReservationService implements the interactive reservation operations. Every
// operation takes an explicit tenant id; there is no ambient tenant context.
type ReservationService struct {
	reservationRepo          *database.ReservationRepository
	tripRepo                 *database.TripRepository
	seatRepo                 *database.SeatRepository
	parameterRepo            *database.ParameterRepository
	defaultExpirationMinutes int
	logger                   *logrus.Logger
}

// NewReservationService creates a new ReservationService
func NewReservationService(
	reservationRepo *database.ReservationRepository,
	tripRepo *database.TripRepository,
	seatRepo *database.SeatRepository,
	parameterRepo *database.ParameterRepository,
	defaultExpirationMinutes int,
	logger *logrus.Logger,
) *ReservationService {
	return &ReservationService{
		reservationRepo:          reservationRepo,
		tripRepo:                 tripRepo,
		seatRepo:                 seatRepo,
		parameterRepo:            parameterRepo,
		defaultExpirationMinutes: defaultExpirationMinutes,
		logger:                   logger,
	}
}

// Create books a PENDING reservation for a trip, optionally bound to a seat.
// The seat may be identified by id or by its number on the trip's vehicle.
func (s *ReservationService) Create(tenantID uuid.UUID, req *models.CreateReservationRequest) (*models.Reservation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		return nil, fmt.Errorf("invalid trip id: %w", err)
	}

	seatID, err := s.resolveSeat(tenantID, tripID, req)
	if err != nil {
		return nil, err
	}

	reservation := &models.Reservation{
		TenantID:          tenantID,
		TripID:            tripID,
		SeatID:            seatID,
		PassengerName:     req.PassengerName,
		PassengerDocument: req.PassengerDocument,
		PassengerPhone:    req.PassengerPhone,
		PassengerEmail:    req.PassengerEmail,
		Price:             req.Price,
	}

	if err := s.reservationRepo.Create(reservation); err != nil {
		return nil, err
	}

	// Tell the caller when the unpaid hold lapses. A failed parameter read
	// falls back to the platform default rather than failing the booking.
	minutes, err := s.parameterRepo.GetInt(tenantID, models.ParamReservationExpirationMinutes, s.defaultExpirationMinutes)
	if err != nil {
		minutes = s.defaultExpirationMinutes
	}
	expiresAt := reservation.CreatedAt.Add(time.Duration(minutes) * time.Minute)
	reservation.ExpiresAt = &expiresAt

	s.logger.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"reservation_id": reservation.ID,
		"trip_id":        tripID,
		"ticket_code":    reservation.TicketCode,
	}).Info("Reservation created")

	return reservation, nil
}

// resolveSeat validates the requested seat against the trip's vehicle and
// returns its id, or nil for a seatless reservation
func (s *ReservationService) resolveSeat(tenantID, tripID uuid.UUID, req *models.CreateReservationRequest) (*uuid.UUID, error) {
	if req.SeatID == nil && req.SeatNumber == nil {
		return nil, nil
	}

	if req.SeatID != nil {
		id, err := uuid.Parse(*req.SeatID)
		if err != nil {
			return nil, fmt.Errorf("invalid seat id: %w", err)
		}
		seat, err := s.seatRepo.GetByID(tenantID, id)
		if err != nil {
			return nil, err
		}
		return &seat.ID, nil
	}

	trip, err := s.tripRepo.GetByID(tenantID, tripID)
	if err != nil {
		return nil, err
	}
	seat, err := s.seatRepo.GetByVehicleAndNumber(tenantID, trip.VehicleID, *req.SeatNumber)
	if err != nil {
		return nil, err
	}
	return &seat.ID, nil
}

// Cancel cancels a reservation and restores the trip's seat counter
func (s *ReservationService) Cancel(tenantID, reservationID uuid.UUID) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.Cancel(tenantID, reservationID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"reservation_id": reservationID,
	}).Info("Reservation cancelled")

	return reservation, nil
}

// ConfirmPayment records an interactive payment against a reservation,
// accumulating partial amounts
func (s *ReservationService) ConfirmPayment(tenantID, reservationID uuid.UUID, amount float64, method string) (*models.Reservation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	reservation, err := s.reservationRepo.ConfirmPayment(tenantID, reservationID, amount, method)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"reservation_id": reservationID,
		"amount":         amount,
		"amount_paid":    reservation.AmountPaid,
	}).Info("Payment confirmed")

	return reservation, nil
}

// CheckIn marks a confirmed passenger as boarded
func (s *ReservationService) CheckIn(tenantID, reservationID uuid.UUID) (*models.Reservation, error) {
	return s.reservationRepo.CheckIn(tenantID, reservationID)
}

// MarkNoShow marks a confirmed passenger who did not board
func (s *ReservationService) MarkNoShow(tenantID, reservationID uuid.UUID) (*models.Reservation, error) {
	return s.reservationRepo.MarkNoShow(tenantID, reservationID)
}

// GetByTicketCode looks a reservation up by its ticket code
func (s *ReservationService) GetByTicketCode(tenantID uuid.UUID, code string) (*models.Reservation, error) {
	return s.reservationRepo.GetByTicketCode(tenantID, code)
}
