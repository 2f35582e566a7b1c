package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotasul/transport-backend/internal/database"
	"github.com/rotasul/transport-backend/internal/middleware"
	"github.com/rotasul/transport-backend/internal/services"
)

// stubTenant injects a tenant scope the way AuthMiddleware would
func stubTenant(tenantID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.TenantContextKey, &middleware.TenantContext{
			TenantID: tenantID,
			UserID:   uuid.New(),
			Roles:    []string{"operator"},
		})
		c.Next()
	}
}

func newReservationTestRouter(t *testing.T, tenantID uuid.UUID) (*gin.Engine, sqlmock.Sqlmock) {
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	reservationRepo := database.NewReservationRepository(sqlxDB)
	tripRepo := database.NewTripRepository(sqlxDB)
	seatRepo := database.NewSeatRepository(sqlxDB)
	parameterRepo := database.NewParameterRepository(sqlxDB)
	svc := services.NewReservationService(reservationRepo, tripRepo, seatRepo, parameterRepo, 5, logger)
	handler := NewReservationHandler(svc)

	router := gin.New()
	authed := router.Group("/api/v1", stubTenant(tenantID))
	authed.POST("/reservations", handler.Create)
	authed.POST("/reservations/:id/cancel", handler.Cancel)
	authed.POST("/reservations/:id/check-in", handler.CheckIn)
	authed.GET("/tickets/:code", handler.GetByTicketCode)
	return router, mock
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestReservationHandlerCreate(t *testing.T) {
	tenantID := uuid.New()
	tripID := uuid.New()
	seatID := uuid.New()

	body := map[string]interface{}{
		"trip_id":        tripID.String(),
		"seat_id":        seatID.String(),
		"passenger_name": "Maria Souza",
		"price":          89.90,
	}

	seatRow := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "tenant_id", "vehicle_id", "number", "deck", "position", "seat_class", "price", "created_at",
		}).AddRow(seatID, tenantID, uuid.New(), "12A", 1, nil, "executive", 89.90, time.Now())
	}

	t.Run("Created", func(t *testing.T) {
		router, mock := newReservationTestRouter(t, tenantID)

		mock.ExpectQuery(`FROM seats WHERE tenant_id`).
			WithArgs(tenantID, seatID).
			WillReturnRows(seatRow())
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`UPDATE trips`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`INSERT INTO reservations`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(`SELECT value FROM system_parameters`).
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("10"))

		w := doJSON(router, http.MethodPost, "/api/v1/reservations", body)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"pending"`)
		assert.Contains(t, w.Body.String(), `"ticket_code":"TK-`)
		assert.Contains(t, w.Body.String(), `"expires_at"`)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Seat Conflict Maps To 409", func(t *testing.T) {
		router, mock := newReservationTestRouter(t, tenantID)

		mock.ExpectQuery(`FROM seats WHERE tenant_id`).
			WithArgs(tenantID, seatID).
			WillReturnRows(seatRow())
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		w := doJSON(router, http.MethodPost, "/api/v1/reservations", body)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "seat_conflict")
	})

	t.Run("Sold Out Maps To 409", func(t *testing.T) {
		router, mock := newReservationTestRouter(t, tenantID)

		noSeat := map[string]interface{}{
			"trip_id":        tripID.String(),
			"passenger_name": "Maria Souza",
			"price":          89.90,
		}

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE trips`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		w := doJSON(router, http.MethodPost, "/api/v1/reservations", noSeat)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "no_seats_available")
	})

	t.Run("Invalid Body Maps To 400", func(t *testing.T) {
		router, _ := newReservationTestRouter(t, tenantID)

		w := doJSON(router, http.MethodPost, "/api/v1/reservations", map[string]interface{}{
			"trip_id":        "not-a-uuid",
			"passenger_name": "Maria Souza",
			"price":          89.90,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReservationHandlerCancel(t *testing.T) {
	tenantID := uuid.New()
	id := uuid.New()

	t.Run("Cancelled", func(t *testing.T) {
		router, mock := newReservationTestRouter(t, tenantID)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE reservations`).
			WillReturnRows(webhookReservationRow(id, tenantID, "cancelled"))
		mock.ExpectExec(`UPDATE trips`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := doJSON(router, http.MethodPost, "/api/v1/reservations/"+id.String()+"/cancel", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"cancelled"`)
	})

	t.Run("Already Cancelled Maps To 422", func(t *testing.T) {
		router, mock := newReservationTestRouter(t, tenantID)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE reservations`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT status FROM reservations`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("cancelled"))
		mock.ExpectRollback()

		w := doJSON(router, http.MethodPost, "/api/v1/reservations/"+id.String()+"/cancel", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "already_cancelled")
	})

	t.Run("Unknown Reservation Maps To 404", func(t *testing.T) {
		router, mock := newReservationTestRouter(t, tenantID)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE reservations`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT status FROM reservations`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		w := doJSON(router, http.MethodPost, "/api/v1/reservations/"+id.String()+"/cancel", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Malformed ID Maps To 400", func(t *testing.T) {
		router, _ := newReservationTestRouter(t, tenantID)

		w := doJSON(router, http.MethodPost, "/api/v1/reservations/abc/cancel", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReservationHandlerCheckIn(t *testing.T) {
	tenantID := uuid.New()
	id := uuid.New()

	t.Run("Checked In", func(t *testing.T) {
		router, mock := newReservationTestRouter(t, tenantID)

		mock.ExpectQuery(`UPDATE reservations`).
			WillReturnRows(webhookReservationRow(id, tenantID, "checked_in"))

		w := doJSON(router, http.MethodPost, "/api/v1/reservations/"+id.String()+"/check-in", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"checked_in"`)
	})

	t.Run("Pending Cannot Check In", func(t *testing.T) {
		router, mock := newReservationTestRouter(t, tenantID)

		mock.ExpectQuery(`UPDATE reservations`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT status FROM reservations`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))

		w := doJSON(router, http.MethodPost, "/api/v1/reservations/"+id.String()+"/check-in", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_transition")
	})
}

func TestReservationHandlerTicketLookup(t *testing.T) {
	tenantID := uuid.New()
	id := uuid.New()

	t.Run("Found", func(t *testing.T) {
		router, mock := newReservationTestRouter(t, tenantID)

		mock.ExpectQuery(`FROM reservations WHERE tenant_id`).
			WithArgs(tenantID, "TK-20250615-A1B2C3").
			WillReturnRows(webhookReservationRow(id, tenantID, "confirmed"))

		w := doJSON(router, http.MethodGet, "/api/v1/tickets/TK-20250615-A1B2C3", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "TK-20250615-A1B2C3")
	})

	t.Run("Not Found", func(t *testing.T) {
		router, mock := newReservationTestRouter(t, tenantID)

		mock.ExpectQuery(`FROM reservations WHERE tenant_id`).
			WithArgs(tenantID, "TK-20250615-FFFFFF").
			WillReturnError(sql.ErrNoRows)

		w := doJSON(router, http.MethodGet, "/api/v1/tickets/TK-20250615-FFFFFF", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
