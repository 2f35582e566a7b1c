package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTripStatus(t *testing.T) {
	t.Run("Legacy Spellings", func(t *testing.T) {
		assert.Equal(t, TripStatusScheduled, NormalizeTripStatus("AGENDADA"))
		assert.Equal(t, TripStatusBoarding, NormalizeTripStatus("EMBARQUE"))
		assert.Equal(t, TripStatusInTransit, NormalizeTripStatus("EM_TRANSITO"))
		assert.Equal(t, TripStatusCompleted, NormalizeTripStatus("CONCLUIDA"))
		assert.Equal(t, TripStatusCancelled, NormalizeTripStatus("CANCELADA"))
		assert.Equal(t, TripStatusDelayed, NormalizeTripStatus("ATRASADA"))
	})

	t.Run("Canonical Passthrough", func(t *testing.T) {
		assert.Equal(t, TripStatusScheduled, NormalizeTripStatus("scheduled"))
		assert.Equal(t, TripStatusInTransit, NormalizeTripStatus("in_transit"))
	})
}

func TestLegacyTripStatusSpellings(t *testing.T) {
	spellings := LegacyTripStatusSpellings(TripStatusInTransit)
	assert.Contains(t, spellings, "in_transit")
	assert.Contains(t, spellings, "EM_TRANSITO")
	assert.Len(t, spellings, 2)
}

func TestTripDepartureAt(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	trip := Trip{
		DepartureDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		DepartureTime: "08:30",
	}

	t.Run("HH:MM Format", func(t *testing.T) {
		departure, err := trip.DepartureAt(loc)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 6, 15, 8, 30, 0, 0, loc), departure)
	})

	t.Run("HH:MM:SS Format", func(t *testing.T) {
		withSeconds := trip
		withSeconds.DepartureTime = "08:30:45"
		departure, err := withSeconds.DepartureAt(loc)
		require.NoError(t, err)
		assert.Equal(t, 45, departure.Second())
	})

	t.Run("Malformed Time", func(t *testing.T) {
		bad := trip
		bad.DepartureTime = "late morning"
		_, err := bad.DepartureAt(loc)
		assert.Error(t, err)
	})
}

func TestTripHasDeparted(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	trip := Trip{
		DepartureDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		DepartureTime: "08:30",
	}

	assert.False(t, trip.HasDeparted(time.Date(2025, 6, 15, 8, 0, 0, 0, loc), loc))
	assert.True(t, trip.HasDeparted(time.Date(2025, 6, 15, 8, 30, 0, 0, loc), loc))
	assert.True(t, trip.HasDeparted(time.Date(2025, 6, 15, 9, 0, 0, 0, loc), loc))
}
