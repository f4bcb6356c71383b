package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breezbook/internal/models"
)

func TestConcurrentCheckedBooking(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	seedTenant(t, db, "smarty")
	ctx := context.Background()

	// One van: the check admits a booking only while the date is empty.
	onlyOne := func(existing []models.Booking) error {
		if len(existing) > 0 {
			return models.ErrNotAvailable
		}
		return nil
	}

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			results <- db.CreateBookingChecked(ctx, exactBooking(fmt.Sprintf("b-%d", id), "10:00"), onlyOne)
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else {
			assert.ErrorIs(t, err, models.ErrNotAvailable)
		}
	}
	assert.Equal(t, 1, successCount, "only one booking should succeed")

	bookings, err := db.GetBookings(ctx, "smarty", testDate, testDate)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}
