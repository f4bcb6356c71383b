package repository

import (
	"context"
	"testing"
	"time"

	"breezbook/internal/calendar"
	"breezbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuote(id string, expiresAt time.Time) *models.Quote {
	return &models.Quote{
		ID:        id,
		TenantID:  "carwash",
		ServiceID: "smallCarWash",
		Date:      calendar.MustParseIsoDate("2021-05-24"),
		StartTime: "11:00",
		AddOns:    []models.AddOnOrder{{AddOnID: "wax", Quantity: 1}},
		Total:     models.NewMoney(1750, "GBP"),
		CreatedAt: expiresAt.Add(-15 * time.Minute),
		ExpiresAt: expiresAt,
	}
}

func TestRedisQuoteStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	now := time.Date(2021, 5, 24, 8, 0, 0, 0, time.UTC)
	repo := NewRedisQuoteStore(client)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		quote := sampleQuote("q1", now.Add(15*time.Minute))
		require.NoError(t, repo.SaveQuote(ctx, quote))

		got, err := repo.GetQuote(ctx, "q1")
		require.NoError(t, err)
		assert.Equal(t, quote.Total, got.Total)
		assert.Equal(t, quote.Date, got.Date)
		assert.Equal(t, quote.AddOns, got.AddOns)
		assert.True(t, quote.ExpiresAt.Equal(got.ExpiresAt))

		assert.Equal(t, 15*time.Minute+expiredRetention, s.TTL(quoteKey("q1")))
	})

	t.Run("Expired", func(t *testing.T) {
		require.NoError(t, repo.SaveQuote(ctx, sampleQuote("q2", now.Add(-time.Minute))))

		got, err := repo.GetQuote(ctx, "q2")
		assert.ErrorIs(t, err, models.ErrQuoteExpired)
		require.NotNil(t, got)
		assert.Equal(t, "q2", got.ID)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := repo.GetQuote(ctx, "nope")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("EvictedAfterRetention", func(t *testing.T) {
		require.NoError(t, repo.SaveQuote(ctx, sampleQuote("q3", now.Add(time.Minute))))
		s.FastForward(time.Minute + expiredRetention + time.Second)

		_, err := repo.GetQuote(ctx, "q3")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.SaveQuote(ctx, sampleQuote("q4", now.Add(time.Minute))))
		require.NoError(t, repo.DeleteQuote(ctx, "q4"))

		_, err := repo.GetQuote(ctx, "q4")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "carwash:alice"
		window := time.Second

		allowed, err := repo.CheckRateLimit(ctx, key, 2, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, 2, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, 2, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(window + time.Millisecond)

		allowed, err = repo.CheckRateLimit(ctx, key, 2, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisQuoteStore(nil)
		_, err := repo.GetQuote(ctx, "q1")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("Close", func(t *testing.T) {
		assert.NoError(t, Close(client))
	})
}
