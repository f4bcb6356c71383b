package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"breezbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveQuote(ctx context.Context, quote *models.Quote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *mockStore) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

func (m *mockStore) DeleteQuote(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverQuoteStore(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverQuoteStore(primary, fallback, &logger)
	ctx := context.Background()
	quote := &models.Quote{ID: "q1"}

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("GetQuote", ctx, "q1").Return(quote, nil).Once()

		got, err := repo.GetQuote(ctx, "q1")
		assert.NoError(t, err)
		assert.Equal(t, quote, got)
		primary.AssertExpectations(t)
	})

	t.Run("NotFoundChecksFallback", func(t *testing.T) {
		primary.On("GetQuote", ctx, "q9").Return(nil, models.NotFound("quote", "q9")).Once()
		fallback.On("GetQuote", ctx, "q9").Return(nil, models.NotFound("quote", "q9")).Once()

		_, err := repo.GetQuote(ctx, "q9")
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		q2 := &models.Quote{ID: "q2"}
		primary.On("GetQuote", ctx, "q2").Return(nil, errors.New("connection refused")).Once()
		fallback.On("GetQuote", ctx, "q2").Return(q2, nil).Once()

		got, err := repo.GetQuote(ctx, "q2")
		assert.NoError(t, err)
		assert.Equal(t, q2, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SaveWhileDown", func(t *testing.T) {
		fallback.On("SaveQuote", ctx, quote).Return(nil).Once()

		assert.NoError(t, repo.SaveQuote(ctx, quote))
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.lastCheck = time.Now().Add(-2 * time.Minute)
		primary.On("CheckRateLimit", ctx, "k", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "k", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)
		primary.On("SaveQuote", ctx, quote).Return(errors.New("still down")).Once()
		fallback.On("SaveQuote", ctx, quote).Return(nil).Once()

		assert.NoError(t, repo.SaveQuote(ctx, quote))
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DeleteClearsBoth", func(t *testing.T) {
		repo.isDown.Store(false)
		fallback.On("DeleteQuote", ctx, "q1").Return(nil).Once()
		primary.On("DeleteQuote", ctx, "q1").Return(nil).Once()

		assert.NoError(t, repo.DeleteQuote(ctx, "q1"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RateLimitFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("CheckRateLimit", ctx, "k2", 10, time.Minute).Return(false, errors.New("fail")).Once()
		fallback.On("CheckRateLimit", ctx, "k2", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "k2", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.isDown.Load())
	})
}
