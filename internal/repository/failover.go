package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"breezbook/internal/domain"
	"breezbook/internal/models"

	"github.com/rs/zerolog"
)

// FailoverQuoteStore serves from primary and switches to fallback when primary
// errors. It retries primary once a minute while down.
type FailoverQuoteStore struct {
	primary   domain.QuoteStore
	fallback  domain.QuoteStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverQuoteStore(primary, fallback domain.QuoteStore, logger *zerolog.Logger) *FailoverQuoteStore {
	return &FailoverQuoteStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// domainErr reports errors that are answers rather than outages.
func domainErr(err error) bool {
	return errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrQuoteExpired)
}

func (r *FailoverQuoteStore) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary quote store failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// usePrimary is true while primary is healthy or when a recovery attempt is due.
func (r *FailoverQuoteStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > time.Minute {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverQuoteStore) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary quote store recovered")
	}
}

func (r *FailoverQuoteStore) SaveQuote(ctx context.Context, quote *models.Quote) error {
	if r.usePrimary() {
		err := r.primary.SaveQuote(ctx, quote)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SaveQuote(ctx, quote)
}

func (r *FailoverQuoteStore) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	if r.usePrimary() {
		quote, err := r.primary.GetQuote(ctx, id)
		if err == nil || domainErr(err) {
			r.recovered()
			if err != nil && errors.Is(err, models.ErrNotFound) {
				if fq, ferr := r.fallback.GetQuote(ctx, id); ferr == nil || errors.Is(ferr, models.ErrQuoteExpired) {
					return fq, ferr
				}
			}
			return quote, err
		}
		r.markDown(err)
	}
	return r.fallback.GetQuote(ctx, id)
}

func (r *FailoverQuoteStore) DeleteQuote(ctx context.Context, id string) error {
	// quotes written during an outage live in fallback
	_ = r.fallback.DeleteQuote(ctx, id)
	if r.usePrimary() {
		err := r.primary.DeleteQuote(ctx, id)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return nil
}

func (r *FailoverQuoteStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.recovered()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
