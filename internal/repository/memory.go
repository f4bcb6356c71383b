package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"breezbook/internal/models"
)

type MemoryQuoteStore struct {
	mu         sync.Mutex
	quotes     map[string]models.Quote
	rateLimits map[string]*rateLimitEntry
	now        func() time.Time
}

func NewMemoryQuoteStore() *MemoryQuoteStore {
	return &MemoryQuoteStore{
		quotes:     make(map[string]models.Quote),
		rateLimits: make(map[string]*rateLimitEntry),
		now:        time.Now,
	}
}

func (r *MemoryQuoteStore) SaveQuote(_ context.Context, quote *models.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	r.quotes[quote.ID] = *quote
	return nil
}

func (r *MemoryQuoteStore) GetQuote(_ context.Context, id string) (*models.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	quote, ok := r.quotes[id]
	if !ok {
		return nil, models.NotFound("quote", id)
	}
	if quote.Expired(r.now()) {
		return &quote, fmt.Errorf("quote %s: %w", id, models.ErrQuoteExpired)
	}
	return &quote, nil
}

func (r *MemoryQuoteStore) DeleteQuote(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.quotes, id)
	return nil
}

// pruneLocked drops quotes past their retention.
func (r *MemoryQuoteStore) pruneLocked() {
	cutoff := r.now().Add(-expiredRetention)
	for id, q := range r.quotes {
		if q.ExpiresAt.Before(cutoff) {
			delete(r.quotes, id)
		}
	}
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryQuoteStore) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
