package domain

import (
	"context"
	"time"

	"breezbook/internal/calendar"
	"breezbook/internal/config"
	"breezbook/internal/models"
)

// Repository is the persistence the services depend on.
type Repository interface {
	SaveTenant(ctx context.Context, id models.TenantID, file config.TenantFile) error
	GetTenant(ctx context.Context, id models.TenantID) (*config.TenantFile, error)
	ListTenants(ctx context.Context) ([]models.TenantID, error)
	GetBookings(ctx context.Context, tenant models.TenantID, from, to calendar.IsoDate) ([]models.Booking, error)
	CreateBookingChecked(ctx context.Context, booking *models.Booking, check BookingCheck) error
	CancelBooking(ctx context.Context, tenant models.TenantID, id models.BookingID, version int64) (*models.Booking, error)
	RecordQuote(ctx context.Context, quote *models.Quote) error
}

// BookingCheck runs inside the booking transaction against the bookings
// already committed for the same date.
type BookingCheck func(existing []models.Booking) error

// QuoteStore keeps issued quotes until they expire.
type QuoteStore interface {
	SaveQuote(ctx context.Context, quote *models.Quote) error
	GetQuote(ctx context.Context, id string) (*models.Quote, error)
	DeleteQuote(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, tenantID, eventType string, payload interface{}) error
}
