package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"breezbook/internal/calendar"
	"breezbook/internal/config"
	"breezbook/internal/domain"
	"breezbook/internal/models"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) SaveTenant(ctx context.Context, id models.TenantID, file config.TenantFile) error {
	return m.Called(ctx, id, file).Error(0)
}
func (m *mockRepo) GetTenant(ctx context.Context, id models.TenantID) (*config.TenantFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*config.TenantFile), args.Error(1)
}
func (m *mockRepo) ListTenants(ctx context.Context) ([]models.TenantID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TenantID), args.Error(1)
}
func (m *mockRepo) GetBookings(ctx context.Context, tenant models.TenantID, from, to calendar.IsoDate) ([]models.Booking, error) {
	args := m.Called(ctx, tenant, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

// CreateBookingChecked runs check against the bookings the expectation returns.
func (m *mockRepo) CreateBookingChecked(ctx context.Context, b *models.Booking, check domain.BookingCheck) error {
	args := m.Called(ctx, b)
	if err := args.Error(1); err != nil {
		return err
	}
	existing, _ := args.Get(0).([]models.Booking)
	if err := check(existing); err != nil {
		return err
	}
	b.ID = "b-new"
	b.Version = 1
	return nil
}
func (m *mockRepo) CancelBooking(ctx context.Context, tenant models.TenantID, id models.BookingID, version int64) (*models.Booking, error) {
	args := m.Called(ctx, tenant, id, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) RecordQuote(ctx context.Context, q *models.Quote) error {
	return m.Called(ctx, q).Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveQuote(ctx context.Context, q *models.Quote) error {
	return m.Called(ctx, q).Error(0)
}
func (m *mockStore) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}
func (m *mockStore) DeleteQuote(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

var (
	monday = calendar.MustParseIsoDate("2021-05-24")
	now    = time.Date(2021, 5, 20, 12, 0, 0, 0, time.UTC)
)

func testOptions() EngineOptions {
	return EngineOptions{
		MaxRangeDays: 7,
		QuoteTTL:     15 * time.Minute,
		QuoteLimit:   5,
		QuoteWindow:  time.Hour,
		Currency:     "GBP",
		Location:     time.UTC,
		Clock:        calendar.FixedClock{At: now},
	}
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// vanTenant is one van working 09:00-18:00 every day, a one-hour wash at
// GBP 10.00 and a GBP 7.50 surcharge on 2021-05-24.
func vanTenant() *config.TenantFile {
	surcharge := int64(750)
	return &config.TenantFile{
		ID:       "smarty",
		Name:     "Smarty Wash",
		Currency: "GBP",
		BusinessHours: []config.HoursEntry{{
			Days:  []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
			Start: "09:00",
			End:   "18:00",
		}},
		Resources: []config.ResourceEntry{{ID: "van-1", Name: "Van 1", Type: "van"}},
		Services: []config.ServiceEntry{{
			ID:              "wash",
			Name:            "Wash",
			DurationMinutes: 60,
			Price:           1000,
			Requirements:    []config.RequirementEntry{{Type: "van"}},
			AddOns:          []string{"wax"},
		}},
		AddOns: []config.AddOnEntry{{ID: "wax", Name: "Wax", Price: 500}},
		PricingRules: []config.RuleEntry{{
			ID: "bank-holiday", Name: "Bank holiday", Amount: &surcharge, Date: "2021-05-24",
		}},
	}
}

func booked(id, start string) models.Booking {
	return models.Booking{
		ID:        models.BookingID(id),
		TenantID:  "smarty",
		ServiceID: "wash",
		Date:      monday,
		Start:     models.ExactTime(start),
		Status:    models.StatusConfirmed,
	}
}
