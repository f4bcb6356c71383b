package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"breezbook/internal/calendar"
	"breezbook/internal/domain"
	"breezbook/internal/events"
	"breezbook/internal/metrics"
	"breezbook/internal/models"
	"breezbook/internal/pricing"
)

// QuoteRequest names one slot. Exactly one of TimeslotID and StartTime is set.
type QuoteRequest struct {
	ServiceID  models.ServiceID
	CustomerID models.CustomerID
	Date       calendar.IsoDate
	TimeslotID models.TimeslotID
	StartTime  string
	AddOns     []models.AddOnOrder
	Options    []models.OptionOrder
}

// Booking is the booking the request would create.
func (r QuoteRequest) Booking(tenantID models.TenantID) (models.Booking, error) {
	b := models.Booking{
		TenantID:   tenantID,
		CustomerID: r.CustomerID,
		ServiceID:  r.ServiceID,
		Date:       r.Date,
		AddOns:     r.AddOns,
		Options:    r.Options,
	}
	switch {
	case r.TimeslotID != "" && r.StartTime != "":
		return models.Booking{}, models.Precondition("start_time", "give either a timeslot or a start time", nil)
	case r.TimeslotID != "":
		b.Start = models.TimeslotSpec{ID: r.TimeslotID}
	case r.StartTime != "":
		t, err := calendar.ParseTime24(r.StartTime)
		if err != nil {
			return models.Booking{}, models.Precondition("start_time", "invalid start time", err)
		}
		b.Start = models.ExactTimeAvailability{Time: t}
	default:
		return models.Booking{}, models.Precondition("start_time", "a timeslot or a start time is required", nil)
	}
	return b, nil
}

type QuoteService struct {
	repo     domain.Repository
	store    domain.QuoteStore
	tenants  *TenantService
	eventBus domain.EventPublisher
	opts     EngineOptions
	logger   *zerolog.Logger
}

func NewQuoteService(repo domain.Repository, store domain.QuoteStore, tenants *TenantService, eventBus domain.EventPublisher, opts EngineOptions, logger *zerolog.Logger) *QuoteService {
	return &QuoteService{
		repo:     repo,
		store:    store,
		tenants:  tenants,
		eventBus: eventBus,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Quote checks that the requested slot is still free, prices it and keeps the
// price for QuoteTTL.
func (s *QuoteService) Quote(ctx context.Context, tenantID models.TenantID, req QuoteRequest) (q *models.Quote, err error) {
	ctx, span := startSpan(ctx, "QuoteService.Quote", tenantID,
		attribute.String("service.id", string(req.ServiceID)),
		attribute.String("date", req.Date.String()),
	)
	defer func() {
		metrics.IncQuote(string(tenantID), outcomeOf(err))
		endSpan(span, err)
	}()

	if err := s.checkRateLimit(ctx, tenantID, req.CustomerID); err != nil {
		return nil, err
	}

	booking, err := req.Booking(tenantID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenants.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetBookings(ctx, tenantID, req.Date, req.Date)
	if err != nil {
		return nil, err
	}

	priced, err := priceBooking(pricing.NewEngine(s.opts.Clock, tenant.Location), tenant, existing, booking)
	if err != nil {
		return nil, err
	}

	now := s.opts.Clock.Now()
	q = &models.Quote{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		ServiceID:  req.ServiceID,
		CustomerID: req.CustomerID,
		Date:       req.Date,
		TimeslotID: req.TimeslotID,
		AddOns:     req.AddOns,
		Options:    req.Options,
		Total:      priced.Total,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.opts.QuoteTTL),
	}
	if req.TimeslotID == "" {
		q.StartTime = booking.Start.StartTime().String()
	}

	if err := s.store.SaveQuote(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to save quote: %w", err)
	}
	if err := s.repo.RecordQuote(ctx, q); err != nil {
		s.logger.Warn().Err(err).Str("quote_id", q.ID).Msg("quote audit failed")
	}

	s.logger.Info().
		Str("tenant", string(tenantID)).
		Str("quote_id", q.ID).
		Str("total", q.Total.String()).
		Time("expires_at", q.ExpiresAt).
		Msg("quote issued")

	if s.eventBus != nil {
		payload := events.QuotePayload{
			QuoteID:   q.ID,
			TenantID:  string(tenantID),
			ServiceID: string(q.ServiceID),
			Date:      q.Date.String(),
			Start:     models.StartLabel(booking.Start),
			Total:     q.Total.Amount,
			Currency:  q.Total.Currency,
			ExpiresAt: q.ExpiresAt,
		}
		if err := s.eventBus.PublishJSON(ctx, string(tenantID), events.EventQuoteIssued, payload); err != nil {
			s.logger.Error().Err(err).Str("quote_id", q.ID).Msg("publish event error")
		}
	}
	return q, nil
}

// Get returns a stored quote. An expired quote is returned along with ErrQuoteExpired.
func (s *QuoteService) Get(ctx context.Context, id string) (*models.Quote, error) {
	return s.store.GetQuote(ctx, id)
}

func (s *QuoteService) checkRateLimit(ctx context.Context, tenantID models.TenantID, customer models.CustomerID) error {
	if customer == "" || s.opts.QuoteLimit <= 0 {
		return nil
	}
	key := "quote:" + string(tenantID) + ":" + string(customer)
	allowed, err := s.store.CheckRateLimit(ctx, key, s.opts.QuoteLimit, s.opts.QuoteWindow)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
		return nil
	}
	if !allowed {
		return fmt.Errorf("customer %s: %w", customer, models.ErrRateLimited)
	}
	return nil
}

// outcomeOf is the metric label for err.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrNotAvailable):
		return "unavailable"
	case errors.Is(err, models.ErrPriceChanged):
		return "price_changed"
	case errors.Is(err, models.ErrQuoteExpired):
		return "expired"
	case errors.Is(err, models.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrPrecondition):
		return "invalid"
	default:
		return "error"
	}
}
