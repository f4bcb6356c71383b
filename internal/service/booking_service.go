package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"breezbook/internal/domain"
	"breezbook/internal/events"
	"breezbook/internal/metrics"
	"breezbook/internal/models"
	"breezbook/internal/pricing"
)

type BookingService struct {
	repo     domain.Repository
	store    domain.QuoteStore
	tenants  *TenantService
	eventBus domain.EventPublisher
	opts     EngineOptions
	logger   *zerolog.Logger
}

func NewBookingService(repo domain.Repository, store domain.QuoteStore, tenants *TenantService, eventBus domain.EventPublisher, opts EngineOptions, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:     repo,
		store:    store,
		tenants:  tenants,
		eventBus: eventBus,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Book turns a live quote into a booking. The slot is re-checked and re-priced
// against the bookings committed for that date inside the insert transaction.
// customer overrides the quote's customer when set.
func (s *BookingService) Book(ctx context.Context, tenantID models.TenantID, quoteID string, customer models.CustomerID) (b *models.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.Book", tenantID, attribute.String("quote.id", quoteID))
	defer func() {
		metrics.IncBooking(string(tenantID), outcomeOf(err))
		endSpan(span, err)
	}()

	quote, err := s.store.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.TenantID != tenantID {
		return nil, models.NotFound("quote", quoteID)
	}
	if quote.Expired(s.opts.Clock.Now()) {
		return nil, fmt.Errorf("quote %s: %w", quoteID, models.ErrQuoteExpired)
	}

	tenant, err := s.tenants.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	start, err := quote.Start()
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		TenantID:   tenantID,
		CustomerID: quote.CustomerID,
		ServiceID:  quote.ServiceID,
		Date:       quote.Date,
		Start:      start,
		AddOns:     quote.AddOns,
		Options:    quote.Options,
		Status:     models.StatusConfirmed,
	}
	if customer != "" {
		booking.CustomerID = customer
	}

	engine := pricing.NewEngine(s.opts.Clock, tenant.Location)
	err = s.repo.CreateBookingChecked(ctx, booking, func(existing []models.Booking) error {
		priced, err := priceBooking(engine, tenant, existing, *booking)
		if err != nil {
			return err
		}
		if priced.Total != quote.Total {
			return fmt.Errorf("%w: quoted %s, now %s", models.ErrPriceChanged, quote.Total, priced.Total)
		}
		return nil
	})
	if err != nil {
		s.logger.Info().Err(err).Str("tenant", string(tenantID)).Str("quote_id", quoteID).Msg("booking rejected")
		return nil, err
	}

	if err := s.store.DeleteQuote(ctx, quoteID); err != nil {
		s.logger.Warn().Err(err).Str("quote_id", quoteID).Msg("failed to delete used quote")
	}

	s.logger.Info().
		Str("tenant", string(tenantID)).
		Str("booking_id", string(booking.ID)).
		Str("start", models.StartLabel(booking.Start)).
		Msg("booking created")
	s.publishEvent(ctx, events.EventBookingCreated, *booking, quote.Total)
	return booking, nil
}

// Cancel cancels a booking still at version.
func (s *BookingService) Cancel(ctx context.Context, tenantID models.TenantID, id models.BookingID, version int64) (b *models.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.Cancel", tenantID, attribute.String("booking.id", string(id)))
	defer func() { endSpan(span, err) }()

	b, err = s.repo.CancelBooking(ctx, tenantID, id, version)
	if err != nil {
		return nil, err
	}

	metrics.IncBooking(string(tenantID), "cancelled")
	s.logger.Info().Str("tenant", string(tenantID)).Str("booking_id", string(id)).Msg("booking cancelled")
	s.publishEvent(ctx, events.EventBookingCancelled, *b, models.Money{})
	return b, nil
}

func (s *BookingService) publishEvent(ctx context.Context, eventType string, booking models.Booking, total models.Money) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingPayload{
		BookingID:  string(booking.ID),
		TenantID:   string(booking.TenantID),
		CustomerID: string(booking.CustomerID),
		ServiceID:  string(booking.ServiceID),
		Date:       booking.Date.String(),
		Start:      models.StartLabel(booking.Start),
		Status:     booking.Status,
		Total:      total.Amount,
		Currency:   total.Currency,
	}

	if err := s.eventBus.PublishJSON(ctx, string(booking.TenantID), eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", string(booking.ID)).Msg("publish event error")
	}
}
