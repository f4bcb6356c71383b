package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"breezbook/internal/availability"
	"breezbook/internal/calendar"
	"breezbook/internal/domain"
	"breezbook/internal/events"
	"breezbook/internal/metrics"
	"breezbook/internal/models"
	"breezbook/internal/pricing"
	"breezbook/internal/resourcing"
)

// AvailabilityQuery asks for the priced slots of one service over [From, To].
type AvailabilityQuery struct {
	ServiceID models.ServiceID
	From      calendar.IsoDate
	To        calendar.IsoDate
	AddOns    []models.AddOnOrder
	Options   []models.OptionOrder
}

type PricedDay struct {
	Date  calendar.IsoDate
	Slots []pricing.PricedSlot
}

type AvailabilityResult struct {
	TenantID       models.TenantID
	ServiceID      models.ServiceID
	Currency       string
	Days           []PricedDay
	Unresourceable []resourcing.Unavailable
}

func (r *AvailabilityResult) SlotCount() int {
	n := 0
	for _, d := range r.Days {
		n += len(d.Slots)
	}
	return n
}

type AvailabilityService struct {
	repo     domain.Repository
	tenants  *TenantService
	eventBus domain.EventPublisher
	opts     EngineOptions
	logger   *zerolog.Logger
}

func NewAvailabilityService(repo domain.Repository, tenants *TenantService, eventBus domain.EventPublisher, opts EngineOptions, logger *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{
		repo:     repo,
		tenants:  tenants,
		eventBus: eventBus,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// GetAvailability computes the bookable slots of q.ServiceID and prices each one.
func (s *AvailabilityService) GetAvailability(ctx context.Context, tenantID models.TenantID, q AvailabilityQuery) (res *AvailabilityResult, err error) {
	ctx, span := startSpan(ctx, "AvailabilityService.GetAvailability", tenantID,
		attribute.String("service.id", string(q.ServiceID)),
		attribute.String("from", q.From.String()),
		attribute.String("to", q.To.String()),
	)
	defer func() { endSpan(span, err) }()

	if err := s.validateRange(q.From, q.To); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetBookings(ctx, tenantID, q.From, q.To)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	computed, err := availability.CalculateFor(tenant.Config, existing, availability.Query{
		ServiceID: q.ServiceID,
		From:      q.From,
		To:        q.To,
		Options:   q.Options,
	})
	if err != nil {
		return nil, err
	}
	svc, err := tenant.Config.Service(q.ServiceID)
	if err != nil {
		return nil, err
	}

	engine := pricing.NewEngine(s.opts.Clock, tenant.Location)
	res = &AvailabilityResult{
		TenantID:       tenantID,
		ServiceID:      computed.ServiceID,
		Currency:       svc.Price.Currency,
		Days:           make([]PricedDay, 0, len(computed.Days)),
		Unresourceable: computed.Unresourceable,
	}
	for _, day := range computed.Days {
		priced := PricedDay{Date: day.Date, Slots: make([]pricing.PricedSlot, 0, len(day.Slots))}
		for _, slot := range day.Slots {
			p, err := engine.CalculatePrice(pricing.SlotInput{
				Slot:    slot,
				Service: svc,
				Catalog: tenant.Config.AddOns,
				AddOns:  q.AddOns,
				Options: q.Options,
			}, tenant.Rules)
			if err != nil {
				return nil, err
			}
			priced.Slots = append(priced.Slots, p)
		}
		res.Days = append(res.Days, priced)
	}

	slots := res.SlotCount()
	metrics.ObserveAvailability(string(tenantID), time.Since(started), slots)
	span.SetAttributes(attribute.Int("slots", slots))

	s.reportUnresourceable(ctx, tenantID, computed.Unresourceable)
	s.publish(ctx, tenantID, events.EventAvailabilityComputed, events.AvailabilityPayload{
		TenantID:  string(tenantID),
		ServiceID: string(q.ServiceID),
		From:      q.From.String(),
		To:        q.To.String(),
		Slots:     slots,
	})
	return res, nil
}

func (s *AvailabilityService) validateRange(from, to calendar.IsoDate) error {
	if from.After(to) {
		return models.Precondition("from", "must not be after to", nil)
	}
	days := int(to.Ordinal()-from.Ordinal()) + 1
	if days > s.opts.MaxRangeDays {
		return models.Precondition("to", "range exceeds the maximum number of days", nil)
	}
	return nil
}

// reportUnresourceable surfaces bookings that no longer fit the resource pool.
func (s *AvailabilityService) reportUnresourceable(ctx context.Context, tenantID models.TenantID, outcomes []resourcing.Unavailable) {
	if len(outcomes) == 0 {
		return
	}
	metrics.AddUnresourceable(string(tenantID), len(outcomes))
	for _, u := range outcomes {
		s.logger.Warn().
			Str("tenant", string(tenantID)).
			Str("booking_id", u.BookingRef()).
			Str("period", u.Request.Period.String()).
			Str("reason", u.Reason()).
			Msg("booking cannot be resourced")
		s.publish(ctx, tenantID, events.EventBookingUnresourced, events.BookingPayload{
			BookingID: u.BookingRef(),
			TenantID:  string(tenantID),
			Date:      u.Request.Period.Day.String(),
			Start:     u.Request.Period.Period.Start.String(),
			Reason:    u.Reason(),
		})
	}
}

func (s *AvailabilityService) publish(ctx context.Context, tenantID models.TenantID, eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(ctx, string(tenantID), eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}
