package service

import (
	"fmt"

	"breezbook/internal/availability"
	"breezbook/internal/models"
	"breezbook/internal/pricing"
	"breezbook/internal/resourcing"
)

// priceBooking checks that b still fits next to existing and prices the slot it takes.
func priceBooking(engine *pricing.Engine, t *Tenant, existing []models.Booking, b models.Booking) (pricing.PricedSlot, error) {
	svc, err := t.Config.Service(b.ServiceID)
	if err != nil {
		return pricing.PricedSlot{}, err
	}

	start := b.Start
	if ts, ok := start.(models.TimeslotSpec); ok {
		resolved, err := t.Config.Timeslot(ts.ID)
		if err != nil {
			return pricing.PricedSlot{}, err
		}
		start = resolved
		b.Start = resolved
	}

	outcome, err := availability.CheckBooking(t.Config, existing, b)
	if err != nil {
		return pricing.PricedSlot{}, err
	}
	available, ok := outcome.(resourcing.Available)
	if !ok {
		reason := "unresourceable"
		if u, isUnavailable := outcome.(resourcing.Unavailable); isUnavailable {
			reason = u.Reason()
		}
		return pricing.PricedSlot{}, fmt.Errorf("%w: %s", models.ErrNotAvailable, reason)
	}

	slot := availability.Slot{
		Day:               b.Date,
		Start:             start,
		Period:            available.Request.Period,
		Allocations:       available.Allocations,
		TotalCapacity:     available.TotalCapacity,
		RemainingCapacity: available.RemainingCapacity,
	}
	return engine.CalculatePrice(pricing.SlotInput{
		Slot:    slot,
		Service: svc,
		Catalog: t.Config.AddOns,
		AddOns:  b.AddOns,
		Options: b.Options,
	}, t.Rules)
}
