package models

import (
	"time"

	"breezbook/internal/calendar"
)

// Quote is a priced slot offered to a customer until ExpiresAt.
// Exactly one of TimeslotID and StartTime is set.
type Quote struct {
	ID         string           `json:"id"`
	TenantID   TenantID         `json:"tenant_id"`
	ServiceID  ServiceID        `json:"service_id"`
	CustomerID CustomerID       `json:"customer_id,omitempty"`
	Date       calendar.IsoDate `json:"date"`
	TimeslotID TimeslotID       `json:"timeslot_id,omitempty"`
	StartTime  string           `json:"start_time,omitempty"`
	AddOns     []AddOnOrder     `json:"add_ons,omitempty"`
	Options    []OptionOrder    `json:"options,omitempty"`
	Total      Money            `json:"total"`
	CreatedAt  time.Time        `json:"created_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

// Start rebuilds the booking start the quote was priced for.
func (q Quote) Start() (BookingStart, error) {
	if q.TimeslotID != "" {
		return TimeslotSpec{ID: q.TimeslotID}, nil
	}
	t, err := calendar.ParseTime24(q.StartTime)
	if err != nil {
		return nil, Precondition("quote["+q.ID+"].start_time", "invalid start time", err)
	}
	return ExactTimeAvailability{Time: t}, nil
}

func (q Quote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// StartLabel is the timeslot id or the exact start time.
func StartLabel(start BookingStart) string {
	switch s := start.(type) {
	case TimeslotSpec:
		if s.ID != "" {
			return string(s.ID)
		}
		return s.Slot.String()
	case ExactTimeAvailability:
		return s.Time.String()
	default:
		return ""
	}
}
