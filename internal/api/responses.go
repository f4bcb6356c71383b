package api

import (
	"strconv"
	"strings"
	"time"

	"breezbook/internal/calendar"
	"breezbook/internal/models"
	"breezbook/internal/pricing"
	"breezbook/internal/service"
)

type adjustmentResponse struct {
	RuleID   string       `json:"rule_id"`
	RuleName string       `json:"rule_name,omitempty"`
	Item     string       `json:"item"`
	Delta    models.Money `json:"delta"`
}

type slotResponse struct {
	StartTime         string               `json:"start_time"`
	EndTime           string               `json:"end_time"`
	TimeslotID        string               `json:"timeslot_id,omitempty"`
	Label             string               `json:"label,omitempty"`
	Total             models.Money         `json:"total"`
	ServicePrice      models.Money         `json:"service_price"`
	RemainingCapacity int                  `json:"remaining_capacity"`
	TotalCapacity     int                  `json:"total_capacity"`
	Adjustments       []adjustmentResponse `json:"adjustments,omitempty"`
}

type unresourceableResponse struct {
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

// availabilityResponse keys slot lists by ISO date. Dates without a free slot map to [].
type availabilityResponse struct {
	TenantID       string                    `json:"tenant_id"`
	ServiceID      string                    `json:"service_id"`
	Currency       string                    `json:"currency"`
	Dates          map[string][]slotResponse `json:"dates"`
	Unresourceable []unresourceableResponse  `json:"unresourceable,omitempty"`
}

type bookingResponse struct {
	ID         string               `json:"id"`
	TenantID   string               `json:"tenant_id"`
	CustomerID string               `json:"customer_id,omitempty"`
	ServiceID  string               `json:"service_id"`
	Date       calendar.IsoDate     `json:"date"`
	Start      string               `json:"start"`
	AddOns     []models.AddOnOrder  `json:"add_ons,omitempty"`
	Options    []models.OptionOrder `json:"options,omitempty"`
	Status     string               `json:"status"`
	Version    int64                `json:"version"`
	CreatedAt  time.Time            `json:"created_at"`
}

func newAvailabilityResponse(res *service.AvailabilityResult) availabilityResponse {
	out := availabilityResponse{
		TenantID:  string(res.TenantID),
		ServiceID: string(res.ServiceID),
		Currency:  res.Currency,
		Dates:     make(map[string][]slotResponse, len(res.Days)),
	}
	for _, day := range res.Days {
		slots := make([]slotResponse, 0, len(day.Slots))
		for _, s := range day.Slots {
			slots = append(slots, newSlotResponse(s))
		}
		out.Dates[day.Date.String()] = slots
	}
	for _, u := range res.Unresourceable {
		out.Unresourceable = append(out.Unresourceable, unresourceableResponse{
			BookingID: u.BookingRef(),
			Reason:    u.Reason(),
		})
	}
	return out
}

func newSlotResponse(p pricing.PricedSlot) slotResponse {
	out := slotResponse{
		StartTime:         p.Slot.Period.Period.Start.String(),
		EndTime:           p.Slot.Period.Period.End.String(),
		Total:             p.Total,
		ServicePrice:      p.Breakdown.ServicePrice,
		RemainingCapacity: int(p.Slot.RemainingCapacity),
		TotalCapacity:     int(p.Slot.TotalCapacity),
	}
	if ts, ok := p.Slot.Start.(models.TimeslotSpec); ok {
		out.TimeslotID = string(ts.ID)
		out.Label = ts.Description
	}
	for _, a := range p.Applied {
		out.Adjustments = append(out.Adjustments, adjustmentResponse{
			RuleID:   a.RuleID,
			RuleName: a.RuleName,
			Item:     a.Item,
			Delta:    a.Delta,
		})
	}
	return out
}

func newBookingResponse(b *models.Booking) bookingResponse {
	return bookingResponse{
		ID:         string(b.ID),
		TenantID:   string(b.TenantID),
		CustomerID: string(b.CustomerID),
		ServiceID:  string(b.ServiceID),
		Date:       b.Date,
		Start:      models.StartLabel(b.Start),
		AddOns:     b.AddOns,
		Options:    b.Options,
		Status:     b.Status,
		Version:    b.Version,
		CreatedAt:  b.CreatedAt,
	}
}

// parseAddOns reads "wax:2,polish" into orders; a missing quantity means 1.
func parseAddOns(raw string) ([]models.AddOnOrder, error) {
	pairs, err := parseOrders("addons", raw)
	if err != nil {
		return nil, err
	}
	out := make([]models.AddOnOrder, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, models.AddOnOrder{AddOnID: models.AddOnID(p.id), Quantity: p.quantity})
	}
	return out, nil
}

func parseOptions(raw string) ([]models.OptionOrder, error) {
	pairs, err := parseOrders("options", raw)
	if err != nil {
		return nil, err
	}
	out := make([]models.OptionOrder, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, models.OptionOrder{OptionID: models.OptionID(p.id), Quantity: p.quantity})
	}
	return out, nil
}

type order struct {
	id       string
	quantity int
}

func parseOrders(field, raw string) ([]order, error) {
	var out []order
	for _, item := range splitCSV(raw) {
		id, qty, found := strings.Cut(item, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, models.Precondition(field, "empty id in "+strconv.Quote(item), nil)
		}
		o := order{id: id, quantity: 1}
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(qty))
			if err != nil || n < 1 {
				return nil, models.Precondition(field, "invalid quantity in "+strconv.Quote(item), err)
			}
			o.quantity = n
		}
		out = append(out, o)
	}
	return out, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseRange reads from/to as ISO dates. to defaults to from.
func parseRange(from, to string) (calendar.IsoDate, calendar.IsoDate, error) {
	if strings.TrimSpace(from) == "" {
		return calendar.IsoDate{}, calendar.IsoDate{}, models.Precondition("from", "is required", nil)
	}
	start, err := calendar.ParseIsoDate(strings.TrimSpace(from))
	if err != nil {
		return calendar.IsoDate{}, calendar.IsoDate{}, models.Precondition("from", "expected YYYY-MM-DD", err)
	}
	if strings.TrimSpace(to) == "" {
		return start, start, nil
	}
	end, err := calendar.ParseIsoDate(strings.TrimSpace(to))
	if err != nil {
		return calendar.IsoDate{}, calendar.IsoDate{}, models.Precondition("to", "expected YYYY-MM-DD", err)
	}
	return start, end, nil
}
