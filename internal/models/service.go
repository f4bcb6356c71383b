package models

import (
	"fmt"
	"time"

	"breezbook/internal/calendar"
)

// Slotting selects how a service's start points are enumerated.
type Slotting int

const (
	SlotByExactTime Slotting = iota
	SlotByTimeslot
)

func (s Slotting) String() string {
	if s == SlotByTimeslot {
		return "timeslot"
	}
	return "exact_time"
}

// ParseSlotting accepts "timeslot" or "exact_time"; empty means exact time.
func ParseSlotting(s string) (Slotting, error) {
	switch s {
	case "", "exact_time":
		return SlotByExactTime, nil
	case "timeslot":
		return SlotByTimeslot, nil
	default:
		return SlotByExactTime, fmt.Errorf("unknown slotting %q", s)
	}
}

type Service struct {
	ID              ServiceID
	Name            string
	Duration        time.Duration
	Price           Money
	Requirements    []ResourceRequirement
	PermittedAddOns []AddOnID
	Options         []ServiceOption
	Slotting        Slotting
	// StartTimes overrides the tenant StartTimeSpec for exact-time services.
	StartTimes []calendar.Time24
}

func (s Service) PermitsAddOn(id AddOnID) bool {
	for _, permitted := range s.PermittedAddOns {
		if permitted == id {
			return true
		}
	}
	return false
}

func (s Service) Option(id OptionID) (ServiceOption, error) {
	for _, opt := range s.Options {
		if opt.ID == id {
			return opt, nil
		}
	}
	return ServiceOption{}, NotFound("service option", id)
}

// DurationWith adds the duration of every selected option to the service duration.
func (s Service) DurationWith(options []OptionOrder) (time.Duration, error) {
	total := s.Duration
	for _, order := range options {
		opt, err := s.Option(order.OptionID)
		if err != nil {
			return 0, err
		}
		if order.Quantity <= 0 {
			return 0, Precondition("options["+string(order.OptionID)+"]", "quantity must be positive", nil)
		}
		total += opt.Duration * time.Duration(order.Quantity)
	}
	return total, nil
}
