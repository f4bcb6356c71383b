package models

import (
	"breezbook/internal/calendar"
)

// Capacity is a count of simultaneously bookable units.
type Capacity int

// ResourceType is a named category such as "van" or "room". Equal names are the same type.
type ResourceType struct {
	Name string `json:"name" yaml:"name"`
}

func NewResourceType(name string) ResourceType {
	return ResourceType{Name: name}
}

// AvailabilityBlock is a period during which a resource offers Capacity units.
type AvailabilityBlock struct {
	When     calendar.DayAndTimePeriod
	Capacity Capacity
}

// Resource is a concrete member of the tenant's pool.
// Empty Availability means the resource is on hand whenever the business is open.
type Resource struct {
	ID              ResourceID
	Name            string
	Type            ResourceType
	Availability    []AvailabilityBlock
	DefaultCapacity Capacity
}

// OpenCapacity is the capacity used when the resource follows business hours.
func (r Resource) OpenCapacity() Capacity {
	if r.DefaultCapacity <= 0 {
		return 1
	}
	return r.DefaultCapacity
}

func (r Resource) Validate() error {
	field := "resources[" + string(r.ID) + "]"
	if r.ID == "" {
		return Precondition("resources", "resource id is required", nil)
	}
	if r.Type.Name == "" {
		return Precondition(field, "resource type is required", nil)
	}
	if r.DefaultCapacity < 0 {
		return Precondition(field, "default capacity must not be negative", nil)
	}
	for i, block := range r.Availability {
		if err := block.When.Validate(); err != nil {
			return Precondition(field, "invalid availability block", err)
		}
		if block.Capacity < 0 {
			return Precondition(field, "availability capacity must not be negative", nil)
		}
		for _, other := range r.Availability[i+1:] {
			if calendar.Overlaps(block.When, other.When) {
				return Precondition(field, "availability blocks overlap: "+block.When.String()+" and "+other.When.String(), nil)
			}
		}
	}
	return nil
}
