package models

import "time"

// AddOn is an extra sold alongside a service, e.g. "wax" with a car wash.
type AddOn struct {
	ID               AddOnID
	Name             string
	Price            Money
	RequiresQuantity bool
}

// ServiceOption is a variant of a service that may extend its duration.
type ServiceOption struct {
	ID       OptionID
	Name     string
	Price    Money
	Duration time.Duration
}

type AddOnOrder struct {
	AddOnID  AddOnID `json:"add_on_id"`
	Quantity int     `json:"quantity"`
}

type OptionOrder struct {
	OptionID OptionID `json:"option_id"`
	Quantity int      `json:"quantity"`
}
