package models

type (
	TenantID   string
	ServiceID  string
	ResourceID string
	CustomerID string
	BookingID  string
	AddOnID    string
	OptionID   string
	TimeslotID string
)
