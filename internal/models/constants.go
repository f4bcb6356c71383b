package models

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	// DefaultQuoteTTL is how long a quoted price is honoured, in seconds.
	DefaultQuoteTTL = 15 * 60

	// DefaultMaxRangeDays bounds an availability request so callers bound latency.
	DefaultMaxRangeDays = 62

	// DefaultCurrency is used when a tenant does not name one.
	DefaultCurrency = "GBP"

	// DefaultExportDays is the number of days covered by the availability workbook.
	DefaultExportDays = 14

	// DefaultQuoteLimit is the number of quotes one customer may request per window.
	DefaultQuoteLimit = 30

	// DefaultStartInterval is the gap between generated exact start times, in minutes.
	DefaultStartInterval = 60
)
