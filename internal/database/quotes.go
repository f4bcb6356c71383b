package database

import (
	"context"
	"fmt"

	"breezbook/internal/models"
)

// RecordQuote keeps an audit row for an issued quote. Quotes themselves live in the quote store.
func (db *DB) RecordQuote(ctx context.Context, quote *models.Quote) error {
	start := quote.StartTime
	if quote.TimeslotID != "" {
		start = string(quote.TimeslotID)
	}

	query := `INSERT INTO quotes (id, tenant_id, service_id, customer_id, date, start, total_minor, currency, created_at, expires_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		quote.ID,
		string(quote.TenantID),
		string(quote.ServiceID),
		string(quote.CustomerID),
		quote.Date.String(),
		start,
		quote.Total.Amount,
		quote.Total.Currency,
		quote.CreatedAt.UTC(),
		quote.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record quote %s: %w", quote.ID, err)
	}
	return nil
}

// CountQuotes returns how many quotes were issued for tenant.
func (db *DB) CountQuotes(ctx context.Context, tenant models.TenantID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes WHERE tenant_id = ?`, string(tenant)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count quotes: %w", err)
	}
	return count, nil
}
