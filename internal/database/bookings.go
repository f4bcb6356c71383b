package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"breezbook/internal/calendar"
	"breezbook/internal/domain"
	"breezbook/internal/models"
)

const bookingColumns = `id, tenant_id, customer_id, service_id, date, timeslot_id, start_time,
	                 add_ons, options, status, created_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateBooking inserts a booking without any availability check.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return insertBooking(ctx, tx, booking, db.now())
	})
}

// CreateBookingChecked re-reads the tenant's bookings for the booking date inside
// the transaction and inserts only when check accepts them.
func (db *DB) CreateBookingChecked(ctx context.Context, booking *models.Booking, check domain.BookingCheck) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := queryBookings(ctx, tx, booking.TenantID, booking.Date, booking.Date)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(existing); err != nil {
				return err
			}
		}
		return insertBooking(ctx, tx, booking, db.now())
	})
}

func insertBooking(ctx context.Context, tx *sql.Tx, booking *models.Booking, now time.Time) error {
	if booking.ID == "" {
		booking.ID = models.BookingID(uuid.NewString())
	}
	if booking.Status == "" {
		booking.Status = models.StatusConfirmed
	}

	var timeslotID, startTime string
	switch start := booking.Start.(type) {
	case models.TimeslotSpec:
		timeslotID = string(start.ID)
	case models.ExactTimeAvailability:
		startTime = start.Time.String()
	default:
		return models.Precondition("booking["+string(booking.ID)+"]", "booking has no start", nil)
	}

	addOns, err := json.Marshal(nonNilAddOns(booking.AddOns))
	if err != nil {
		return fmt.Errorf("failed to encode add-ons: %w", err)
	}
	options, err := json.Marshal(nonNilOptions(booking.Options))
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}

	query := `INSERT INTO bookings (
				id, tenant_id, customer_id, service_id, date, timeslot_id, start_time,
				add_ons, options, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now = now.UTC()
	_, err = tx.ExecContext(ctx, query,
		string(booking.ID),
		string(booking.TenantID),
		string(booking.CustomerID),
		string(booking.ServiceID),
		booking.Date.String(),
		timeslotID,
		startTime,
		string(addOns),
		string(options),
		booking.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	booking.CreatedAt = now
	booking.Version = 1
	return nil
}

// GetBookings returns every booking of tenant dated from..to, in creation order.
func (db *DB) GetBookings(ctx context.Context, tenant models.TenantID, from, to calendar.IsoDate) ([]models.Booking, error) {
	return queryBookings(ctx, db, tenant, from, to)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryBookings(ctx context.Context, q querier, tenant models.TenantID, from, to calendar.IsoDate) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings WHERE tenant_id = ? AND date >= ? AND date <= ?
              ORDER BY created_at ASC, id ASC`
	rows, err := q.QueryContext(ctx, query, string(tenant), from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bookings: %w", err)
	}
	return bookings, nil
}

func (db *DB) GetBooking(ctx context.Context, tenant models.TenantID, id models.BookingID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tenant_id = ? AND id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, string(tenant), string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("booking", id)
	}
	return b, err
}

// CancelBooking marks a booking cancelled if it is still at version.
func (db *DB) CancelBooking(ctx context.Context, tenant models.TenantID, id models.BookingID, version int64) (*models.Booking, error) {
	var cancelled *models.Booking
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
                  WHERE tenant_id = ? AND id = ? AND version = ? AND status != ?`
		result, err := tx.ExecContext(ctx, query,
			models.StatusCancelled, db.now().UTC(), string(tenant), string(id), version, models.StatusCancelled)
		if err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		selectQuery := `SELECT ` + bookingColumns + ` FROM bookings WHERE tenant_id = ? AND id = ?`
		b, err := scanBooking(tx.QueryRowContext(ctx, selectQuery, string(tenant), string(id)))
		if errors.Is(err, sql.ErrNoRows) {
			return models.NotFound("booking", id)
		}
		if err != nil {
			return err
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrVersionConflict
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                             models.Booking
		id, tenant, customer, service string
		dateStr, timeslotID, startStr string
		addOns, options               string
	)
	err := row.Scan(&id, &tenant, &customer, &service, &dateStr, &timeslotID, &startStr,
		&addOns, &options, &b.Status, &b.CreatedAt, &b.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	b.ID = models.BookingID(id)
	b.TenantID = models.TenantID(tenant)
	b.CustomerID = models.CustomerID(customer)
	b.ServiceID = models.ServiceID(service)
	b.Date, err = calendar.ParseIsoDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}

	if timeslotID != "" {
		b.Start = models.TimeslotSpec{ID: models.TimeslotID(timeslotID)}
	} else {
		t, err := calendar.ParseTime24(startStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse booking start %s: %w", startStr, err)
		}
		b.Start = models.ExactTimeAvailability{Time: t}
	}

	if err := json.Unmarshal([]byte(addOns), &b.AddOns); err != nil {
		return nil, fmt.Errorf("failed to decode booking add-ons: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &b.Options); err != nil {
		return nil, fmt.Errorf("failed to decode booking options: %w", err)
	}
	return &b, nil
}

func nonNilAddOns(in []models.AddOnOrder) []models.AddOnOrder {
	if in == nil {
		return []models.AddOnOrder{}
	}
	return in
}

func nonNilOptions(in []models.OptionOrder) []models.OptionOrder {
	if in == nil {
		return []models.OptionOrder{}
	}
	return in
}
