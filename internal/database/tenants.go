package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"breezbook/internal/config"
	"breezbook/internal/models"
)

// SaveTenant stores the tenant document, replacing any previous version.
func (db *DB) SaveTenant(ctx context.Context, id models.TenantID, file config.TenantFile) error {
	doc, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode tenant %s: %w", id, err)
	}

	now := db.now().UTC()
	query := `INSERT INTO tenants (id, document, created_at, updated_at) VALUES (?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`
	if _, err := db.ExecContext(ctx, query, string(id), string(doc), now, now); err != nil {
		return fmt.Errorf("failed to save tenant %s: %w", id, err)
	}
	return nil
}

func (db *DB) GetTenant(ctx context.Context, id models.TenantID) (*config.TenantFile, error) {
	var doc string
	err := db.QueryRowContext(ctx, `SELECT document FROM tenants WHERE id = ?`, string(id)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("tenant", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant %s: %w", id, err)
	}

	var file config.TenantFile
	if err := json.Unmarshal([]byte(doc), &file); err != nil {
		return nil, fmt.Errorf("failed to decode tenant %s: %w", id, err)
	}
	return &file, nil
}

func (db *DB) ListTenants(ctx context.Context) ([]models.TenantID, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var ids []models.TenantID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		ids = append(ids, models.TenantID(id))
	}
	return ids, rows.Err()
}
