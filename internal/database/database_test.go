package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breezbook/internal/config"
	"breezbook/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tenantFile(id string) config.TenantFile {
	return config.TenantFile{
		ID:       id,
		Name:     "Smarty Wash",
		Currency: "GBP",
		BusinessHours: []config.HoursEntry{
			{Days: []string{"monday", "tuesday"}, Start: "09:00", End: "18:00"},
		},
		Resources: []config.ResourceEntry{{ID: "van-1", Name: "Van 1", Type: "van"}},
		Services: []config.ServiceEntry{{
			ID: "wash", Name: "Wash", DurationMinutes: 60, Price: 1000,
			Requirements: []config.RequirementEntry{{Type: "van"}},
		}},
	}
}

func seedTenant(t *testing.T, db *DB, id string) {
	t.Helper()
	require.NoError(t, db.SaveTenant(context.Background(), models.TenantID(id), tenantFile(id)))
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestNewDB_TablesIdempotent(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.createTables())
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestTenants(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		require.NoError(t, db.SaveTenant(ctx, "smarty", tenantFile("smarty")))

		got, err := db.GetTenant(ctx, "smarty")
		require.NoError(t, err)
		assert.Equal(t, tenantFile("smarty"), *got)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		updated := tenantFile("smarty")
		updated.Name = "Smarty Wash Ltd"
		require.NoError(t, db.SaveTenant(ctx, "smarty", updated))

		got, err := db.GetTenant(ctx, "smarty")
		require.NoError(t, err)
		assert.Equal(t, "Smarty Wash Ltd", got.Name)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := db.GetTenant(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, db.SaveTenant(ctx, "acme", tenantFile("acme")))

		ids, err := db.ListTenants(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.TenantID{"acme", "smarty"}, ids)
	})
}

func TestRecordQuote(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	quote := &models.Quote{
		ID:        "q-1",
		TenantID:  "smarty",
		ServiceID: "wash",
		Date:      testDate,
		StartTime: "10:00",
		Total:     models.NewMoney(1750, "GBP"),
	}
	require.NoError(t, db.RecordQuote(ctx, quote))

	count, err := db.CountQuotes(ctx, "smarty")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Error(t, db.RecordQuote(ctx, quote), "quote ids are unique")
}
