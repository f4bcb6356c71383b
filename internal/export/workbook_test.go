package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"breezbook/internal/calendar"
	"breezbook/internal/models"
	"breezbook/internal/pricing"
	"breezbook/internal/resourcing"
	"breezbook/internal/service"
)

type mockTenants struct {
	mock.Mock
}

func (m *mockTenants) List(ctx context.Context) ([]models.TenantID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.TenantID), args.Error(1)
}

func (m *mockTenants) Load(ctx context.Context, id models.TenantID) (*service.Tenant, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*service.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAvailability struct {
	mock.Mock
}

func (m *mockAvailability) GetAvailability(ctx context.Context, tenantID models.TenantID, q service.AvailabilityQuery) (*service.AvailabilityResult, error) {
	args := m.Called(ctx, tenantID, q)
	if r := args.Get(0); r != nil {
		return r.(*service.AvailabilityResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func tenantWith(id models.TenantID, services ...models.ServiceID) *service.Tenant {
	t := &service.Tenant{ID: id, Name: "Tenant " + string(id)}
	for _, s := range services {
		t.Config.Services = append(t.Config.Services, models.Service{ID: s, Name: string(s), Duration: time.Hour})
	}
	return t
}

// result fakes free slot counts per day starting at from.
func result(from calendar.IsoDate, counts ...int) *service.AvailabilityResult {
	res := &service.AvailabilityResult{}
	for i, n := range counts {
		res.Days = append(res.Days, service.PricedDay{Date: from.AddDays(i), Slots: make([]pricing.PricedSlot, n)})
	}
	return res
}

func TestAvailabilityWorkbook_Export(t *testing.T) {
	ctx := context.Background()
	from := calendar.MustParseIsoDate("2030-06-03")

	tenants := new(mockTenants)
	tenants.On("List", ctx).Return([]models.TenantID{"smarty", "acme"}, nil)
	tenants.On("Load", ctx, models.TenantID("smarty")).Return(tenantWith("smarty", "wash", "valet"), nil)
	tenants.On("Load", ctx, models.TenantID("acme")).Return(nil, models.NotFound("tenant", "acme"))

	availability := new(mockAvailability)
	availability.On("GetAvailability", ctx, models.TenantID("smarty"), service.AvailabilityQuery{
		ServiceID: "wash", From: from, To: from.AddDays(1),
	}).Return(result(from, 9, 0), nil)
	availability.On("GetAvailability", ctx, models.TenantID("smarty"), service.AvailabilityQuery{
		ServiceID: "wash", From: from.AddDays(2), To: from.AddDays(2),
	}).Return(result(from.AddDays(2), 4), nil)
	availability.On("GetAvailability", ctx, models.TenantID("smarty"), mock.MatchedBy(func(q service.AvailabilityQuery) bool {
		return q.ServiceID == "valet"
	})).Return(nil, errors.New("boom"))

	dir := filepath.Join(t.TempDir(), "exports")
	wb := NewAvailabilityWorkbook(tenants, availability, 2, nil)

	path, err := wb.Export(ctx, dir, from, 3)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "availability_2030-06-03_to_2030-06-05.xlsx"), path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"smarty"}, f.GetSheetList())

	t.Run("Headers", func(t *testing.T) {
		title, _ := f.GetCellValue("smarty", "A1")
		assert.Equal(t, "Tenant smarty: 2030-06-03 - 2030-06-05", title)
		header, _ := f.GetCellValue("smarty", "B2")
		assert.Equal(t, "Mon 03.06", header)
		row, _ := f.GetCellValue("smarty", "A3")
		assert.Equal(t, "wash (60 min)", row)
	})

	t.Run("Counts", func(t *testing.T) {
		for cell, want := range map[string]string{"B3": "9", "C3": "0", "D3": "4"} {
			got, _ := f.GetCellValue("smarty", cell)
			assert.Equal(t, want, got, cell)
		}
	})

	t.Run("FailedService", func(t *testing.T) {
		got, _ := f.GetCellValue("smarty", "B4")
		assert.Equal(t, "n/a", got)
	})

	tenants.AssertExpectations(t)
	availability.AssertExpectations(t)
}

func TestAvailabilityWorkbook_Build(t *testing.T) {
	ctx := context.Background()

	t.Run("InvertedRange", func(t *testing.T) {
		wb := NewAvailabilityWorkbook(new(mockTenants), new(mockAvailability), 0, nil)
		_, err := wb.Build(ctx, calendar.MustParseIsoDate("2030-06-05"), calendar.MustParseIsoDate("2030-06-03"))
		assert.ErrorIs(t, err, models.ErrPrecondition)
	})

	t.Run("ListFails", func(t *testing.T) {
		tenants := new(mockTenants)
		tenants.On("List", ctx).Return([]models.TenantID(nil), errors.New("db down"))
		wb := NewAvailabilityWorkbook(tenants, new(mockAvailability), 0, nil)
		day := calendar.MustParseIsoDate("2030-06-03")
		_, err := wb.Build(ctx, day, day)
		assert.Error(t, err)
	})

	t.Run("Unresourceable", func(t *testing.T) {
		day := calendar.MustParseIsoDate("2030-06-03")
		tenants := new(mockTenants)
		tenants.On("List", ctx).Return([]models.TenantID{"smarty"}, nil)
		tenants.On("Load", ctx, models.TenantID("smarty")).Return(tenantWith("smarty", "wash"), nil)

		res := result(day, 3)
		res.Unresourceable = make([]resourcing.Unavailable, 2)
		availability := new(mockAvailability)
		availability.On("GetAvailability", ctx, models.TenantID("smarty"), mock.Anything).Return(res, nil)

		f, err := NewAvailabilityWorkbook(tenants, availability, 0, nil).Build(ctx, day, day)
		require.NoError(t, err)
		defer f.Close()

		got, _ := f.GetCellValue("smarty", "A5")
		assert.Equal(t, "Bookings without resources: 2", got)
	})
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "a_b_c", sheetName("a/b:c"))
	assert.Equal(t, "tenant", sheetName(""))
	assert.Len(t, sheetName("a-very-long-tenant-identifier-over-the-limit"), 31)
}
