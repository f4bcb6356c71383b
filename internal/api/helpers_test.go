package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"breezbook/internal/config"
	"breezbook/internal/database"
	"breezbook/internal/repository"
	"breezbook/internal/service"
)

const testDate = "2030-06-03"

// washTenant is one van open 09:00-18:00 every day selling a one-hour wash at
// GBP 10.00 with a GBP 5.00 wax add-on.
func washTenant(id string) config.TenantFile {
	return config.TenantFile{
		ID:       id,
		Name:     "Smarty Wash",
		Currency: "GBP",
		BusinessHours: []config.HoursEntry{{
			Days:  []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
			Start: "09:00",
			End:   "18:00",
		}},
		Resources: []config.ResourceEntry{{ID: "van-1", Name: "Van 1", Type: "van"}},
		Services: []config.ServiceEntry{{
			ID:              "wash",
			Name:            "Wash",
			DurationMinutes: 60,
			Price:           1000,
			Requirements:    []config.RequirementEntry{{Type: "van"}},
			AddOns:          []string{"wax"},
		}},
		AddOns: []config.AddOnEntry{{ID: "wax", Name: "Wax", Price: 500}},
	}
}

func newTestServices(t *testing.T) Services {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	opts := service.EngineOptions{
		MaxRangeDays: 7,
		QuoteTTL:     15 * time.Minute,
		QuoteLimit:   100,
		QuoteWindow:  time.Hour,
		Currency:     "GBP",
		Location:     time.UTC,
	}
	store := repository.NewMemoryQuoteStore()
	tenants := service.NewTenantService(db, opts, &logger)
	_, err = tenants.Save(context.Background(), washTenant("smarty"))
	require.NoError(t, err)
	_, err = tenants.Save(context.Background(), washTenant("acme"))
	require.NoError(t, err)

	return Services{
		Availability: service.NewAvailabilityService(db, tenants, nil, opts, &logger),
		Quotes:       service.NewQuoteService(db, store, tenants, nil, opts, &logger),
		Bookings:     service.NewBookingService(db, store, tenants, nil, opts, &logger),
		Tenants:      tenants,
		Health:       db.PingContext,
	}
}

func openAPIConfig() *config.APIConfig {
	return &config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true},
		Auth:    config.APIAuthConfig{Enabled: false},
	}
}

func securedAPIConfig() *config.APIConfig {
	cfg := openAPIConfig()
	cfg.Auth = config.APIAuthConfig{
		Enabled: true,
		APIKeys: []config.APIClientKey{
			{Key: "reader", Extra: "r-extra", Name: "widget", Permissions: []string{permReadAvailability}, Tenants: []string{"smarty"}},
			{Key: "admin", Extra: "a-extra", Name: "backoffice"},
		},
	}
	return cfg
}

func newTestHTTP(t *testing.T, cfg *config.APIConfig, services Services) *httptest.Server {
	t.Helper()
	srv := NewHTTPServer(cfg, services, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type apiClient struct {
	t       *testing.T
	base    string
	headers map[string]string
}

func (c apiClient) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
