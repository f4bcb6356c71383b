package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"breezbook/internal/config"
	"breezbook/internal/metrics"
	"breezbook/internal/service"
)

// Services are the engine operations the API exposes.
type Services struct {
	Availability *service.AvailabilityService
	Quotes       *service.QuoteService
	Bookings     *service.BookingService
	Tenants      *service.TenantService
	// Health reports readiness. nil means always ready.
	Health func(ctx context.Context) error
}

// HTTPServer exposes the engine as a JSON API alongside the gRPC service.
type HTTPServer struct {
	cfg      *config.APIConfig
	services Services
	server   *http.Server
	auth     *HTTPAuth
	log      zerolog.Logger
}

func NewHTTPServer(cfg *config.APIConfig, services Services, limiter *RateLimiter, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{cfg: cfg, services: services, log: zerolog.Nop()}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}
	srv.auth = NewHTTPAuth(cfg, limiter)

	api := http.NewServeMux()
	srv.handle(api, "GET /api/v1/tenants/{tenant}/services/{service}/availability", permReadAvailability, srv.handleAvailability)
	srv.handle(api, "POST /api/v1/tenants/{tenant}/quotes", permWriteQuotes, srv.handleCreateQuote)
	srv.handle(api, "GET /api/v1/quotes/{id}", permReadQuotes, srv.handleGetQuote)
	srv.handle(api, "POST /api/v1/tenants/{tenant}/bookings", permWriteBookings, srv.handleCreateBooking)
	srv.handle(api, "DELETE /api/v1/tenants/{tenant}/bookings/{id}", permWriteBookings, srv.handleCancelBooking)
	srv.handle(api, "GET /api/v1/tenants", permReadTenants, srv.handleListTenants)
	srv.handle(api, "PUT /api/v1/tenants/{tenant}", permWriteTenants, srv.handlePutTenant)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/api/", srv.auth.Wrap(api))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           loggingMiddleware(&srv.log, mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler is the full middleware chain, for embedding and tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handle registers h behind a permission and tenant check. The pattern is
// reported to the logging middleware as the metrics label.
func (s *HTTPServer) handle(mux *http.ServeMux, pattern, permission string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if rec, ok := w.(*statusRecorder); ok {
			rec.route = pattern
		}
		if err := authorize(r.Context(), permission, r.PathValue("tenant")); err != nil {
			writeError(w, httpStatus(err), err.Error())
			return
		}
		h(w, r)
	})
}

// fail writes err with its mapped status. Internal errors are logged and not echoed.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
// Permission and tenant checks happen per route once the client is known.
type HTTPAuth struct {
	cfg     *config.APIConfig
	keys    *keyring
	limiter *RateLimiter
}

func NewHTTPAuth(cfg *config.APIConfig, limiter *RateLimiter) *HTTPAuth {
	if limiter == nil {
		limiter = NewRateLimiter(cfg)
	}
	return &HTTPAuth{cfg: cfg, keys: newKeyring(cfg), limiter: limiter}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled || !a.cfg.HTTP.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			client, err := a.keys.authenticate(
				strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader)),
				strings.TrimSpace(r.Header.Get(a.keys.extraHeader)),
			)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			r = r.WithContext(withClient(r.Context(), client))
		}

		if !a.limiter.allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

const requestIDHeader = "X-Request-ID"

func loggingMiddleware(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK, route: "unmatched"}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		switch r.URL.Path {
		case "/healthz", "/metrics":
			recorder.route = r.URL.Path
		}
		metrics.IncHTTP(recorder.route, recorder.status)

		event := logger.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", recorder.route).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	route  string
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
