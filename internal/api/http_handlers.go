package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"breezbook/internal/calendar"
	"breezbook/internal/config"
	"breezbook/internal/models"
	"breezbook/internal/service"
)

type quoteRequest struct {
	ServiceID  string               `json:"service_id"`
	CustomerID string               `json:"customer_id"`
	Date       calendar.IsoDate     `json:"date"`
	TimeslotID string               `json:"timeslot_id"`
	StartTime  string               `json:"start_time"`
	AddOns     []models.AddOnOrder  `json:"add_ons"`
	Options    []models.OptionOrder `json:"options"`
}

type bookingRequest struct {
	QuoteID    string `json:"quote_id"`
	CustomerID string `json:"customer_id"`
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := parseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	addOns, err := parseAddOns(q.Get("addons"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	options, err := parseOptions(q.Get("options"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.services.Availability.GetAvailability(r.Context(), models.TenantID(r.PathValue("tenant")), service.AvailabilityQuery{
		ServiceID: models.ServiceID(r.PathValue("service")),
		From:      from,
		To:        to,
		AddOns:    addOns,
		Options:   options,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAvailabilityResponse(res))
}

func (s *HTTPServer) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var body quoteRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.ServiceID) == "" || body.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "service_id and date are required")
		return
	}

	quote, err := s.services.Quotes.Quote(r.Context(), models.TenantID(r.PathValue("tenant")), service.QuoteRequest{
		ServiceID:  models.ServiceID(body.ServiceID),
		CustomerID: models.CustomerID(body.CustomerID),
		Date:       body.Date,
		TimeslotID: models.TimeslotID(body.TimeslotID),
		StartTime:  body.StartTime,
		AddOns:     body.AddOns,
		Options:    body.Options,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quote)
}

func (s *HTTPServer) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	quote, err := s.services.Quotes.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// A quote of a tenant the client may not see does not exist for it.
	if err := authorize(r.Context(), "", string(quote.TenantID)); err != nil {
		s.fail(w, r, models.NotFound("quote", id))
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body bookingRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.QuoteID) == "" {
		writeError(w, http.StatusBadRequest, "quote_id is required")
		return
	}

	booking, err := s.services.Bookings.Book(r.Context(), models.TenantID(r.PathValue("tenant")), body.QuoteID, models.CustomerID(body.CustomerID))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBookingResponse(booking))
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("version")), 10, 64)
	if err != nil || version < 1 {
		writeError(w, http.StatusBadRequest, "version is required")
		return
	}

	booking, err := s.services.Bookings.Cancel(r.Context(), models.TenantID(r.PathValue("tenant")), models.BookingID(r.PathValue("id")), version)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingResponse(booking))
}

func (s *HTTPServer) handleListTenants(w http.ResponseWriter, r *http.Request) {
	ids, err := s.services.Tenants.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	visible := make([]string, 0, len(ids))
	for _, id := range ids {
		if authorize(r.Context(), "", string(id)) == nil {
			visible = append(visible, string(id))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenants": visible})
}

func (s *HTTPServer) handlePutTenant(w http.ResponseWriter, r *http.Request) {
	var file config.TenantFile
	if err := decodeBody(r, &file); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id := r.PathValue("tenant")
	if file.ID != "" && file.ID != id {
		writeError(w, http.StatusBadRequest, "body id does not match path")
		return
	}
	file.ID = id

	tenant, err := s.services.Tenants.Save(r.Context(), file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       string(tenant.ID),
		"name":     tenant.Name,
		"services": len(tenant.Config.Services),
		"rules":    len(tenant.Rules),
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.services.Health != nil {
		if err := s.services.Health(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
