package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	EventAvailabilityComputed = "availability.computed"
	EventQuoteIssued          = "quote.issued"
	EventBookingCreated       = "booking.created"
	EventBookingCancelled     = "booking.cancelled"
	EventBookingUnresourced   = "booking.unresourceable"
)

// AllTypes lists every event type the engine emits.
var AllTypes = []string{
	EventAvailabilityComputed,
	EventQuoteIssued,
	EventBookingCreated,
	EventBookingCancelled,
	EventBookingUnresourced,
}

type AvailabilityPayload struct {
	TenantID  string `json:"tenant_id"`
	ServiceID string `json:"service_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Slots     int    `json:"slots"`
}

type QuotePayload struct {
	QuoteID   string    `json:"quote_id"`
	TenantID  string    `json:"tenant_id"`
	ServiceID string    `json:"service_id"`
	Date      string    `json:"date"`
	Start     string    `json:"start"`
	Total     int64     `json:"total"`
	Currency  string    `json:"currency"`
	ExpiresAt time.Time `json:"expires_at"`
}

type BookingPayload struct {
	BookingID  string `json:"booking_id"`
	TenantID   string `json:"tenant_id"`
	CustomerID string `json:"customer_id"`
	ServiceID  string `json:"service_id"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	Status     string `json:"status"`
	Total      int64  `json:"total,omitempty"`
	Currency   string `json:"currency,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Event is a domain event. Trace carries the W3C trace context of the publisher.
type Event struct {
	ID        string
	Type      string
	TenantID  string
	Payload   []byte
	Trace     propagation.MapCarrier
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	onError     func(event *Event, err error)
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError installs a callback for handler failures. Failures never reach the publisher.
func (b *EventBus) OnError(fn func(event *Event, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type synchronously.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event. A nil bus is a no-op.
func (b *EventBus) PublishJSON(ctx context.Context, tenantID, eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(ctx, tenantID, eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(ctx context.Context, tenantID, eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TenantID:  tenantID,
		Payload:   raw,
		Trace:     carrier,
		CreatedAt: time.Now(),
	}, nil
}
