package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"breezbook/internal/calendar"
	"breezbook/internal/config"
	"breezbook/internal/models"
	"breezbook/internal/tracing"
)

// EngineOptions are the limits and clock shared by the services.
type EngineOptions struct {
	MaxRangeDays int
	QuoteTTL     time.Duration
	QuoteLimit   int
	QuoteWindow  time.Duration
	Currency     string
	Location     *time.Location
	Clock        calendar.Clock
}

func EngineOptionsFrom(cfg config.EngineConfig) (EngineOptions, error) {
	loc, err := cfg.Location()
	if err != nil {
		return EngineOptions{}, err
	}
	return EngineOptions{
		MaxRangeDays: cfg.MaxRangeDays,
		QuoteTTL:     cfg.QuoteTTL,
		QuoteLimit:   cfg.QuoteLimit,
		QuoteWindow:  cfg.QuoteWindow,
		Currency:     cfg.Currency,
		Location:     loc,
		Clock:        calendar.SystemClock{},
	}.withDefaults(), nil
}

func (o EngineOptions) withDefaults() EngineOptions {
	if o.MaxRangeDays <= 0 {
		o.MaxRangeDays = models.DefaultMaxRangeDays
	}
	if o.QuoteTTL <= 0 {
		o.QuoteTTL = models.DefaultQuoteTTL * time.Second
	}
	if o.QuoteWindow <= 0 {
		o.QuoteWindow = time.Hour
	}
	if o.Currency == "" {
		o.Currency = models.DefaultCurrency
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Clock == nil {
		o.Clock = calendar.SystemClock{}
	}
	return o
}

var tracer = tracing.Tracer("service")

func startSpan(ctx context.Context, name string, tenant models.TenantID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("tenant.id", string(tenant)))
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
