package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"breezbook/internal/models"
	"breezbook/internal/pricing"
)

const carWashTenant = `
id: carwash
name: Mobile Car Wash
currency: GBP
business_hours:
  - days: [monday, tuesday, wednesday, thursday, friday]
    start: "09:00"
    end: "18:00"
blocked_time:
  - date: "2021-05-25"
resources:
  - id: van1
    name: Van 1
    type: van
  - id: van2
    name: Van 2
    type: van
    availability:
      - date: "2021-05-24"
        start: "09:00"
        end: "13:00"
services:
  - id: smallCarWash
    name: Small Car Wash
    duration_minutes: 120
    price: 1000
    requirements:
      - type: van
    add_ons: [wax]
    options:
      - id: interior
        name: Interior
        price: 500
        duration_minutes: 30
add_ons:
  - id: wax
    name: Wax
    price: 300
start_times:
  every_minutes: 60
pricing_rules:
  - id: busy-monday
    name: Busy Monday
    amount: 750
    date: "2021-05-24"
  - id: weekend-pct
    percent: "10"
    weekdays: [sat, sun]
  - id: tomorrow
    percent: "-5%"
    days_from_today: 1
    start: "09:00"
    end: "12:00"
`

func TestBuildTenant(t *testing.T) {
	var f TenantFile
	require.NoError(t, yaml.Unmarshal([]byte(carWashTenant), &f))

	cfg, rules, err := BuildTenant(f, "EUR")
	require.NoError(t, err)

	assert.Equal(t, "GBP", cfg.Currency)
	assert.Len(t, cfg.Hours, 5)
	require.Len(t, cfg.Blocked, 1)
	assert.Equal(t, "00:00-24:00", cfg.Blocked[0].Period.String())

	require.Len(t, cfg.Resources, 2)
	assert.Empty(t, cfg.Resources[0].Availability)
	require.Len(t, cfg.Resources[1].Availability, 1)
	assert.Equal(t, models.Capacity(1), cfg.Resources[1].Availability[0].Capacity)

	svc, err := cfg.Service("smallCarWash")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, svc.Duration)
	assert.Equal(t, []models.ResourceRequirement{models.AnyOf("van")}, svc.Requirements)
	assert.True(t, svc.PermitsAddOn("wax"))
	assert.Equal(t, time.Hour, cfg.StartTimes.Every)

	require.Len(t, rules, 3)
	assert.Equal(t, pricing.Amount(750, "GBP"), rules[0].Adjustment)
	window, ok := rules[0].Scope.(pricing.WindowScope)
	require.True(t, ok)
	assert.Equal(t, "2021-05-24 00:00-24:00", window.When.String())

	pct, ok := rules[1].Adjustment.(pricing.PercentageAdjustment)
	require.True(t, ok)
	assert.Equal(t, "0.1", pct.Ratio.String())
	assert.Equal(t, []time.Weekday{time.Saturday, time.Sunday}, rules[1].Scope.(pricing.WeekdayScope).Days)

	rel, ok := rules[2].Scope.(pricing.RelativeDayScope)
	require.True(t, ok)
	assert.Equal(t, 1, rel.DaysFromToday)
	assert.Equal(t, "-0.05", rules[2].Adjustment.(pricing.PercentageAdjustment).Ratio.String())
}

func TestBuildTenantRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TenantFile)
	}{
		{"bad weekday", func(f *TenantFile) { f.BusinessHours[0].Days = []string{"someday"} }},
		{"reversed hours", func(f *TenantFile) { f.BusinessHours[0].Start, f.BusinessHours[0].End = "18:00", "09:00" }},
		{"unknown specific resource", func(f *TenantFile) {
			f.Services[0].Requirements = []RequirementEntry{{Resource: "ghost"}}
		}},
		{"both amount and percent", func(f *TenantFile) { f.PricingRules[0].Percent = "5" }},
		{"bad slotting", func(f *TenantFile) { f.Services[0].Slotting = "hourly" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f TenantFile
			require.NoError(t, yaml.Unmarshal([]byte(carWashTenant), &f))
			tt.mutate(&f)

			_, _, err := BuildTenant(f, "GBP")
			assert.ErrorIs(t, err, models.ErrPrecondition)
		})
	}
}
