package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"breezbook/internal/config"
	"breezbook/internal/domain"
	"breezbook/internal/models"
	"breezbook/internal/pricing"
)

// Tenant is a tenant's configuration converted into engine inputs.
type Tenant struct {
	ID       models.TenantID
	Name     string
	Config   models.BusinessConfig
	Rules    []pricing.Rule
	Location *time.Location
}

// TenantService loads tenants from the repository and caches the converted form.
type TenantService struct {
	repo    domain.Repository
	opts    EngineOptions
	logger  *zerolog.Logger
	mu      sync.RWMutex
	tenants map[models.TenantID]*Tenant
}

func NewTenantService(repo domain.Repository, opts EngineOptions, logger *zerolog.Logger) *TenantService {
	return &TenantService{
		repo:    repo,
		opts:    opts.withDefaults(),
		logger:  logger,
		tenants: make(map[models.TenantID]*Tenant),
	}
}

// Save validates file and stores it. Nothing is stored when validation fails.
func (s *TenantService) Save(ctx context.Context, file config.TenantFile) (*Tenant, error) {
	if file.ID == "" {
		return nil, models.Precondition("id", "tenant id is required", nil)
	}
	tenant, err := s.build(file)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveTenant(ctx, tenant.ID, file); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tenants[tenant.ID] = tenant
	s.mu.Unlock()

	s.logger.Info().
		Str("tenant", string(tenant.ID)).
		Int("services", len(tenant.Config.Services)).
		Int("resources", len(tenant.Config.Resources)).
		Int("rules", len(tenant.Rules)).
		Msg("tenant saved")
	return tenant, nil
}

func (s *TenantService) Load(ctx context.Context, id models.TenantID) (*Tenant, error) {
	s.mu.RLock()
	tenant, ok := s.tenants[id]
	s.mu.RUnlock()
	if ok {
		return tenant, nil
	}

	file, err := s.repo.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	tenant, err = s.build(*file)
	if err != nil {
		return nil, fmt.Errorf("stored tenant %s: %w", id, err)
	}
	tenant.ID = id

	s.mu.Lock()
	s.tenants[id] = tenant
	s.mu.Unlock()
	return tenant, nil
}

func (s *TenantService) List(ctx context.Context) ([]models.TenantID, error) {
	return s.repo.ListTenants(ctx)
}

// Invalidate drops the cached copy so the next Load reads the repository.
func (s *TenantService) Invalidate(id models.TenantID) {
	s.mu.Lock()
	delete(s.tenants, id)
	s.mu.Unlock()
}

func (s *TenantService) build(file config.TenantFile) (*Tenant, error) {
	cfg, rules, err := config.BuildTenant(file, s.opts.Currency)
	if err != nil {
		return nil, err
	}

	loc := s.opts.Location
	if file.Timezone != "" {
		loc, err = time.LoadLocation(file.Timezone)
		if err != nil {
			return nil, models.Precondition("timezone", "unknown time zone "+file.Timezone, err)
		}
	}

	return &Tenant{
		ID:       models.TenantID(file.ID),
		Name:     file.Name,
		Config:   cfg,
		Rules:    rules,
		Location: loc,
	}, nil
}
