package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// Service manages cleaning services and add-ons.
type Service struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds the catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: shared.NewValidator(), now: time.Now}
}

// GetService returns a cleaning service by id.
func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*CleaningService, error) {
	return s.repo.GetService(ctx, id)
}

// ListServices returns the catalog, optionally only the active entries.
func (s *Service) ListServices(ctx context.Context, activeOnly bool) ([]CleaningService, error) {
	return s.repo.ListServices(ctx, activeOnly)
}

// CreateService registers a new cleaning service.
func (s *Service) CreateService(ctx context.Context, req CreateServiceRequest) (*CleaningService, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	svc := CleaningService{
		ID:           uuid.New(),
		Name:         req.Name,
		CleaningType: req.CleaningType,
		Description:  req.Description,
		BasePrice:    req.BasePrice,
		TravelRate:   req.TravelRate,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return &svc, nil
}

// UpdateService changes the price, name or availability of a service. Existing
// quotes keep their stored prices until repriced.
func (s *Service) UpdateService(ctx context.Context, id uuid.UUID, req UpdateServiceRequest) (*CleaningService, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		svc.Name = *req.Name
	}
	if req.BasePrice != nil {
		svc.BasePrice = *req.BasePrice
	}
	if req.TravelRate != nil {
		if req.TravelRate.Valid && !req.TravelRate.Decimal.IsPositive() {
			return nil, fmt.Errorf("%w: travel_rate must be positive", shared.ErrValidation)
		}
		svc.TravelRate = *req.TravelRate
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}
	svc.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateService(ctx, *svc); err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}
	return svc, nil
}

// Addons resolves add-on ids. Unknown or inactive ids are a validation error.
func (s *Service) Addons(ctx context.Context, ids []uuid.UUID) ([]Addon, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	addons, err := s.repo.GetAddons(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[uuid.UUID]bool, len(addons))
	for _, a := range addons {
		if a.IsActive {
			found[a.ID] = true
		}
	}
	for _, id := range ids {
		if !found[id] {
			return nil, fmt.Errorf("%w: unknown addon %s", shared.ErrValidation, id)
		}
	}
	return addons, nil
}

// ListAddons returns the add-on price list.
func (s *Service) ListAddons(ctx context.Context, activeOnly bool) ([]Addon, error) {
	return s.repo.ListAddons(ctx, activeOnly)
}

// CreateAddon registers a new add-on.
func (s *Service) CreateAddon(ctx context.Context, req CreateAddonRequest) (*Addon, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	addon := Addon{ID: uuid.New(), Name: req.Name, Price: req.Price, IsActive: true, CreatedAt: s.now().UTC()}
	if err := s.repo.CreateAddon(ctx, addon); err != nil {
		return nil, fmt.Errorf("create addon: %w", err)
	}
	return &addon, nil
}
