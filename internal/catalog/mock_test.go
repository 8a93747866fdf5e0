package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/sparkleops/sparkle-ops/internal/shared"
)

type mockRepository struct {
	mu       sync.Mutex
	services map[uuid.UUID]CleaningService
	addons   map[uuid.UUID]Addon
}

func newMockRepository() *mockRepository {
	return &mockRepository{services: map[uuid.UUID]CleaningService{}, addons: map[uuid.UUID]Addon{}}
}

func (m *mockRepository) GetService(_ context.Context, id uuid.UUID) (*CleaningService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: service %s", shared.ErrNotFound, id)
	}
	return &svc, nil
}

func (m *mockRepository) ListServices(_ context.Context, activeOnly bool) ([]CleaningService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CleaningService
	for _, svc := range m.services {
		if activeOnly && !svc.IsActive {
			continue
		}
		out = append(out, svc)
	}
	return out, nil
}

func (m *mockRepository) CreateService(_ context.Context, svc CleaningService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[svc.ID] = svc
	return nil
}

func (m *mockRepository) UpdateService(_ context.Context, svc CleaningService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[svc.ID] = svc
	return nil
}

func (m *mockRepository) GetAddons(_ context.Context, ids []uuid.UUID) ([]Addon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Addon
	for _, id := range ids {
		if a, ok := m.addons[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepository) ListAddons(_ context.Context, activeOnly bool) ([]Addon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Addon
	for _, a := range m.addons {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockRepository) CreateAddon(_ context.Context, addon Addon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addons[addon.ID] = addon
	return nil
}
