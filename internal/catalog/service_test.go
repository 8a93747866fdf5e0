package catalog

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkleops/sparkle-ops/internal/pricing"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

func TestCreateAndUpdateService(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	created, err := svc.CreateService(ctx, CreateServiceRequest{
		Name:         "Deep clean",
		CleaningType: pricing.CleaningDeep,
		BasePrice:    decimal.RequireFromString("180"),
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.False(t, created.TravelRate.Valid)

	price := decimal.RequireFromString("195")
	inactive := false
	updated, err := svc.UpdateService(ctx, created.ID, UpdateServiceRequest{BasePrice: &price, IsActive: &inactive})
	require.NoError(t, err)
	assert.True(t, updated.BasePrice.Equal(price))
	assert.False(t, updated.IsActive)

	active, err := svc.ListServices(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	zero := decimal.NewNullDecimal(decimal.Zero)
	_, err = svc.UpdateService(ctx, created.ID, UpdateServiceRequest{TravelRate: &zero})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateServiceValidation(t *testing.T) {
	svc := NewService(newMockRepository())
	_, err := svc.CreateService(context.Background(), CreateServiceRequest{Name: "Mystery", CleaningType: "laundry"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "CleaningType", verrs[0].Field())
}

func TestGetServiceNotFound(t *testing.T) {
	svc := NewService(newMockRepository())
	_, err := svc.GetService(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAddonsRejectsUnknownAndInactive(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	oven, err := svc.CreateAddon(ctx, CreateAddonRequest{Name: "Oven clean", Price: decimal.RequireFromString("20")})
	require.NoError(t, err)

	got, err := svc.Addons(ctx, []uuid.UUID{oven.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = svc.Addons(ctx, []uuid.UUID{oven.ID, uuid.New()})
	assert.ErrorIs(t, err, shared.ErrValidation)

	stale := Addon{ID: uuid.New(), Name: "Retired", Price: decimal.RequireFromString("5")}
	require.NoError(t, repo.CreateAddon(ctx, stale))
	_, err = svc.Addons(ctx, []uuid.UUID{stale.ID})
	assert.ErrorIs(t, err, shared.ErrValidation)

	none, err := svc.Addons(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestServiceRateCarriesTravelRate(t *testing.T) {
	s := CleaningService{BasePrice: decimal.RequireFromString("100"), TravelRate: decimal.NewNullDecimal(decimal.RequireFromString("1.2"))}
	rate := s.Rate()
	assert.True(t, rate.BasePrice.Equal(decimal.RequireFromString("100")))
	require.True(t, rate.TravelRate.Valid)
	assert.True(t, rate.TravelRate.Decimal.Equal(decimal.RequireFromString("1.2")))
}
