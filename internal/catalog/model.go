package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sparkleops/sparkle-ops/internal/pricing"
)

// CleaningService is a cleaning service offered for quoting.
type CleaningService struct {
	ID           uuid.UUID            `json:"id"`
	Name         string               `json:"name"`
	CleaningType pricing.CleaningType `json:"cleaning_type"`
	Description  string               `json:"description,omitempty"`
	BasePrice    decimal.Decimal      `json:"base_price"`
	TravelRate   decimal.NullDecimal  `json:"travel_rate"`
	IsActive     bool                 `json:"is_active"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Rate exposes the pricing inputs of the service.
func (s CleaningService) Rate() *pricing.ServiceRate {
	return &pricing.ServiceRate{BasePrice: s.BasePrice, TravelRate: s.TravelRate}
}

// Addon is an optional extra with a catalog price.
type Addon struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateServiceRequest registers a new service.
type CreateServiceRequest struct {
	Name         string               `json:"name" validate:"required,max=200"`
	CleaningType pricing.CleaningType `json:"cleaning_type" validate:"required,oneof=general deep end_of_lease ndis commercial carpet window pressure_washing"`
	Description  string               `json:"description" validate:"max=2000"`
	BasePrice    decimal.Decimal      `json:"base_price" validate:"gte=0"`
	TravelRate   decimal.NullDecimal  `json:"travel_rate" validate:"omitempty,gt=0"`
}

// UpdateServiceRequest changes price or availability of a service.
type UpdateServiceRequest struct {
	Name       *string              `json:"name,omitempty" validate:"omitempty,max=200"`
	BasePrice  *decimal.Decimal     `json:"base_price,omitempty" validate:"omitempty,gte=0"`
	TravelRate *decimal.NullDecimal `json:"travel_rate,omitempty"`
	IsActive   *bool                `json:"is_active,omitempty"`
}

// CreateAddonRequest registers a new add-on.
type CreateAddonRequest struct {
	Name  string          `json:"name" validate:"required,max=200"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}
