package catalog

import (
	"encoding/json"

	"github.com/sparkleops/sparkle-ops/internal/money"
)

type serviceAlias CleaningService

// MarshalJSON writes the base price with two fractional digits.
func (s CleaningService) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		serviceAlias
		BasePrice money.Amount `json:"base_price"`
	}{serviceAlias(s), money.Amount(s.BasePrice)})
}

type addonAlias Addon

// MarshalJSON writes the price with two fractional digits.
func (a Addon) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		addonAlias
		Price money.Amount `json:"price"`
	}{addonAlias(a), money.Amount(a.Price)})
}
