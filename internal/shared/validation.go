package shared

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var postcodePattern = regexp.MustCompile(`^[0-9]{4}$`)

// NewValidator returns a validator that understands decimal amounts and
// Australian postcodes. The notblank tag rejects whitespace-only strings.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		switch d := field.Interface().(type) {
		case decimal.Decimal:
			f, _ := d.Float64()
			return f
		case decimal.NullDecimal:
			if !d.Valid {
				return nil
			}
			f, _ := d.Decimal.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})
	_ = v.RegisterValidation("postcode", func(fl validator.FieldLevel) bool {
		return postcodePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}
