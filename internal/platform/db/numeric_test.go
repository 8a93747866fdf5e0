package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "159.50", "-12.345", "100000.01"} {
		d := decimal.RequireFromString(s)
		assert.True(t, d.Equal(Decimal(Numeric(d))), s)
	}
}

func TestNullNumeric(t *testing.T) {
	assert.False(t, NullNumeric(decimal.NullDecimal{}).Valid)
	assert.False(t, NullDecimal(pgtype.Numeric{}).Valid)
	assert.True(t, Decimal(pgtype.Numeric{}).IsZero())

	v := decimal.NewNullDecimal(decimal.RequireFromString("82.5"))
	back := NullDecimal(NullNumeric(v))
	assert.True(t, back.Valid)
	assert.True(t, v.Decimal.Equal(back.Decimal))
}
