package db

import (
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Numeric converts a decimal into a pgtype.Numeric parameter.
func Numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).Set(d.Coefficient()), Exp: d.Exponent(), Valid: true}
}

// NullNumeric converts a nullable decimal into a pgtype.Numeric parameter.
func NullNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{}
	}
	return Numeric(d.Decimal)
}

// Decimal converts a scanned numeric into a decimal. NULL and NaN become zero.
func Decimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

// NullDecimal converts a scanned numeric into a nullable decimal.
func NullDecimal(n pgtype.Numeric) decimal.NullDecimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromBigInt(n.Int, n.Exp))
}
