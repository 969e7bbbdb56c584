package store

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func nullNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{}
	}
	return numeric(d.Decimal)
}

// fromNumeric converts a scanned numeric. NULL becomes zero.
func fromNumeric(n pgtype.Numeric) (decimal.Decimal, error) {
	switch {
	case !n.Valid:
		return decimal.Zero, nil
	case n.NaN:
		return decimal.Zero, fmt.Errorf("numeric is NaN")
	case n.InfinityModifier != pgtype.Finite:
		return decimal.Zero, fmt.Errorf("numeric is infinite")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
