// Package fees resolves the fee schedule for a session and computes the
// clamped buyer/seller fees applied at settlement.
package fees

import (
	"github.com/shopspring/decimal"

	"ms-auction/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Schedule is the fee configuration effective for one session: rule
// overrides first, the active TransactionFee defaults for the rest.
type Schedule struct {
	BuyerPct  decimal.Decimal
	SellerPct decimal.Decimal
	MinFee    decimal.Decimal
	MaxFee    decimal.Decimal
}

// Resolve merges session rule overrides over the default configuration.
// fallback may be nil when the session overrides everything.
func Resolve(rules models.SessionRules, fallback *models.TransactionFee) Schedule {
	s := Schedule{}
	if fallback != nil {
		s.BuyerPct = fallback.BuyerPercentage
		s.SellerPct = fallback.SellerPercentage
		s.MinFee = fallback.MinFee
		s.MaxFee = fallback.MaxFee
	}
	if rules.BuyerFeePct.Valid {
		s.BuyerPct = rules.BuyerFeePct.Decimal
	}
	if rules.SellerFeePct.Valid {
		s.SellerPct = rules.SellerFeePct.Decimal
	}
	if rules.MinFee.Valid {
		s.MinFee = rules.MinFee.Decimal
	}
	if rules.MaxFee.Valid {
		s.MaxFee = rules.MaxFee.Decimal
	}
	return s
}

// BuyerFee is clamp(hammer * buyerPct/100, min, max); the buyer owes the
// hammer price plus this.
func (s Schedule) BuyerFee(hammer decimal.Decimal) decimal.Decimal {
	return s.clamp(hammer.Mul(s.BuyerPct).Div(hundred))
}

// SellerFee is clamp(hammer * sellerPct/100, min, max); the seller nets the
// hammer price minus this.
func (s Schedule) SellerFee(hammer decimal.Decimal) decimal.Decimal {
	return s.clamp(hammer.Mul(s.SellerPct).Div(hundred))
}

func (s Schedule) clamp(fee decimal.Decimal) decimal.Decimal {
	if fee.LessThan(s.MinFee) {
		return s.MinFee
	}
	if s.MaxFee.IsPositive() && fee.GreaterThan(s.MaxFee) {
		return s.MaxFee
	}
	return fee
}
