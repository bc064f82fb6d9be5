package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// TransactionFee is the default fee configuration. Sessions may override any
// of these values through their rules.
type TransactionFee struct {
	bun.BaseModel `bun:"table:transaction_fees"`

	FeeID            string          `bun:"fee_id,pk" json:"fee_id"`
	BuyerPercentage  decimal.Decimal `bun:"buyer_percentage,notnull" json:"buyer_percentage"`
	SellerPercentage decimal.Decimal `bun:"seller_percentage,notnull" json:"seller_percentage"`
	MinFee           decimal.Decimal `bun:"min_fee,notnull" json:"min_fee"`
	MaxFee           decimal.Decimal `bun:"max_fee,notnull" json:"max_fee"`
	Active           bool            `bun:"active,notnull" json:"active"`
	CreatedAt        time.Time       `bun:"created_at,notnull" json:"created_at"`
}
