package models

import (
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// SessionLot is one jewelry item offered inside an auction session. Version is
// the optimistic-concurrency guard: every accepted bid bumps it by exactly one
// and every lot write is conditioned on the value read beforehand.
type SessionLot struct {
	bun.BaseModel `bun:"table:session_lots"`

	LotID             string              `bun:"lot_id,pk" json:"lot_id"`
	SessionID         string              `bun:"session_id,notnull" json:"session_id"`
	JewelryItemID     string              `bun:"jewelry_item_id,notnull" json:"jewelry_item_id"`
	SellerID          string              `bun:"seller_id,notnull" json:"seller_id"`
	Position          int                 `bun:"position,notnull" json:"position"`
	StartPrice        decimal.Decimal     `bun:"start_price,notnull" json:"start_price"`
	StepPrice         decimal.Decimal     `bun:"step_price,notnull" json:"step_price"`
	ReservePrice      decimal.NullDecimal `bun:"reserve_price" json:"reserve_price"`
	CurrentHighestBid decimal.Decimal     `bun:"current_highest_bid,notnull" json:"current_highest_bid"`
	CurrentWinnerID   string              `bun:"current_winner_id,nullzero" json:"current_winner_id,omitempty"`
	BidCount          int                 `bun:"bid_count,notnull" json:"bid_count"`
	Version           int64               `bun:"version,notnull" json:"version"`
}

// NextMinimumBid is the smallest amount the next bid must reach.
func (l *SessionLot) NextMinimumBid() decimal.Decimal {
	return l.CurrentHighestBid.Add(l.StepPrice)
}

func (l *SessionLot) HasReserve() bool {
	return l.ReservePrice.Valid && l.ReservePrice.Decimal.IsPositive()
}

type AddLotRequest struct {
	JewelryItemID string              `json:"jewelry_item_id"`
	SellerID      string              `json:"seller_id"`
	StartPrice    decimal.Decimal     `json:"start_price"`
	StepPrice     decimal.Decimal     `json:"step_price"`
	ReservePrice  decimal.NullDecimal `json:"reserve_price"`
}
