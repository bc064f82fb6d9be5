package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type BidStatus string

const (
	BidValid   BidStatus = "valid"
	BidWinning BidStatus = "winning"
	BidOutbid  BidStatus = "outbid"
	BidInvalid BidStatus = "invalid"
)

// Bid is immutable once created except for its status. Bids are never
// deleted; a bid that lost a write race is kept as INVALID history.
type Bid struct {
	bun.BaseModel `bun:"table:bids"`

	BidID          string          `bun:"bid_id,pk" json:"bid_id"`
	SessionID      string          `bun:"session_id,notnull" json:"session_id"`
	LotID          string          `bun:"lot_id,notnull" json:"lot_id"`
	BidderID       string          `bun:"bidder_id,notnull" json:"bidder_id"`
	Amount         decimal.Decimal `bun:"amount,notnull" json:"amount"`
	Status         BidStatus       `bun:"status,notnull" json:"status"`
	PlacedAt       time.Time       `bun:"placed_at,notnull" json:"placed_at"`
	IdempotencyKey string          `bun:"idempotency_key,nullzero" json:"idempotency_key,omitempty"`
}

type PlaceBidRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// PlaceBidResult is what a bidder gets back after an accepted (or replayed)
// bid, including what the next bidder would have to offer.
type PlaceBidResult struct {
	Bid             *Bid            `json:"bid"`
	NextMinimumBid  decimal.Decimal `json:"next_minimum_bid"`
	PreviousHighest decimal.Decimal `json:"previous_highest"`
	BidCount        int             `json:"bid_count"`
	Extended        bool            `json:"extended"`
	EndAt           time.Time       `json:"end_at"`
	Replayed        bool            `json:"replayed"`
}

type HighestBidResult struct {
	LotID             string          `json:"lot_id"`
	CurrentHighestBid decimal.Decimal `json:"current_highest_bid"`
	CurrentWinnerID   string          `json:"current_winner_id,omitempty"`
	BidCount          int             `json:"bid_count"`
	NextMinimumBid    decimal.Decimal `json:"next_minimum_bid"`
}
