package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kafka event payloads. Publishing is fire-and-forget: a failed publish is
// logged and never rolls back the write that produced it.

type BidAcceptedEvent struct {
	SessionID      string          `json:"session_id"`
	LotID          string          `json:"lot_id"`
	BidID          string          `json:"bid_id"`
	BidderID       string          `json:"bidder_id"`
	Amount         decimal.Decimal `json:"amount"`
	NextMinimumBid decimal.Decimal `json:"next_minimum_bid"`
	PlacedAt       time.Time       `json:"placed_at"`
}

type SessionExtendedEvent struct {
	SessionID string    `json:"session_id"`
	LotID     string    `json:"lot_id"`
	OldEndAt  time.Time `json:"old_end_at"`
	NewEndAt  time.Time `json:"new_end_at"`
}

type LotSettledEvent struct {
	SessionID   string          `json:"session_id"`
	LotID       string          `json:"lot_id"`
	Outcome     LotOutcome      `json:"outcome"`
	Reason      string          `json:"reason,omitempty"`
	WinnerID    string          `json:"winner_id,omitempty"`
	HammerPrice decimal.Decimal `json:"hammer_price"`
	SettledAt   time.Time       `json:"settled_at"`
}
