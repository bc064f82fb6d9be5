package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment is the buyer obligation for a sold lot: hammer price plus the
// clamped buyer fee. Exactly one per sold lot.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	PaymentID      string          `bun:"payment_id,pk" json:"payment_id"`
	SessionID      string          `bun:"session_id,notnull" json:"session_id"`
	LotID          string          `bun:"lot_id,notnull,unique" json:"lot_id"`
	PayerID        string          `bun:"payer_id,notnull" json:"payer_id"`
	Amount         decimal.Decimal `bun:"amount,notnull" json:"amount"`
	FeeAmount      decimal.Decimal `bun:"fee_amount,notnull" json:"fee_amount"`
	TotalAmount    decimal.Decimal `bun:"total_amount,notnull" json:"total_amount"`
	Status         PaymentStatus   `bun:"status,notnull" json:"status"`
	StripeIntentID string          `bun:"stripe_intent_id,nullzero" json:"stripe_intent_id,omitempty"`
	CreatedAt      time.Time       `bun:"created_at,notnull" json:"created_at"`
}

// Payout is the seller credit for a sold lot: hammer price minus the clamped
// seller fee. Exactly one per sold lot.
type Payout struct {
	bun.BaseModel `bun:"table:payouts"`

	PayoutID  string          `bun:"payout_id,pk" json:"payout_id"`
	SessionID string          `bun:"session_id,notnull" json:"session_id"`
	LotID     string          `bun:"lot_id,notnull,unique" json:"lot_id"`
	SellerID  string          `bun:"seller_id,notnull" json:"seller_id"`
	Amount    decimal.Decimal `bun:"amount,notnull" json:"amount"`
	FeeAmount decimal.Decimal `bun:"fee_amount,notnull" json:"fee_amount"`
	NetAmount decimal.Decimal `bun:"net_amount,notnull" json:"net_amount"`
	Status    PaymentStatus   `bun:"status,notnull" json:"status"`
	CreatedAt time.Time       `bun:"created_at,notnull" json:"created_at"`
}

type LotOutcome string

const (
	LotSold   LotOutcome = "sold"
	LotUnsold LotOutcome = "unsold"
)

const (
	UnsoldNoBids        = "no_bids"
	UnsoldReserveNotMet = "reserve_not_met"
)

// SettlementEntry records the final decision for one lot.
type SettlementEntry struct {
	LotID       string          `json:"lot_id"`
	Outcome     LotOutcome      `json:"outcome"`
	Reason      string          `json:"reason,omitempty"`
	WinnerID    string          `json:"winner_id,omitempty"`
	HammerPrice decimal.Decimal `json:"hammer_price"`
	BuyerFee    decimal.Decimal `json:"buyer_fee"`
	BuyerTotal  decimal.Decimal `json:"buyer_total"`
	SellerFee   decimal.Decimal `json:"seller_fee"`
	SellerNet   decimal.Decimal `json:"seller_net"`
	PaymentID   string          `json:"payment_id,omitempty"`
	PayoutID    string          `json:"payout_id,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// SettlementReport is the per-lot outcome of settling a closed session.
// Settled is true only when every lot was decided without error; a partially
// failed settlement stays retryable and already-settled lots are skipped.
type SettlementReport struct {
	SessionID  string            `json:"session_id"`
	Entries    []SettlementEntry `json:"entries"`
	FailedLots int               `json:"failed_lots"`
	Settled    bool              `json:"settled"`
}
