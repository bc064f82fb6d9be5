package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type SessionStatus string

const (
	SessionDraft     SessionStatus = "draft"
	SessionScheduled SessionStatus = "scheduled"
	SessionOpen      SessionStatus = "open"
	SessionPaused    SessionStatus = "paused"
	SessionClosed    SessionStatus = "closed"
	SessionSettled   SessionStatus = "settled"
	SessionCanceled  SessionStatus = "canceled"
)

// SessionRules holds the per-session auction rules. Fee fields are overrides:
// when nil the active TransactionFee configuration applies.
type SessionRules struct {
	AntiSnipingEnabled bool                `bun:"anti_sniping_enabled" json:"anti_sniping_enabled"`
	TriggerWindowSecs  int                 `bun:"trigger_window_secs" json:"trigger_window_secs"`
	ExtensionSecs      int                 `bun:"extension_secs" json:"extension_secs"`
	DepositRequired    bool                `bun:"deposit_required" json:"deposit_required"`
	BuyerFeePct        decimal.NullDecimal `bun:"buyer_fee_pct" json:"buyer_fee_pct"`
	SellerFeePct       decimal.NullDecimal `bun:"seller_fee_pct" json:"seller_fee_pct"`
	MinFee             decimal.NullDecimal `bun:"min_fee" json:"min_fee"`
	MaxFee             decimal.NullDecimal `bun:"max_fee" json:"max_fee"`
}

func (r SessionRules) TriggerWindow() time.Duration {
	return time.Duration(r.TriggerWindowSecs) * time.Second
}

func (r SessionRules) Extension() time.Duration {
	return time.Duration(r.ExtensionSecs) * time.Second
}

type AuctionSession struct {
	bun.BaseModel `bun:"table:auction_sessions"`

	SessionID string        `bun:"session_id,pk" json:"session_id"`
	Code      string        `bun:"code,unique,notnull" json:"code"`
	Name      string        `bun:"name,notnull" json:"name"`
	Status    SessionStatus `bun:"status,notnull" json:"status"`
	StartAt   time.Time     `bun:"start_at,nullzero" json:"start_at,omitempty"`
	EndAt     time.Time     `bun:"end_at,nullzero" json:"end_at,omitempty"`
	ClosedAt  time.Time     `bun:"closed_at,nullzero" json:"closed_at,omitempty"`
	SettledAt time.Time     `bun:"settled_at,nullzero" json:"settled_at,omitempty"`
	Rules     SessionRules  `bun:"embed:rule_" json:"rules"`
	CreatedBy string        `bun:"created_by,nullzero" json:"created_by,omitempty"`
	CreatedAt time.Time     `bun:"created_at,notnull" json:"created_at"`
}

type CreateSessionRequest struct {
	Code  string       `json:"code"`
	Name  string       `json:"name"`
	Rules SessionRules `json:"rules"`
}

type ScheduleSessionRequest struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}
