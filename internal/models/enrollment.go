package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentApproved  EnrollmentStatus = "approved"
	EnrollmentRejected  EnrollmentStatus = "rejected"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// Enrollment gates bidding eligibility: a bidder needs an APPROVED enrollment
// (and a paid deposit when the session requires one) before placing bids.
type Enrollment struct {
	bun.BaseModel `bun:"table:enrollments"`

	EnrollmentID string           `bun:"enrollment_id,pk" json:"enrollment_id"`
	SessionID    string           `bun:"session_id,notnull" json:"session_id"`
	UserID       string           `bun:"user_id,notnull" json:"user_id"`
	Status       EnrollmentStatus `bun:"status,notnull" json:"status"`
	DepositPaid  bool             `bun:"deposit_paid,notnull" json:"deposit_paid"`
	CreatedAt    time.Time        `bun:"created_at,notnull" json:"created_at"`
}
