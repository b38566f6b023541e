// internal/domain/discount/entity.go
package discount

import (
	"time"

	"github.com/lib/pq"
)

// Code is an operator-created promo code. Read-only to the core; redemption
// bookkeeping lives in Redemption rows, never mutated here.
type Code struct {
	ID          int64  `json:"id" db:"id"`
	Code        string `json:"code" db:"code"` // stored uppercase, matched case-insensitively
	Percent     int    `json:"percent" db:"percent"`
	Description string `json:"description" db:"description"`

	// Activation window, either side optional.
	ValidFrom  *time.Time `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil *time.Time `json:"valid_until,omitempty" db:"valid_until"`

	// Allow-list of session kinds; empty means all kinds.
	ApplicableKinds pq.StringArray `json:"applicable_kinds,omitempty" db:"applicable_kinds"`

	// Total redemption cap across all users; nil means unlimited.
	MaxRedemptions *int32 `json:"max_redemptions,omitempty" db:"max_redemptions"`

	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AppliesTo reports whether the code's kind allow-list admits the given kind.
func (c *Code) AppliesTo(kind string) bool {
	if len(c.ApplicableKinds) == 0 {
		return true
	}
	for _, k := range c.ApplicableKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// WithinWindow reports whether now falls inside the activation window.
func (c *Code) WithinWindow(now time.Time) bool {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}

// Redemption records one (code, email) use. The unique constraint on
// (code_id, email) is the authority; rows are never deleted.
type Redemption struct {
	ID          int64     `json:"id" db:"id"`
	CodeID      int64     `json:"code_id" db:"code_id"`
	Reference   string    `json:"reference" db:"reference"`
	Email       string    `json:"email" db:"email"`
	SessionKind string    `json:"session_kind" db:"session_kind"`
	RedeemedAt  time.Time `json:"redeemed_at" db:"redeemed_at"`
}
