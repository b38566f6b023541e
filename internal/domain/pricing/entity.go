// internal/domain/pricing/entity.go
package pricing

import "prepcoach-service/internal/domain/session"

// All amounts are integer cents. Stripe wants cents and integer math keeps
// the resolver idempotent across display and charge paths.

type DiscountSource string

const (
	SourceNone          DiscountSource = "none"
	SourceUpgradeCredit DiscountSource = "upgrade_credit"
	SourcePromoCode     DiscountSource = "promo_code"
)

// Breakdown is derived, never persisted. Both candidates are kept so callers
// can show why a discount did or did not win.
type Breakdown struct {
	BaseCents          int64          `json:"base_cents"`
	UpgradeCreditCents int64          `json:"upgrade_credit_cents"`
	PromoPercent       int            `json:"promo_percent"`
	PromoCents         int64          `json:"promo_cents"`
	Winner             DiscountSource `json:"winner"`
	DiscountCents      int64          `json:"discount_cents"`
	FinalCents         int64          `json:"final_cents"`
}

// UpgradeCreditCents is the flat credit granted to active subscribers buying
// a one-off session.
const UpgradeCreditCents int64 = 1000

var basePrices = map[session.Kind]int64{
	session.KindQuickText:    900,
	session.KindFullMock:     2900,
	session.KindAudioMock:    4900,
	session.KindSubscription: 1900,
}

// BasePrice returns the catalog price for a session kind.
func BasePrice(kind session.Kind) (int64, bool) {
	p, ok := basePrices[kind]
	return p, ok
}
