// internal/service/pricing/pricing_service.go
package pricing

import (
	"context"

	"prepcoach-service/internal/domain/pricing"
	"prepcoach-service/internal/domain/session"
	xerrors "prepcoach-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type SubscriptionRepository interface {
	HasActiveSubscription(ctx context.Context, email string) (bool, error)
}

type PricingService struct {
	subscriptions SubscriptionRepository
	logger        *zap.Logger
}

func NewPricingService(subscriptions SubscriptionRepository, logger *zap.Logger) *PricingService {
	return &PricingService{
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// Resolve computes the authoritative price breakdown. Pure: the same inputs
// always yield the same breakdown, whether used for a display estimate or
// the charged amount. The strictly larger candidate wins; a tie goes to the
// promo code because entering it was an explicit user action.
func Resolve(baseCents, upgradeCreditCents int64, promoPercent int) pricing.Breakdown {
	b := pricing.Breakdown{
		BaseCents:          baseCents,
		UpgradeCreditCents: upgradeCreditCents,
		PromoPercent:       promoPercent,
		PromoCents:         baseCents * int64(promoPercent) / 100,
		Winner:             pricing.SourceNone,
	}

	switch {
	case b.PromoCents > 0 && b.PromoCents >= b.UpgradeCreditCents:
		b.Winner = pricing.SourcePromoCode
		b.DiscountCents = b.PromoCents
	case b.UpgradeCreditCents > 0:
		b.Winner = pricing.SourceUpgradeCredit
		b.DiscountCents = b.UpgradeCreditCents
	}

	if b.DiscountCents > b.BaseCents {
		b.DiscountCents = b.BaseCents
	}
	if b.DiscountCents < 0 {
		b.DiscountCents = 0
	}
	b.FinalCents = b.BaseCents - b.DiscountCents

	return b
}

// Quote resolves the price for one purchase: catalog base price, upgrade
// credit if the buyer is a subscriber purchasing a one-off session, and any
// already-validated promo percentage.
func (s *PricingService) Quote(ctx context.Context, kind session.Kind, email string, promoPercent int) (pricing.Breakdown, error) {
	base, ok := pricing.BasePrice(kind)
	if !ok {
		return pricing.Breakdown{}, xerrors.Wrap(xerrors.ErrInvalidInput, "unknown session kind")
	}

	var credit int64
	if kind != session.KindSubscription {
		subscriber, err := s.subscriptions.HasActiveSubscription(ctx, email)
		if err != nil {
			return pricing.Breakdown{}, err
		}
		if subscriber {
			credit = pricing.UpgradeCreditCents
		}
	}

	return Resolve(base, credit, promoPercent), nil
}
