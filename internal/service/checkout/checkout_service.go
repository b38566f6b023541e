// internal/service/checkout/checkout_service.go
package checkout

import (
	"context"
	"fmt"

	"prepcoach-service/internal/domain/discount"
	pricingdomain "prepcoach-service/internal/domain/pricing"
	"prepcoach-service/internal/domain/session"
	xerrors "prepcoach-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type SessionRepository interface {
	Create(ctx context.Context, s *session.CoachingSession) error
	SetStripeSession(ctx context.Context, id, stripeSessionID string) error
	MarkPaid(ctx context.Context, stripeSessionID, paymentRef string) error
	MarkPaidByID(ctx context.Context, id, paymentRef string) error
}

type ConflictChecker interface {
	CheckForConflict(ctx context.Context, email string) (*session.CoachingSession, error)
}

type DiscountLedger interface {
	ValidateAndReserve(ctx context.Context, code, email, kind string) (*discount.Code, error)
}

type Pricer interface {
	Quote(ctx context.Context, kind session.Kind, email string, promoPercent int) (pricingdomain.Breakdown, error)
}

// PaymentClient is the delegation boundary to the payment processor. The
// checkout UI itself is the processor's; we only hold its references.
type PaymentClient interface {
	CreateCheckoutSession(ctx context.Context, p PaymentParams) (url, ref string, err error)
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

type PaymentParams struct {
	SessionID   string
	Email       string
	ProductName string
	AmountCents int64
}

type WebhookEvent struct {
	Type             string
	CheckoutRef      string
	PaymentReference string
}

type CreateCheckoutRequest struct {
	Kind  session.Kind `json:"kind" binding:"required"`
	Email string       `json:"email" binding:"required,email"`
	Code  *string      `json:"code"`
}

type CreateCheckoutResult struct {
	SessionID   string                  `json:"session_id"`
	CheckoutURL string                  `json:"checkout_url,omitempty"`
	Paid        bool                    `json:"paid"`
	Breakdown   pricingdomain.Breakdown `json:"breakdown"`
}

// ConflictError carries the paused session blocking the purchase so the
// caller can offer resume or abandon.
type ConflictError struct {
	PausedSession *session.CoachingSession
}

func (e *ConflictError) Error() string { return xerrors.ErrSessionConflict.Error() }

func (e *ConflictError) Unwrap() error { return xerrors.ErrSessionConflict }

// CheckoutService resolves price and discount atomically at purchase time
// and creates the pending session the payment will attach to.
type CheckoutService struct {
	sessions  SessionRepository
	conflicts ConflictChecker
	discounts DiscountLedger
	pricing   Pricer
	payments  PaymentClient
	logger    *zap.Logger
}

func NewCheckoutService(
	sessions SessionRepository,
	conflicts ConflictChecker,
	discounts DiscountLedger,
	pricing Pricer,
	payments PaymentClient,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		sessions:  sessions,
		conflicts: conflicts,
		discounts: discounts,
		pricing:   pricing,
		payments:  payments,
		logger:    logger,
	}
}

var productNames = map[session.Kind]string{
	session.KindQuickText:    "Quick Text Interview Packet",
	session.KindFullMock:     "Full Mock Interview",
	session.KindAudioMock:    "Audio Mock Interview",
	session.KindSubscription: "Coaching Subscription (first month)",
}

// CreateCheckout runs the purchase pipeline: conflict check, optional promo
// reservation, pricing, pending session creation, processor hand-off. An
// unresolved paused session stops everything before any state is written.
func (s *CheckoutService) CreateCheckout(ctx context.Context, req *CreateCheckoutRequest) (*CreateCheckoutResult, error) {
	if !req.Kind.Valid() {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "unknown session kind")
	}

	paused, err := s.conflicts.CheckForConflict(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if paused != nil {
		return nil, &ConflictError{PausedSession: paused}
	}

	promoPercent := 0
	if req.Code != nil && *req.Code != "" {
		code, err := s.discounts.ValidateAndReserve(ctx, *req.Code, req.Email, string(req.Kind))
		if err != nil {
			return nil, err
		}
		promoPercent = code.Percent
	}

	breakdown, err := s.pricing.Quote(ctx, req.Kind, req.Email, promoPercent)
	if err != nil {
		return nil, err
	}

	sess := &session.CoachingSession{
		ID:     ulid.Make().String(),
		Email:  req.Email,
		Kind:   req.Kind,
		Status: session.StatusPending,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	result := &CreateCheckoutResult{
		SessionID: sess.ID,
		Breakdown: breakdown,
	}

	if breakdown.FinalCents == 0 {
		// Fully discounted; nothing to collect, skip the processor.
		ref := "free_" + ulid.Make().String()
		if err := s.sessions.MarkPaidByID(ctx, sess.ID, ref); err != nil {
			return nil, err
		}
		result.Paid = true

		s.logger.Info("free checkout completed",
			zap.String("session_id", sess.ID),
			zap.String("kind", string(req.Kind)),
		)
		return result, nil
	}

	url, ref, err := s.payments.CreateCheckoutSession(ctx, PaymentParams{
		SessionID:   sess.ID,
		Email:       req.Email,
		ProductName: productNames[req.Kind],
		AmountCents: breakdown.FinalCents,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create processor checkout: %w", err)
	}

	if err := s.sessions.SetStripeSession(ctx, sess.ID, ref); err != nil {
		return nil, err
	}
	result.CheckoutURL = url

	s.logger.Info("checkout created",
		zap.String("session_id", sess.ID),
		zap.String("kind", string(req.Kind)),
		zap.Int64("amount_cents", breakdown.FinalCents),
		zap.String("winner", string(breakdown.Winner)),
	)
	return result, nil
}

// HandleWebhook reconciles the processor's completion event onto the pending
// session. Unknown event types are acknowledged and ignored.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.payments.VerifyWebhook(payload, signature)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrUnauthorized, "webhook signature verification failed")
	}

	if event.Type != "checkout.session.completed" {
		return nil
	}

	if err := s.sessions.MarkPaid(ctx, event.CheckoutRef, event.PaymentReference); err != nil {
		s.logger.Error("failed to reconcile completed checkout",
			zap.String("checkout_ref", event.CheckoutRef),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("checkout completed",
		zap.String("checkout_ref", event.CheckoutRef),
	)
	return nil
}
