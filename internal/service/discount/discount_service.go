// internal/service/discount/discount_service.go
package discount

import (
	"context"
	"strings"
	"time"

	"prepcoach-service/internal/domain/discount"
	xerrors "prepcoach-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type DiscountRepository interface {
	Create(ctx context.Context, c *discount.Code) error
	FindActiveByCode(ctx context.Context, code string) (*discount.Code, error)
	Reserve(ctx context.Context, red *discount.Redemption, maxRedemptions *int32) error
}

// DiscountService is the ledger for one-time promo codes. Validation runs in
// a fixed order so every rejection reason is distinct and user-displayable;
// the repository makes the redeemed/max checks atomic against concurrent
// attempts on the same code.
type DiscountService struct {
	codes  DiscountRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewDiscountService(codes DiscountRepository, logger *zap.Logger) *DiscountService {
	return &DiscountService{
		codes:  codes,
		logger: logger,
		now:    time.Now,
	}
}

// ValidateAndReserve checks a code against the caller and product kind and,
// if every check passes, records the redemption. First failing check wins:
// exists/active, window, kind, already-redeemed, redemption cap. Rejections
// mutate nothing.
func (s *DiscountService) ValidateAndReserve(ctx context.Context, code, email, kind string) (*discount.Code, error) {
	c, err := s.codes.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !c.WithinWindow(s.now()) {
		return nil, xerrors.ErrCodeExpired
	}
	if !c.AppliesTo(kind) {
		return nil, xerrors.ErrCodeNotApplicable
	}

	red := &discount.Redemption{
		CodeID:      c.ID,
		Reference:   ulid.Make().String(),
		Email:       email,
		SessionKind: kind,
	}
	if err := s.codes.Reserve(ctx, red, c.MaxRedemptions); err != nil {
		return nil, err
	}

	s.logger.Info("discount code redeemed",
		zap.String("code", c.Code),
		zap.String("reference", red.Reference),
		zap.String("kind", kind),
	)
	return c, nil
}

// CreateCode registers an operator-defined code.
func (s *DiscountService) CreateCode(ctx context.Context, req *discount.CreateCodeRequest) (*discount.Code, error) {
	if req.ValidFrom != nil && req.ValidUntil != nil && req.ValidUntil.Before(*req.ValidFrom) {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "valid_until must be after valid_from")
	}

	c := &discount.Code{
		Code:            strings.ToUpper(strings.TrimSpace(req.Code)),
		Percent:         req.Percent,
		Description:     req.Description,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
		ApplicableKinds: req.ApplicableKinds,
		MaxRedemptions:  req.MaxRedemptions,
		Active:          true,
	}
	if c.Code == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "code must not be empty")
	}

	if err := s.codes.Create(ctx, c); err != nil {
		s.logger.Error("failed to create discount code", zap.Error(err))
		return nil, err
	}

	s.logger.Info("discount code created",
		zap.String("code", c.Code),
		zap.Int("percent", c.Percent),
	)
	return c, nil
}
