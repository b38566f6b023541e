// internal/repository/postgres/discount_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prepcoach-service/internal/domain/discount"
	xerrors "prepcoach-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DiscountRepository struct {
	db *DB
}

func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{db: NewDB(pool)}
}

// Create inserts an operator-defined code. Codes are stored uppercase so
// lookups stay case-insensitive.
func (r *DiscountRepository) Create(ctx context.Context, c *discount.Code) error {
	query := `
		INSERT INTO discount_codes (code, percent, description, valid_from, valid_until, applicable_kinds, max_redemptions, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.Pool().QueryRow(
		ctx, query,
		strings.ToUpper(c.Code), c.Percent, c.Description,
		c.ValidFrom, c.ValidUntil, c.ApplicableKinds, c.MaxRedemptions, c.Active,
	).Scan(&c.ID, &c.CreatedAt)
	if isUniqueViolation(err) {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "code already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to create discount code: %w", err)
	}

	c.Code = strings.ToUpper(c.Code)
	return nil
}

// FindActiveByCode looks up an active code, case-insensitively.
func (r *DiscountRepository) FindActiveByCode(ctx context.Context, code string) (*discount.Code, error) {
	query := `
		SELECT id, code, percent, description, valid_from, valid_until, applicable_kinds, max_redemptions, active, created_at
		FROM discount_codes
		WHERE code = $1 AND active = TRUE
	`

	var c discount.Code
	err := r.db.Pool().QueryRow(ctx, query, strings.ToUpper(code)).Scan(
		&c.ID, &c.Code, &c.Percent, &c.Description,
		&c.ValidFrom, &c.ValidUntil, &c.ApplicableKinds,
		&c.MaxRedemptions, &c.Active, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find discount code: %w", err)
	}

	return &c, nil
}

// Reserve records one redemption for (code, email) atomically with respect
// to concurrent attempts on the same code. The code row is locked for the
// duration of the transaction so the count-then-insert at the max_uses
// boundary cannot admit two winners; the unique (code_id, email) constraint
// backstops the per-user check.
func (r *DiscountRepository) Reserve(ctx context.Context, red *discount.Redemption, maxRedemptions *int32) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM discount_codes WHERE id = $1 FOR UPDATE`, red.CodeID,
		).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return xerrors.ErrCodeNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock discount code: %w", err)
		}

		var alreadyRedeemed bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM discount_redemptions WHERE code_id = $1 AND email = $2)`,
			red.CodeID, red.Email,
		).Scan(&alreadyRedeemed)
		if err != nil {
			return fmt.Errorf("failed to check prior redemption: %w", err)
		}
		if alreadyRedeemed {
			return xerrors.ErrAlreadyRedeemed
		}

		if maxRedemptions != nil {
			var count int32
			err = tx.QueryRow(ctx,
				`SELECT COUNT(*) FROM discount_redemptions WHERE code_id = $1`, red.CodeID,
			).Scan(&count)
			if err != nil {
				return fmt.Errorf("failed to count redemptions: %w", err)
			}
			if count >= *maxRedemptions {
				return xerrors.ErrMaxRedemptionsReached
			}
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO discount_redemptions (code_id, reference, email, session_kind)
			VALUES ($1, $2, $3, $4)
			RETURNING id, redeemed_at
		`, red.CodeID, red.Reference, red.Email, red.SessionKind).
			Scan(&red.ID, &red.RedeemedAt)
		if isUniqueViolation(err) {
			return xerrors.ErrAlreadyRedeemed
		}
		if err != nil {
			return fmt.Errorf("failed to record redemption: %w", err)
		}

		return nil
	})
}
