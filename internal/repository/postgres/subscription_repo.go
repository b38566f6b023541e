// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository answers the one question pricing needs: is this
// email currently a subscriber. Subscription rows themselves are written by
// the external billing reconciliation, not by this service.
type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) HasActiveSubscription(ctx context.Context, email string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM subscriptions
			WHERE email = $1 AND status = 'active' AND current_period_end > now()
		)
	`

	var active bool
	if err := r.db.QueryRow(ctx, query, email).Scan(&active); err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}

	return active, nil
}
