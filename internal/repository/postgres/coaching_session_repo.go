// internal/repository/postgres/coaching_session_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prepcoach-service/internal/domain/session"
	xerrors "prepcoach-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, email, kind, status, question_number, payment_ref, stripe_session_id, created_at, paused_at, updated_at`

type CoachingSessionRepository struct {
	db *pgxpool.Pool
}

func NewCoachingSessionRepository(db *pgxpool.Pool) *CoachingSessionRepository {
	return &CoachingSessionRepository{db: db}
}

// Create inserts a new session. A unique-violation on the partial active
// index means the owner already has an active session.
func (r *CoachingSessionRepository) Create(ctx context.Context, s *session.CoachingSession) error {
	query := `
		INSERT INTO coaching_sessions (id, email, kind, status, question_number)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, s.ID, s.Email, s.Kind, s.Status, s.QuestionNumber).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if isUniqueViolation(err) {
		return xerrors.ErrSessionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// FindOwned loads a session and enforces the ownership trust boundary: a
// session owned by someone else is indistinguishable from a missing one.
func (r *CoachingSessionRepository) FindOwned(ctx context.Context, id, email string) (*session.CoachingSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM coaching_sessions WHERE id = $1 AND email = $2`, sessionColumns)

	s, err := scanSession(r.db.QueryRow(ctx, query, id, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return s, nil
}

// FindPausedByEmail returns the owner's paused sessions, newest pause first.
func (r *CoachingSessionRepository) FindPausedByEmail(ctx context.Context, email string) ([]session.CoachingSession, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM coaching_sessions
		WHERE email = $1 AND status = $2
		ORDER BY paused_at DESC
	`, sessionColumns)

	rows, err := r.db.Query(ctx, query, email, session.StatusPaused)
	if err != nil {
		return nil, fmt.Errorf("failed to list paused sessions: %w", err)
	}
	defer rows.Close()

	sessions := []session.CoachingSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}

	return sessions, rows.Err()
}

// Transition is the compare-and-swap for plain status moves. It returns
// false when the row was not in the expected from status; the caller decides
// whether that is NotFound, InvalidTransition or a benign race.
func (r *CoachingSessionRepository) Transition(ctx context.Context, id string, from, to session.Status) (bool, error) {
	query := `
		UPDATE coaching_sessions
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`

	tag, err := r.db.Exec(ctx, query, id, from, to)
	if isUniqueViolation(err) {
		return false, xerrors.ErrSessionConflict
	}
	if err != nil {
		return false, fmt.Errorf("failed to transition session: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Pause moves active -> paused, stamping the pause time and the question the
// candidate was on.
func (r *CoachingSessionRepository) Pause(ctx context.Context, id string, questionNumber int, pausedAt time.Time) (bool, error) {
	query := `
		UPDATE coaching_sessions
		SET status = $2, paused_at = $3, question_number = $4, updated_at = now()
		WHERE id = $1 AND status = $5
	`

	tag, err := r.db.Exec(ctx, query, id, session.StatusPaused, pausedAt, questionNumber, session.StatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to pause session: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Resume moves paused -> active and clears the pause timestamp. The partial
// unique index on (email) WHERE status='active' rejects a second active
// session for the same owner at the storage layer.
func (r *CoachingSessionRepository) Resume(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE coaching_sessions
		SET status = $2, paused_at = NULL, updated_at = now()
		WHERE id = $1 AND status = $3
	`

	tag, err := r.db.Exec(ctx, query, id, session.StatusActive, session.StatusPaused)
	if isUniqueViolation(err) {
		return false, xerrors.ErrSessionConflict
	}
	if err != nil {
		return false, fmt.Errorf("failed to resume session: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// SetQuestionNumber bumps the per-session question counter, never backwards.
func (r *CoachingSessionRepository) SetQuestionNumber(ctx context.Context, id string, questionNumber int) error {
	query := `
		UPDATE coaching_sessions
		SET question_number = GREATEST(question_number, $2), updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, questionNumber)
	if err != nil {
		return fmt.Errorf("failed to set question number: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// SetStripeSession records the payment processor's checkout reference.
func (r *CoachingSessionRepository) SetStripeSession(ctx context.Context, id, stripeSessionID string) error {
	query := `
		UPDATE coaching_sessions
		SET stripe_session_id = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, stripeSessionID)
	if err != nil {
		return fmt.Errorf("failed to set stripe session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// MarkPaid stamps the payment reference delivered by the processor webhook,
// matched on the checkout reference recorded at creation time.
func (r *CoachingSessionRepository) MarkPaid(ctx context.Context, stripeSessionID, paymentRef string) error {
	query := `
		UPDATE coaching_sessions
		SET payment_ref = $2, updated_at = now()
		WHERE stripe_session_id = $1
	`

	tag, err := r.db.Exec(ctx, query, stripeSessionID, paymentRef)
	if err != nil {
		return fmt.Errorf("failed to mark session paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// MarkPaidByID is the direct variant used for free-after-discount checkouts
// that never reach the processor.
func (r *CoachingSessionRepository) MarkPaidByID(ctx context.Context, id, paymentRef string) error {
	query := `
		UPDATE coaching_sessions
		SET payment_ref = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, paymentRef)
	if err != nil {
		return fmt.Errorf("failed to mark session paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*session.CoachingSession, error) {
	var s session.CoachingSession
	err := row.Scan(
		&s.ID, &s.Email, &s.Kind, &s.Status, &s.QuestionNumber,
		&s.PaymentRef, &s.StripeSessionID,
		&s.CreatedAt, &s.PausedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
