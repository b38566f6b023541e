// internal/repository/postgres/transcript_repo.go
package postgres

import (
	"context"
	"fmt"

	"prepcoach-service/internal/domain/session"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TranscriptRepository struct {
	db *DB
}

func NewTranscriptRepository(pool *pgxpool.Pool) *TranscriptRepository {
	return &TranscriptRepository{db: NewDB(pool)}
}

// Append persists a turn at position max+1 and, when the turn carries a new
// question number, advances the session counter in the same transaction.
// Callers must hold the session's sequencer slot: the MAX(position)+1 read
// is only race-free because appends for one session never run concurrently.
// The unique (session_id, position) constraint backstops that assumption.
func (r *TranscriptRepository) Append(ctx context.Context, t *session.Turn) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO session_turns (session_id, role, content, position, question_number)
			SELECT $1, $2, $3, COALESCE(MAX(position), 0) + 1, $4
			FROM session_turns
			WHERE session_id = $1
			RETURNING id, position, created_at
		`

		err := tx.QueryRow(ctx, insert, t.SessionID, t.Role, t.Content, t.QuestionNumber).
			Scan(&t.ID, &t.Position, &t.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to append turn: %w", err)
		}

		if t.QuestionNumber == nil {
			return nil
		}

		bump := `
			UPDATE coaching_sessions
			SET question_number = GREATEST(question_number, $2), updated_at = now()
			WHERE id = $1
		`
		if _, err := tx.Exec(ctx, bump, t.SessionID, *t.QuestionNumber); err != nil {
			return fmt.Errorf("failed to advance question counter: %w", err)
		}

		return nil
	})
}

// List returns the session's turns oldest first, capped at limit.
func (r *TranscriptRepository) List(ctx context.Context, sessionID string, limit int) ([]session.Turn, error) {
	query := `
		SELECT id, session_id, role, content, position, question_number, created_at
		FROM session_turns
		WHERE session_id = $1
		ORDER BY position ASC
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	turns := []session.Turn{}
	for rows.Next() {
		var t session.Turn
		if err := rows.Scan(
			&t.ID, &t.SessionID, &t.Role, &t.Content,
			&t.Position, &t.QuestionNumber, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}

	return turns, rows.Err()
}

// Count reports the number of turns in a session.
func (r *TranscriptRepository) Count(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM session_turns WHERE session_id = $1`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return count, nil
}
