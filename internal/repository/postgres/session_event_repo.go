// internal/repository/postgres/session_event_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"prepcoach-service/internal/domain/session"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionEventRepository struct {
	db *pgxpool.Pool
}

func NewSessionEventRepository(db *pgxpool.Pool) *SessionEventRepository {
	return &SessionEventRepository{db: db}
}

// Insert writes one diagnostic event. Callers treat failures as best-effort.
func (r *SessionEventRepository) Insert(ctx context.Context, e *session.Event) error {
	var contextJSON []byte
	var err error

	if e.Context != nil {
		contextJSON, err = json.Marshal(e.Context)
		if err != nil {
			return fmt.Errorf("failed to marshal event context: %w", err)
		}
	}

	query := `
		INSERT INTO session_events (session_id, email, event_type, message, code, context)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err = r.db.QueryRow(ctx, query,
		e.SessionID, e.Email, e.EventType, e.Message, e.Code, contextJSON,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session event: %w", err)
	}

	return nil
}
