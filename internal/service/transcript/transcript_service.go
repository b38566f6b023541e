// internal/service/transcript/transcript_service.go
package transcript

import (
	"context"
	"strings"

	"prepcoach-service/internal/domain/session"
	xerrors "prepcoach-service/internal/pkg/errors"
	"prepcoach-service/internal/sequencer"

	"go.uber.org/zap"
)

type TranscriptRepository interface {
	Append(ctx context.Context, t *session.Turn) error
	List(ctx context.Context, sessionID string, limit int) ([]session.Turn, error)
}

type SessionRepository interface {
	FindOwned(ctx context.Context, id, email string) (*session.CoachingSession, error)
	Transition(ctx context.Context, id string, from, to session.Status) (bool, error)
}

// TurnPublisher receives committed turns for live delivery. Optional and
// strictly best-effort; publication is outside the append transaction.
type TurnPublisher interface {
	PublishTurn(sessionID string, t session.Turn)
}

// TranscriptService turns possibly-overlapping append requests into a
// strictly ordered durable transcript. All writes for one session funnel
// through the sequencer, which also makes question numbering race-free.
type TranscriptService struct {
	turns        TranscriptRepository
	sessions     SessionRepository
	seq          *sequencer.Sequencer
	feed         TurnPublisher
	historyLimit int
	logger       *zap.Logger
}

func NewTranscriptService(
	turns TranscriptRepository,
	sessions SessionRepository,
	seq *sequencer.Sequencer,
	feed TurnPublisher,
	historyLimit int,
	logger *zap.Logger,
) *TranscriptService {
	return &TranscriptService{
		turns:        turns,
		sessions:     sessions,
		seq:          seq,
		feed:         feed,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Append queues the turn behind all earlier appends for the session and
// waits for the committed position. The ownership check runs inside the
// serialized task so it sees the session state the write will see. The
// first turn against a pending session activates it.
func (s *TranscriptService) Append(ctx context.Context, sessionID string, req *session.AppendTurnRequest) (*session.AppendTurnResponse, error) {
	var resp session.AppendTurnResponse

	err := s.seq.Do(ctx, sessionID, func(taskCtx context.Context) error {
		sess, err := s.sessions.FindOwned(taskCtx, sessionID, req.Email)
		if err != nil {
			return err
		}

		switch sess.Status {
		case session.StatusActive:
		case session.StatusPending:
			ok, err := s.sessions.Transition(taskCtx, sessionID, session.StatusPending, session.StatusActive)
			if err != nil {
				return err
			}
			if !ok {
				return xerrors.Wrap(xerrors.ErrInvalidTransition, "session left pending before first turn")
			}
			s.logger.Info("session activated by first turn", zap.String("session_id", sessionID))
		default:
			return xerrors.Wrap(xerrors.ErrInvalidTransition, "turns can only be appended to an active session")
		}

		questionNumber := req.QuestionNumber
		if questionNumber == nil && req.Role == session.RoleAssistant && posesNewQuestion(req.Content) {
			next := sess.QuestionNumber + 1
			questionNumber = &next
		}

		t := session.Turn{
			SessionID:      sessionID,
			Role:           req.Role,
			Content:        req.Content,
			QuestionNumber: questionNumber,
		}
		if err := s.turns.Append(taskCtx, &t); err != nil {
			return err
		}

		resp.Position = t.Position
		resp.QuestionNumber = t.QuestionNumber

		if s.feed != nil {
			s.feed.PublishTurn(sessionID, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// History returns the transcript oldest first, capped at the history limit.
// Re-reading after a suspected failed append is always safe.
func (s *TranscriptService) History(ctx context.Context, sessionID, email string) ([]session.Turn, error) {
	if _, err := s.sessions.FindOwned(ctx, sessionID, email); err != nil {
		return nil, err
	}

	return s.turns.List(ctx, sessionID, s.historyLimit)
}

// posesNewQuestion judges whether assistant content asks the candidate a new
// question. An interrogative near the end of the message counts; question
// marks buried early in a long explanation do not.
func posesNewQuestion(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}

	runes := []rune(trimmed)
	tail := runes
	if len(runes) > 200 {
		tail = runes[len(runes)-200:]
	}
	return strings.ContainsRune(string(tail), '?')
}
