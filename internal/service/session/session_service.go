// internal/service/session/session_service.go
package session

import (
	"context"
	"time"

	"prepcoach-service/internal/domain/session"
	xerrors "prepcoach-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type SessionRepository interface {
	Create(ctx context.Context, s *session.CoachingSession) error
	FindOwned(ctx context.Context, id, email string) (*session.CoachingSession, error)
	FindPausedByEmail(ctx context.Context, email string) ([]session.CoachingSession, error)
	Transition(ctx context.Context, id string, from, to session.Status) (bool, error)
	Pause(ctx context.Context, id string, questionNumber int, pausedAt time.Time) (bool, error)
	Resume(ctx context.Context, id string) (bool, error)
}

type EventRepository interface {
	Insert(ctx context.Context, e *session.Event) error
}

type TurnReader interface {
	List(ctx context.Context, sessionID string, limit int) ([]session.Turn, error)
}

// SessionService owns the lifecycle state machine and the pause/resume
// arbitration. Every mutation is a validated compare-and-swap: a transition
// that loses a race never leaves partial writes behind.
type SessionService struct {
	sessions     SessionRepository
	events       EventRepository
	turns        TurnReader
	retention    time.Duration
	historyLimit int
	logger       *zap.Logger
	now          func() time.Time
}

func NewSessionService(
	sessions SessionRepository,
	events EventRepository,
	turns TurnReader,
	retention time.Duration,
	historyLimit int,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions:     sessions,
		events:       events,
		turns:        turns,
		retention:    retention,
		historyLimit: historyLimit,
		logger:       logger,
		now:          time.Now,
	}
}

// Start explicitly promotes a pending session to active. Appending a first
// turn does the same implicitly.
func (s *SessionService) Start(ctx context.Context, id, email string) (*session.CoachingSession, error) {
	sess, err := s.sessions.FindOwned(ctx, id, email)
	if err != nil {
		return nil, err
	}

	if sess.Status == session.StatusActive {
		return sess, nil
	}
	if !session.CanTransition(sess.Status, session.StatusActive) || sess.Status == session.StatusPaused {
		return nil, xerrors.Wrap(xerrors.ErrInvalidTransition, "only a pending session can be started")
	}

	ok, err := s.sessions.Transition(ctx, id, session.StatusPending, session.StatusActive)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race; re-read to report what actually happened.
		sess, err = s.sessions.FindOwned(ctx, id, email)
		if err != nil {
			return nil, err
		}
		if sess.Status == session.StatusActive {
			return sess, nil
		}
		return nil, xerrors.ErrInvalidTransition
	}

	s.logger.Info("session started", zap.String("session_id", id))
	return s.sessions.FindOwned(ctx, id, email)
}

// Pause moves an active session to paused, recording when and on which
// question the candidate stopped.
func (s *SessionService) Pause(ctx context.Context, id, email string, questionNumber int) error {
	sess, err := s.sessions.FindOwned(ctx, id, email)
	if err != nil {
		return err
	}
	if sess.Status != session.StatusActive {
		return xerrors.Wrap(xerrors.ErrInvalidTransition, "only an active session can be paused")
	}

	ok, err := s.sessions.Pause(ctx, id, questionNumber, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.ErrInvalidTransition
	}

	s.logger.Info("session paused",
		zap.String("session_id", id),
		zap.Int("question_number", questionNumber),
	)
	return nil
}

// Resume reactivates a paused session and returns the accumulated history.
// Past the retention window it reports Expired without touching the row;
// expiry is detected lazily, there is no background sweep.
func (s *SessionService) Resume(ctx context.Context, id, email string) (*session.CoachingSession, []session.Turn, error) {
	sess, err := s.sessions.FindOwned(ctx, id, email)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status != session.StatusPaused {
		return nil, nil, xerrors.Wrap(xerrors.ErrInvalidTransition, "only a paused session can be resumed")
	}
	if s.isExpired(sess) {
		return nil, nil, xerrors.ErrSessionExpired
	}

	ok, err := s.sessions.Resume(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, xerrors.ErrAlreadyResolved
	}

	turns, err := s.turns.List(ctx, id, s.historyLimit)
	if err != nil {
		return nil, nil, err
	}

	sess, err = s.sessions.FindOwned(ctx, id, email)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("session resumed", zap.String("session_id", id))
	return sess, turns, nil
}

// Abandon discards a session so the owner can start a new one. Losing the
// race to another tab is reported as already resolved, never as a failure.
func (s *SessionService) Abandon(ctx context.Context, id, email string) (*session.AbandonResponse, error) {
	sess, err := s.sessions.FindOwned(ctx, id, email)
	if err != nil {
		return nil, err
	}

	if sess.Status.Terminal() {
		return &session.AbandonResponse{AlreadyResolved: true, Status: sess.Status}, nil
	}
	if sess.Status != session.StatusActive && sess.Status != session.StatusPaused {
		return nil, xerrors.Wrap(xerrors.ErrInvalidTransition, "session cannot be abandoned from its current state")
	}

	ok, err := s.sessions.Transition(ctx, id, sess.Status, session.StatusAbandoned)
	if err != nil {
		return nil, err
	}
	if !ok {
		sess, err = s.sessions.FindOwned(ctx, id, email)
		if err != nil {
			return nil, err
		}
		return &session.AbandonResponse{AlreadyResolved: true, Status: sess.Status}, nil
	}

	s.logger.Info("session abandoned", zap.String("session_id", id))
	return &session.AbandonResponse{Status: session.StatusAbandoned}, nil
}

// Complete ends an active session normally.
func (s *SessionService) Complete(ctx context.Context, id, email string) error {
	sess, err := s.sessions.FindOwned(ctx, id, email)
	if err != nil {
		return err
	}
	if sess.Status != session.StatusActive {
		return xerrors.Wrap(xerrors.ErrInvalidTransition, "only an active session can be completed")
	}

	ok, err := s.sessions.Transition(ctx, id, session.StatusActive, session.StatusCompleted)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.ErrInvalidTransition
	}

	s.logger.Info("session completed", zap.String("session_id", id))
	return nil
}

// PausedSessions lists the owner's paused sessions, flagging expiry lazily.
func (s *SessionService) PausedSessions(ctx context.Context, email string) ([]session.CoachingSession, error) {
	return s.sessions.FindPausedByEmail(ctx, email)
}

// CheckForConflict returns the paused session blocking a new purchase, or
// nil when the owner is free to start one. The choice between resume and
// abandon always belongs to the user; nothing here resolves it silently.
func (s *SessionService) CheckForConflict(ctx context.Context, email string) (*session.CoachingSession, error) {
	paused, err := s.sessions.FindPausedByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	for i := range paused {
		if !s.isExpired(&paused[i]) {
			return &paused[i], nil
		}
	}
	return nil, nil
}

// LogEvent records a diagnostic event. Ownership is still checked, but
// storage failures are swallowed: diagnostics never block the primary flow.
func (s *SessionService) LogEvent(ctx context.Context, id string, req *session.LogEventRequest) error {
	if _, err := s.sessions.FindOwned(ctx, id, req.Email); err != nil {
		return err
	}

	e := &session.Event{
		SessionID: id,
		Email:     req.Email,
		EventType: req.EventType,
		Message:   req.Message,
		Code:      req.Code,
		Context:   req.Context,
	}
	if err := s.events.Insert(ctx, e); err != nil {
		s.logger.Warn("failed to record session event",
			zap.String("session_id", id),
			zap.String("event_type", req.EventType),
			zap.Error(err),
		)
	}

	return nil
}

func (s *SessionService) isExpired(sess *session.CoachingSession) bool {
	return sess.PausedAt != nil && s.now().Sub(*sess.PausedAt) > s.retention
}
