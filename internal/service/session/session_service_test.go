package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"prepcoach-service/internal/domain/session"
	xerrors "prepcoach-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type stubSessionRepo struct {
	mu          sync.Mutex
	sessions    map[string]*session.CoachingSession
	resumeCalls int
}

func newStubSessionRepo(sessions ...*session.CoachingSession) *stubSessionRepo {
	r := &stubSessionRepo{sessions: make(map[string]*session.CoachingSession)}
	for _, s := range sessions {
		r.sessions[s.ID] = s
	}
	return r
}

func (r *stubSessionRepo) Create(ctx context.Context, s *session.CoachingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *stubSessionRepo) FindOwned(ctx context.Context, id, email string) (*session.CoachingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Email != email {
		return nil, xerrors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubSessionRepo) FindPausedByEmail(ctx context.Context, email string) ([]session.CoachingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []session.CoachingSession
	for _, s := range r.sessions {
		if s.Email == email && s.Status == session.StatusPaused {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *stubSessionRepo) Transition(ctx context.Context, id string, from, to session.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (r *stubSessionRepo) Pause(ctx context.Context, id string, questionNumber int, pausedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Status != session.StatusActive {
		return false, nil
	}
	s.Status = session.StatusPaused
	s.PausedAt = &pausedAt
	if questionNumber > s.QuestionNumber {
		s.QuestionNumber = questionNumber
	}
	return true, nil
}

func (r *stubSessionRepo) Resume(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumeCalls++
	s, ok := r.sessions[id]
	if !ok || s.Status != session.StatusPaused {
		return false, nil
	}
	s.Status = session.StatusActive
	s.PausedAt = nil
	return true, nil
}

type stubEventRepo struct {
	mu     sync.Mutex
	events []session.Event
	err    error
}

func (r *stubEventRepo) Insert(ctx context.Context, e *session.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, *e)
	return nil
}

type stubTurnReader struct {
	turns []session.Turn
}

func (r *stubTurnReader) List(ctx context.Context, sessionID string, limit int) ([]session.Turn, error) {
	return r.turns, nil
}

func newTestService(repo *stubSessionRepo, turns []session.Turn) *SessionService {
	svc := NewSessionService(repo, &stubEventRepo{}, &stubTurnReader{turns: turns}, 24*time.Hour, 500, zap.NewNop())
	return svc
}

func TestStartPromotesPending(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusPending})
	svc := newTestService(repo, nil)

	sess, err := svc.Start(context.Background(), "s1", "a@b.com")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sess.Status != session.StatusActive {
		t.Errorf("status = %s, want active", sess.Status)
	}
}

func TestStartIsIdempotentOnActive(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusActive})
	svc := newTestService(repo, nil)

	sess, err := svc.Start(context.Background(), "s1", "a@b.com")
	if err != nil {
		t.Fatalf("Start on active session should succeed: %v", err)
	}
	if sess.Status != session.StatusActive {
		t.Errorf("status = %s, want active", sess.Status)
	}
}

func TestStartRejectsPaused(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusPaused})
	svc := newTestService(repo, nil)

	if _, err := svc.Start(context.Background(), "s1", "a@b.com"); !errors.Is(err, xerrors.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStartWrongOwner(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusPending})
	svc := newTestService(repo, nil)

	if _, err := svc.Start(context.Background(), "s1", "other@b.com"); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a non-owner, got %v", err)
	}
}

func TestPauseRecordsQuestionNumber(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusActive, QuestionNumber: 2})
	svc := newTestService(repo, nil)

	if err := svc.Pause(context.Background(), "s1", "a@b.com", 3); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	sess := repo.sessions["s1"]
	if sess.Status != session.StatusPaused {
		t.Errorf("status = %s, want paused", sess.Status)
	}
	if sess.PausedAt == nil {
		t.Error("paused_at not recorded")
	}
	if sess.QuestionNumber != 3 {
		t.Errorf("question_number = %d, want 3", sess.QuestionNumber)
	}
}

func TestPauseRequiresActive(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusPending})
	svc := newTestService(repo, nil)

	if err := svc.Pause(context.Background(), "s1", "a@b.com", 1); !errors.Is(err, xerrors.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestResumeReturnsHistory(t *testing.T) {
	pausedAt := time.Now().Add(-time.Hour)
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusPaused, PausedAt: &pausedAt})
	turns := []session.Turn{
		{SessionID: "s1", Position: 1, Role: session.RoleAssistant},
		{SessionID: "s1", Position: 2, Role: session.RoleUser},
	}
	svc := newTestService(repo, turns)

	sess, history, err := svc.Resume(context.Background(), "s1", "a@b.com")
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if sess.Status != session.StatusActive {
		t.Errorf("status = %s, want active", sess.Status)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
}

func TestResumeExpiredDoesNotMutate(t *testing.T) {
	pausedAt := time.Now().Add(-48 * time.Hour)
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusPaused, PausedAt: &pausedAt})
	svc := newTestService(repo, nil)

	_, _, err := svc.Resume(context.Background(), "s1", "a@b.com")
	if !errors.Is(err, xerrors.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if repo.resumeCalls != 0 {
		t.Error("expired resume must not touch the stored row")
	}
	if repo.sessions["s1"].Status != session.StatusPaused {
		t.Errorf("stored status changed to %s", repo.sessions["s1"].Status)
	}
}

func TestResumeAtRetentionBoundaryStillAllowed(t *testing.T) {
	now := time.Now()
	pausedAt := now.Add(-24 * time.Hour)
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusPaused, PausedAt: &pausedAt})
	svc := newTestService(repo, nil)
	svc.now = func() time.Time { return now }

	if _, _, err := svc.Resume(context.Background(), "s1", "a@b.com"); err != nil {
		t.Fatalf("resume exactly at the retention boundary should succeed: %v", err)
	}
}

func TestResumeRequiresPaused(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusActive})
	svc := newTestService(repo, nil)

	if _, _, err := svc.Resume(context.Background(), "s1", "a@b.com"); !errors.Is(err, xerrors.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAbandonActiveSession(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusActive})
	svc := newTestService(repo, nil)

	resp, err := svc.Abandon(context.Background(), "s1", "a@b.com")
	if err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	if resp.AlreadyResolved {
		t.Error("fresh abandon reported as already resolved")
	}
	if resp.Status != session.StatusAbandoned {
		t.Errorf("status = %s, want abandoned", resp.Status)
	}
}

func TestAbandonTerminalIsAlreadyResolved(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusCompleted})
	svc := newTestService(repo, nil)

	resp, err := svc.Abandon(context.Background(), "s1", "a@b.com")
	if err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	if !resp.AlreadyResolved {
		t.Error("abandoning a completed session should report already resolved")
	}
	if resp.Status != session.StatusCompleted {
		t.Errorf("status = %s, want completed", resp.Status)
	}
}

func TestConcurrentAbandonExactlyOneWins(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusActive})
	svc := newTestService(repo, nil)

	const n = 10
	var wg sync.WaitGroup
	results := make([]*session.AbandonResponse, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Abandon(context.Background(), "s1", "a@b.com")
			if err != nil {
				t.Errorf("Abandon failed: %v", err)
				return
			}
			results[i] = resp
		}()
	}
	wg.Wait()

	wins := 0
	for _, resp := range results {
		if resp != nil && !resp.AlreadyResolved {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one winning abandon, got %d", wins)
	}
}

func TestCompleteRequiresActive(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusPaused})
	svc := newTestService(repo, nil)

	if err := svc.Complete(context.Background(), "s1", "a@b.com"); !errors.Is(err, xerrors.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	repo.sessions["s1"].Status = session.StatusActive
	if err := svc.Complete(context.Background(), "s1", "a@b.com"); err != nil {
		t.Errorf("Complete failed: %v", err)
	}
	if repo.sessions["s1"].Status != session.StatusCompleted {
		t.Errorf("status = %s, want completed", repo.sessions["s1"].Status)
	}
}

func TestCheckForConflictSkipsExpired(t *testing.T) {
	fresh := time.Now().Add(-time.Hour)
	stale := time.Now().Add(-48 * time.Hour)
	repo := newStubSessionRepo(
		&session.CoachingSession{ID: "old", Email: "a@b.com", Status: session.StatusPaused, PausedAt: &stale},
		&session.CoachingSession{ID: "new", Email: "a@b.com", Status: session.StatusPaused, PausedAt: &fresh},
	)
	svc := newTestService(repo, nil)

	conflict, err := svc.CheckForConflict(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("CheckForConflict failed: %v", err)
	}
	if conflict == nil {
		t.Fatal("expected a conflict for the non-expired paused session")
	}
	if conflict.ID != "new" {
		t.Errorf("conflict = %s, want the fresh paused session", conflict.ID)
	}
}

func TestCheckForConflictNoneWhenAllExpired(t *testing.T) {
	stale := time.Now().Add(-48 * time.Hour)
	repo := newStubSessionRepo(
		&session.CoachingSession{ID: "old", Email: "a@b.com", Status: session.StatusPaused, PausedAt: &stale},
	)
	svc := newTestService(repo, nil)

	conflict, err := svc.CheckForConflict(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("CheckForConflict failed: %v", err)
	}
	if conflict != nil {
		t.Errorf("expired paused session should not block, got %s", conflict.ID)
	}
}

func TestLogEventSwallowsStorageFailure(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusActive})
	events := &stubEventRepo{err: errors.New("db down")}
	svc := NewSessionService(repo, events, &stubTurnReader{}, 24*time.Hour, 500, zap.NewNop())

	err := svc.LogEvent(context.Background(), "s1", &session.LogEventRequest{
		Email:     "a@b.com",
		EventType: "client_error",
		Message:   "mic permission denied",
	})
	if err != nil {
		t.Errorf("diagnostics must never fail the caller, got %v", err)
	}
}

func TestLogEventChecksOwnership(t *testing.T) {
	repo := newStubSessionRepo(&session.CoachingSession{ID: "s1", Email: "a@b.com", Status: session.StatusActive})
	svc := newTestService(repo, nil)

	err := svc.LogEvent(context.Background(), "s1", &session.LogEventRequest{Email: "other@b.com", EventType: "x", Message: "y"})
	if !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a non-owner, got %v", err)
	}
}
