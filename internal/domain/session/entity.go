// internal/domain/session/entity.go
package session

import (
	"time"
)

type Kind string

const (
	KindQuickText    Kind = "quick_text"
	KindFullMock     Kind = "full_mock"
	KindAudioMock    Kind = "audio_mock"
	KindSubscription Kind = "subscription"
)

func (k Kind) Valid() bool {
	switch k {
	case KindQuickText, KindFullMock, KindAudioMock, KindSubscription:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transitions are allowed out of s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusAbandoned, StatusExpired:
		return true
	}
	return false
}

// transitions is the full lifecycle graph. paused -> active is the only
// backward edge (resume); everything else is monotonic.
var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusAbandoned},
	StatusActive:  {StatusPaused, StatusCompleted, StatusAbandoned},
	StatusPaused:  {StatusActive, StatusAbandoned, StatusExpired},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type CoachingSession struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
	Kind  Kind   `json:"kind" db:"kind"`

	// Lifecycle
	Status   Status     `json:"status" db:"status"`
	PausedAt *time.Time `json:"paused_at,omitempty" db:"paused_at"`

	// Last question the interviewer has posed, 0 before the first one.
	QuestionNumber int `json:"question_number" db:"question_number"`

	// Payment
	PaymentRef      *string `json:"payment_ref,omitempty" db:"payment_ref"`
	StripeSessionID *string `json:"-" db:"stripe_session_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Turn is a single utterance within a session. Immutable once written;
// Position is assigned by the sequencer and strictly increases per session.
type Turn struct {
	ID             int64     `json:"id" db:"id"`
	SessionID      string    `json:"session_id" db:"session_id"`
	Role           Role      `json:"role" db:"role"`
	Content        string    `json:"content" db:"content"`
	Position       int       `json:"position" db:"position"`
	QuestionNumber *int      `json:"question_number,omitempty" db:"question_number"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Event is a best-effort diagnostic record attached to a session.
type Event struct {
	ID        int64                  `json:"id" db:"id"`
	SessionID string                 `json:"session_id" db:"session_id"`
	Email     string                 `json:"email" db:"email"`
	EventType string                 `json:"event_type" db:"event_type"`
	Message   string                 `json:"message" db:"message"`
	Code      *string                `json:"code,omitempty" db:"code"`
	Context   map[string]interface{} `json:"context,omitempty" db:"context"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
