// internal/domain/session/dto.go
package session

type AppendTurnRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Role    Role   `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`

	// Optional explicit question number supplied by the client; when absent
	// the server decides from the content.
	QuestionNumber *int `json:"question_number"`
}

type AppendTurnResponse struct {
	Position       int  `json:"position"`
	QuestionNumber *int `json:"question_number,omitempty"`
}

type HistoryResponse struct {
	SessionID string `json:"session_id"`
	Turns     []Turn `json:"turns"`
}

type PauseRequest struct {
	Email          string `json:"email" binding:"required,email"`
	QuestionNumber int    `json:"question_number" binding:"min=0"`
}

type ResumeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResumeResponse struct {
	Expired bool             `json:"expired"`
	Session *CoachingSession `json:"session,omitempty"`
	Turns   []Turn           `json:"turns,omitempty"`
}

type AbandonRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type AbandonResponse struct {
	// AlreadyResolved is set when the session left paused before we got to
	// it, usually a race with another tab. The caller treats it as success.
	AlreadyResolved bool   `json:"already_resolved"`
	Status          Status `json:"status"`
}

type CompleteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type LogEventRequest struct {
	Email     string                 `json:"email" binding:"required,email"`
	EventType string                 `json:"event_type" binding:"required,max=64"`
	Message   string                 `json:"message" binding:"required"`
	Code      *string                `json:"code"`
	Context   map[string]interface{} `json:"context"`
}

// Conflict is returned when the owner already has a paused session that must
// be resumed or abandoned before a new one can be created.
type Conflict struct {
	PausedSession *CoachingSession `json:"paused_session"`
}
