// internal/handlers/session/session_handler.go
package session

import (
	"errors"
	"net/http"

	"prepcoach-service/internal/domain/session"
	xerrors "prepcoach-service/internal/pkg/errors"
	"prepcoach-service/internal/pkg/response"
	service "prepcoach-service/internal/service/session"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// Start explicitly promotes a pending session to active.
func (h *SessionHandler) Start(c *gin.Context) {
	sessionID := c.Param("id")

	var req session.ResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	sess, err := h.sessionService.Start(c.Request.Context(), sessionID, req.Email)
	if err != nil {
		h.writeError(c, err, "failed to start session")
		return
	}

	response.Success(c, http.StatusOK, "session started", sess)
}

// Pause moves an active session to paused.
func (h *SessionHandler) Pause(c *gin.Context) {
	sessionID := c.Param("id")

	var req session.PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if err := h.sessionService.Pause(c.Request.Context(), sessionID, req.Email, req.QuestionNumber); err != nil {
		h.writeError(c, err, "failed to pause session")
		return
	}

	response.Success(c, http.StatusOK, "session paused", nil)
}

// Resume reactivates a paused session and returns its history. A session
// paused beyond the retention window reports expired without changing state.
func (h *SessionHandler) Resume(c *gin.Context) {
	sessionID := c.Param("id")

	var req session.ResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	sess, turns, err := h.sessionService.Resume(c.Request.Context(), sessionID, req.Email)
	if err != nil {
		if errors.Is(err, xerrors.ErrSessionExpired) {
			response.Success(c, http.StatusOK, "session expired", session.ResumeResponse{Expired: true})
			return
		}
		if errors.Is(err, xerrors.ErrAlreadyResolved) {
			response.Error(c, http.StatusConflict, "session already resolved elsewhere", err)
			return
		}
		h.writeError(c, err, "failed to resume session")
		return
	}

	response.Success(c, http.StatusOK, "session resumed", session.ResumeResponse{
		Session: sess,
		Turns:   turns,
	})
}

// Abandon discards a session. Losing the race to another tab is a normal
// outcome, reported as already_resolved.
func (h *SessionHandler) Abandon(c *gin.Context) {
	sessionID := c.Param("id")

	var req session.AbandonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.sessionService.Abandon(c.Request.Context(), sessionID, req.Email)
	if err != nil {
		h.writeError(c, err, "failed to abandon session")
		return
	}

	response.Success(c, http.StatusOK, "session abandoned", result)
}

// Complete ends an active session normally.
func (h *SessionHandler) Complete(c *gin.Context) {
	sessionID := c.Param("id")

	var req session.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if err := h.sessionService.Complete(c.Request.Context(), sessionID, req.Email); err != nil {
		h.writeError(c, err, "failed to complete session")
		return
	}

	response.Success(c, http.StatusOK, "session completed", nil)
}

// PausedSessions lists the caller's paused sessions.
func (h *SessionHandler) PausedSessions(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.ValidationError(c, "email is required", nil)
		return
	}

	sessions, err := h.sessionService.PausedSessions(c.Request.Context(), email)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list paused sessions", err)
		return
	}

	response.Success(c, http.StatusOK, "paused sessions", gin.H{"sessions": sessions})
}

// LogEvent records a diagnostic event. Best-effort by contract: storage
// failures are swallowed and still acknowledged.
func (h *SessionHandler) LogEvent(c *gin.Context) {
	sessionID := c.Param("id")

	var req session.LogEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if err := h.sessionService.LogEvent(c.Request.Context(), sessionID, &req); err != nil {
		h.writeError(c, err, "failed to log event")
		return
	}

	response.Success(c, http.StatusOK, "event recorded", nil)
}

func (h *SessionHandler) writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, xerrors.ErrNotFound):
		response.NotFound(c, "session not found")
	case errors.Is(err, xerrors.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, message, err)
	case errors.Is(err, xerrors.ErrSessionConflict):
		response.Conflict(c, message, nil)
	default:
		response.Error(c, http.StatusInternalServerError, message, err)
	}
}
