// internal/handlers/transcript/transcript_handler.go
package transcript

import (
	"errors"
	"net/http"

	"prepcoach-service/internal/domain/session"
	xerrors "prepcoach-service/internal/pkg/errors"
	"prepcoach-service/internal/pkg/response"
	service "prepcoach-service/internal/service/transcript"

	"github.com/gin-gonic/gin"
)

type TranscriptHandler struct {
	transcriptService *service.TranscriptService
}

func NewTranscriptHandler(transcriptService *service.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{
		transcriptService: transcriptService,
	}
}

// AppendTurn appends one turn to the session transcript. Appends for the
// same session are serialized server-side; concurrent calls are safe.
func (h *TranscriptHandler) AppendTurn(c *gin.Context) {
	sessionID := c.Param("id")

	var req session.AppendTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.transcriptService.Append(c.Request.Context(), sessionID, &req)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "session not found")
		case errors.Is(err, xerrors.ErrInvalidTransition):
			response.Error(c, http.StatusConflict, "session is not accepting turns", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to append turn", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "turn appended", result)
}

// GetHistory returns the ordered transcript, capped server-side.
func (h *TranscriptHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("id")
	email := c.Query("email")
	if email == "" {
		response.ValidationError(c, "email is required", nil)
		return
	}

	turns, err := h.transcriptService.History(c.Request.Context(), sessionID, email)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to load history", err)
		return
	}

	response.Success(c, http.StatusOK, "history loaded", session.HistoryResponse{
		SessionID: sessionID,
		Turns:     turns,
	})
}
