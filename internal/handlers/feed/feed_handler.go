// internal/handlers/feed/feed_handler.go
package feed

import (
	"context"
	"errors"
	"net/http"

	"prepcoach-service/internal/domain/session"
	xerrors "prepcoach-service/internal/pkg/errors"
	"prepcoach-service/internal/pkg/response"
	"prepcoach-service/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type SessionFinder interface {
	FindOwned(ctx context.Context, id, email string) (*session.CoachingSession, error)
}

type FeedHandler struct {
	hub      *ws.Hub
	sessions SessionFinder
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewFeedHandler(hub *ws.Hub, sessions SessionFinder, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{
		hub:      hub,
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe upgrades the connection to a live turn feed for one session.
// The ownership check runs before the upgrade, same as every other call.
func (h *FeedHandler) Subscribe(c *gin.Context) {
	sessionID := c.Param("id")
	email := c.Query("email")
	if email == "" {
		response.ValidationError(c, "email is required", nil)
		return
	}

	if _, err := h.sessions.FindOwned(c.Request.Context(), sessionID, email); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to open feed", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return
	}

	h.hub.Serve(sessionID, conn)
}
