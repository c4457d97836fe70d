package ws

import (
	"context"
	"net/http"

	"banana_clicker/internal/domain"
	"banana_clicker/internal/logger"
	"banana_clicker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// StateLoader supplies the snapshot sent when a connection opens.
type StateLoader interface {
	State(ctx context.Context, userID int64) (*domain.UserProgress, error)
}

// HandleWS authenticates ?token=, upgrades, and subscribes the connection to
// the user's progress feed.
func HandleWS(hub *Hub, states StateLoader, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		userID, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var initial []byte
		if states != nil {
			p, err := states.State(c.Request.Context(), userID)
			if err != nil {
				logger.Warn("ws: initial state", "user_id", userID, "error", err)
			} else {
				initial = mustEnvelope(Envelope{Type: MsgProgress, Data: progressPayload(*p)})
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err)
			return
		}

		client := NewClient(userID, conn, hub)
		go client.Run(initial)
	}
}
