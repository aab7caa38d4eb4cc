package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // token in the query authenticates the socket
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ViewAuthorizer decides whether actor may watch an event; *events.Service
// implements it.
type ViewAuthorizer interface {
	AuthorizeView(ctx context.Context, actor *models.User, id uuid.UUID) error
}

// Client represents a single WebSocket connection watching one event.
type Client struct {
	ID       string
	EventID  uuid.UUID
	UserID   uuid.UUID
	JoinedAt time.Time
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	done     chan struct{}
	logger   *zap.Logger
}

// ServeWs authenticates the token, checks view access to event_id, then
// upgrades and runs the client loop.
func ServeWs(hub *Hub, logger *zap.Logger, tokens middleware.TokenValidator, actors middleware.ActorLoader, viewer ViewAuthorizer) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		eventIDStr := c.Query("event_id")
		token := c.Query("token")
		if eventIDStr == "" || token == "" {
			response.BadRequest(c, "event_id and token required")
			return
		}
		eventID, err := uuid.Parse(eventIDStr)
		if err != nil {
			response.Error(c, apperr.NotFound("event", ""))
			return
		}
		claims, err := tokens.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		actor, err := actors.LoadActor(c.Request.Context(), claims.UserID)
		if err != nil {
			if apperr.IsNotFound(err) {
				response.Unauthorized(c, "account no longer exists")
				return
			}
			response.Error(c, err)
			return
		}
		if err := viewer.AuthorizeView(c.Request.Context(), actor, eventID); err != nil {
			response.Error(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.New().String(),
			EventID:  eventID,
			UserID:   actor.ID,
			JoinedAt: time.Now(),
			hub:      hub,
			conn:     conn,
			send:     make(chan WSMessage, 256),
			done:     make(chan struct{}),
			logger:   logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump keeps the connection alive. The feed is server to client; the
// only inbound message answered is "ping".
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		close(c.done)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		if msg.Event == "ping" {
			c.hub.SendToClient(c.EventID, c.ID, "pong", map[string]int64{"at": time.Now().Unix()})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
