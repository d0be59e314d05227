package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aura-live/backend/internal/models"
)

const (
	sendBufferSize = 256
	maxMessageSize = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Identity is the authenticated user behind a connection.
type Identity struct {
	UserID uuid.UUID
	Name   string
	Role   models.Role
}

// Authenticator validates a connect token.
type Authenticator func(token string) (Identity, error)

// Sender describes the connection an inbound event came from.
type Sender struct {
	ClientID string
	UserID   *uuid.UUID // nil for anonymous viewers
	Name     string
	Role     models.Role
	StreamID *uuid.UUID
	IP       string
}

// Authenticated reports whether the sender presented a valid token.
func (s Sender) Authenticated() bool { return s.UserID != nil }

// PresenceHandler receives presence signals of a connection.
type PresenceHandler interface {
	Join(ctx context.Context, s Sender) error
	Leave(ctx context.Context, clientID string) error
	Disconnect(ctx context.Context, clientID string)
}

// ChatHandler receives chat messages sent over the socket.
type ChatHandler interface {
	SubmitFromSocket(ctx context.Context, s Sender, data json.RawMessage) error
}

// Handlers are the consumers of inbound socket events.
type Handlers struct {
	Presence PresenceHandler
	Chat     ChatHandler
}

// ClientOptions tune heartbeats and chat throttling per connection.
type ClientOptions struct {
	PongWait  time.Duration
	WriteWait time.Duration
	ChatRate  rate.Limit
	ChatBurst int
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.ChatRate <= 0 {
		o.ChatRate = rate.Inf
	}
	if o.ChatBurst <= 0 {
		o.ChatBurst = 1
	}
	return o
}

// Client represents a single WebSocket connection.
type Client struct {
	ID          string
	UserID      *uuid.UUID
	Name        string
	Role        models.Role
	StreamID    *uuid.UUID
	IP          string
	ConnectedAt time.Time

	hub      *Hub
	handlers Handlers
	conn     *websocket.Conn
	send     chan WSMessage
	done     chan struct{}
	stopOnce sync.Once
	limiter  *rate.Limiter
	opts     ClientOptions
	viewing  bool
	logger   *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
// The token is optional; without one the client is an anonymous viewer.
// stream_id declares the client's active stream.
func ServeWs(hub *Hub, logger *zap.Logger, authenticate Authenticator, handlers Handlers, opts ClientOptions) gin.HandlerFunc {
	opts = opts.withDefaults()
	return func(c *gin.Context) {
		client := &Client{
			ID:          uuid.New().String(),
			Role:        models.RoleUser,
			IP:          c.ClientIP(),
			ConnectedAt: time.Now(),
			hub:         hub,
			handlers:    handlers,
			send:        make(chan WSMessage, sendBufferSize),
			done:        make(chan struct{}),
			limiter:     rate.NewLimiter(opts.ChatRate, opts.ChatBurst),
			opts:        opts,
			logger:      logger,
		}
		if token := c.Query("token"); token != "" {
			id, err := authenticate(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			userID := id.UserID
			client.UserID = &userID
			client.Name = id.Name
			client.Role = id.Role
		}
		if s := c.Query("stream_id"); s != "" {
			streamID, err := uuid.Parse(s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stream_id"})
				return
			}
			client.StreamID = &streamID
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client.conn = conn

		hub.Register(client)
		go client.writePump()
		client.readPump(c.Request.Context())
	}
}

func (c *Client) sender() Sender {
	return Sender{
		ClientID: c.ID,
		UserID:   c.UserID,
		Name:     c.Name,
		Role:     c.Role,
		StreamID: c.StreamID,
		IP:       c.IP,
	}
}

// enqueue hands msg to the writer without blocking. It reports false when the message was dropped.
func (c *Client) enqueue(msg WSMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		// Teardown must finish even if the request context is already gone.
		teardown := context.WithoutCancel(ctx)
		if c.handlers.Presence != nil {
			c.handlers.Presence.Disconnect(teardown, c.ID)
		}
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", zap.String("client_id", c.ID), zap.Error(err))
			}
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		c.handle(ctx, msg)
	}
}

func (c *Client) handle(ctx context.Context, msg WSMessage) {
	switch msg.Event {
	case EventJoinViewers:
		if c.handlers.Presence == nil {
			return
		}
		if err := c.handlers.Presence.Join(ctx, c.sender()); err != nil {
			c.sendError(msg.Event, err)
			return
		}
		c.viewing = true
	case EventLeaveViewers:
		if c.handlers.Presence == nil || !c.viewing {
			return
		}
		c.viewing = false
		if err := c.handlers.Presence.Leave(ctx, c.ID); err != nil {
			c.sendError(msg.Event, err)
		}
	case EventChatMessage:
		if c.handlers.Chat == nil {
			return
		}
		if !c.limiter.Allow() {
			c.sendError(msg.Event, models.ErrRateLimited)
			return
		}
		if err := c.handlers.Chat.SubmitFromSocket(ctx, c.sender(), msg.Data); err != nil {
			c.sendError(msg.Event, err)
		}
	case EventStreamJoin:
		var body struct {
			StreamID uuid.UUID `json:"streamId"`
		}
		if err := json.Unmarshal(msg.Data, &body); err != nil || body.StreamID == uuid.Nil {
			c.sendError(msg.Event, models.ErrInvalidInput)
			return
		}
		c.hub.JoinStream(c, body.StreamID)
		c.rejoinViewers(ctx, msg.Event)
	case EventStreamLeave:
		c.hub.LeaveStream(c)
		c.rejoinViewers(ctx, msg.Event)
	default:
		c.logger.Debug("unknown socket event", zap.String("client_id", c.ID), zap.String("event", msg.Event))
	}
}

// rejoinViewers moves an active viewer's presence to the client's new stream.
func (c *Client) rejoinViewers(ctx context.Context, event string) {
	if !c.viewing || c.handlers.Presence == nil {
		return
	}
	if err := c.handlers.Presence.Join(ctx, c.sender()); err != nil {
		c.sendError(event, err)
	}
}

// sendError reports a failed event to this client only.
func (c *Client) sendError(event string, err error) {
	text := "internal error"
	var de *models.Error
	if errors.As(err, &de) && de.Status < http.StatusInternalServerError {
		text = de.Msg
	} else {
		c.logger.Warn("socket event failed", zap.String("client_id", c.ID), zap.String("event", event), zap.Error(err))
	}
	data, _ := json.Marshal(map[string]string{"event": event, "error": text})
	c.enqueue(WSMessage{Event: EventError, Data: data})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
