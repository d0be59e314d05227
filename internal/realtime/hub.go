package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/metrics"
)

// Hub tracks connected clients and fans events out to them.
// Room membership lives in Rooms; the hub only resolves targets to connections.
type Hub struct {
	clients map[string]*Client
	rooms   *Rooms
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewHub creates a hub over the given room registry.
func NewHub(rooms *Rooms, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   rooms,
		logger:  logger,
	}
}

// Rooms returns the registry the hub routes through.
func (h *Hub) Rooms() *Rooms { return h.rooms }

// Register adds a client. Staff clients join the admins room, and a client that declared a
// stream at connect joins that stream's room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	if c.Role.IsStaff() {
		h.rooms.Join(RoomAdmins, c.ID)
	}
	if c.StreamID != nil {
		h.rooms.Join(StreamRoom(*c.StreamID), c.ID)
	}
	metrics.ConnectedClients.Inc()
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.String("role", string(c.Role)))
}

// Unregister removes a client from the hub and from every room and stops its writer.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()
	if !ok {
		return
	}
	h.rooms.LeaveAll(c.ID)
	c.stop()
	metrics.ConnectedClients.Dec()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID))
}

// JoinStream moves the client into the room of streamID, leaving its previous stream room.
func (h *Hub) JoinStream(c *Client, streamID uuid.UUID) {
	if c.StreamID != nil {
		if *c.StreamID == streamID {
			return
		}
		h.rooms.Leave(StreamRoom(*c.StreamID), c.ID)
	}
	id := streamID
	c.StreamID = &id
	h.rooms.Join(StreamRoom(streamID), c.ID)
}

// LeaveStream removes the client from its stream room, if any.
func (h *Hub) LeaveStream(c *Client) {
	if c.StreamID == nil {
		return
	}
	h.rooms.Leave(StreamRoom(*c.StreamID), c.ID)
	c.StreamID = nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every client selected by target. Delivery is not awaited:
// a client whose buffer is full misses the event.
func (h *Hub) Broadcast(event string, payload any, target Target) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Error("broadcast encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	var recipients []*Client
	h.mu.RLock()
	if target.kind == targetGlobal {
		recipients = make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			recipients = append(recipients, c)
		}
	} else {
		for _, id := range h.rooms.MembersOf(target.room) {
			if c, ok := h.clients[id]; ok {
				recipients = append(recipients, c)
			}
		}
	}
	h.mu.RUnlock()

	metrics.BroadcastsTotal.WithLabelValues(event, target.Kind()).Inc()
	for _, c := range recipients {
		if !c.enqueue(msg) {
			metrics.DroppedSendsTotal.Inc()
			h.logger.Debug("client buffer full, event dropped", zap.String("client_id", c.ID), zap.String("event", event))
		}
	}
}

// SendToClient sends an event to a single client.
func (h *Hub) SendToClient(clientID string, event string, payload any) {
	data, err := encode(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !c.enqueue(WSMessage{Event: event, Data: data}) {
		metrics.DroppedSendsTotal.Inc()
	}
}

func encode(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}
