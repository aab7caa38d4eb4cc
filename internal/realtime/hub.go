package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains event_id -> set of connections and broadcasts live updates.
// With Redis configured, updates go through pub/sub so every instance
// delivers them exactly once to its own subscribers.
type Hub struct {
	// eventID -> map[clientID]*Client
	rooms map[uuid.UUID]map[string]*Client
	subs  map[uuid.UUID]func() // cancel Redis subscription per event

	// subscriptions being established outside mu
	subscribing map[uuid.UUID]bool
	mu          sync.RWMutex
	logger      *zap.Logger
	redis       RedisPublisher
	redisSub    RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishEventUpdate(eventID uuid.UUID, kind string, payload []byte) error
}

// RedisSubscriber subscribes to event channels and invokes handler for incoming updates.
type RedisSubscriber interface {
	SubscribeEvent(eventID uuid.UUID, handler func(kind string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a
// single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:       make(map[uuid.UUID]map[string]*Client),
		subs:        make(map[uuid.UUID]func()),
		subscribing: make(map[uuid.UUID]bool),
		logger:      logger,
		redis:       redisPub,
		redisSub:    redisSub,
	}
}

// Register adds a client to an event room and starts the Redis subscription
// for the event unless one is active or in flight. A failed subscribe is
// retried by the next Register; until then the room is served locally.
func (h *Hub) Register(c *Client) {
	eventID := c.EventID
	h.mu.Lock()
	if h.rooms[eventID] == nil {
		h.rooms[eventID] = make(map[string]*Client)
	}
	h.rooms[eventID][c.ID] = c
	subscribe := h.redisSub != nil && h.subs[eventID] == nil && !h.subscribing[eventID]
	if subscribe {
		h.subscribing[eventID] = true
	}
	h.mu.Unlock()
	h.logger.Debug("client joined event", zap.String("client_id", c.ID), zap.String("event_id", eventID.String()))

	if subscribe {
		h.subscribe(eventID)
	}
}

func (h *Hub) subscribe(eventID uuid.UUID) {
	cancel, err := h.redisSub.SubscribeEvent(eventID, func(kind string, payload []byte) {
		h.Broadcast(eventID, kind, json.RawMessage(payload))
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribing, eventID)
	if err != nil {
		h.logger.Warn("subscribe event channel failed", zap.String("event_id", eventID.String()), zap.Error(err))
		return
	}
	if len(h.rooms[eventID]) == 0 {
		// everyone left while subscribing
		cancel()
		return
	}
	h.subs[eventID] = cancel
}

// Unregister removes a client from its room. Cancels the Redis subscription
// when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.EventID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.EventID)
			if cancel, ok := h.subs[c.EventID]; ok {
				cancel()
				delete(h.subs, c.EventID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left event", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Broadcast sends a message to all local clients watching eventID.
func (h *Hub) Broadcast(eventID uuid.UUID, kind string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("encode live update failed", zap.String("kind", kind), zap.Error(err))
			return
		}
	}
	msg := WSMessage{Event: kind, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[eventID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("client buffer full, update dropped", zap.String("client_id", c.ID))
		}
	}
}

// NotifyEvent delivers a live update to everyone watching eventID on any
// instance. Without Redis it broadcasts locally, and rooms on this instance
// with no active subscription are also served locally.
func (h *Hub) NotifyEvent(eventID uuid.UUID, kind string, payload interface{}) {
	if h.redis == nil {
		h.Broadcast(eventID, kind, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("encode live update failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	if err := h.redis.PublishEventUpdate(eventID, kind, data); err != nil {
		h.logger.Warn("publish live update failed, delivering locally",
			zap.String("event_id", eventID.String()), zap.Error(err))
		h.Broadcast(eventID, kind, json.RawMessage(data))
		return
	}
	if !h.subscribed(eventID) {
		h.Broadcast(eventID, kind, json.RawMessage(data))
	}
}

// subscribed reports whether a Redis subscription feeds eventID's room.
func (h *Hub) subscribed(eventID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subs[eventID] != nil
}

// Watchers returns the number of local clients watching eventID.
func (h *Hub) Watchers(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

// SendToClient sends a message to a single client in a room.
func (h *Hub) SendToClient(eventID uuid.UUID, clientID string, kind string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: kind, Data: data}
	h.mu.RLock()
	c, ok := h.rooms[eventID][clientID]
	h.mu.RUnlock()
	if !ok || c == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
