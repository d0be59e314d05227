package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// RelayChannel carries events produced outside the server process (the worker).
	RelayChannel = "live:events"
	publishTTL   = 5 * time.Second
)

// redisPayload is the message published to Redis for relay into the hub.
type redisPayload struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	Target string          `json:"target"`
	Room   string          `json:"room,omitempty"`
	At     int64           `json:"at"`
}

// RedisPubSub relays events between processes over a Redis channel.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, logger: logger}
}

// Publish sends an event to the relay channel for the server to broadcast to target.
func (r *RedisPubSub) Publish(ctx context.Context, event string, payload any, target Target) error {
	data, err := encode(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	body, err := json.Marshal(redisPayload{
		Event:  event,
		Data:   data,
		Target: target.kind,
		Room:   target.room,
		At:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTTL)
	defer cancel()
	return r.client.Publish(ctx, RelayChannel, body).Err()
}

// Relay subscribes to the relay channel and broadcasts every received event through b
// until ctx is cancelled.
func (r *RedisPubSub) Relay(ctx context.Context, b Broadcaster) error {
	pubsub := r.client.Subscribe(ctx, RelayChannel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	r.logger.Info("relaying worker events", zap.String("channel", RelayChannel))
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, data, target, err := decodeRelay([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn("invalid relay payload", zap.Error(err))
				continue
			}
			b.Broadcast(event, data, target)
		}
	}
}

func decodeRelay(raw []byte) (string, json.RawMessage, Target, error) {
	var p redisPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", nil, Target{}, err
	}
	switch p.Target {
	case targetGlobal:
		return p.Event, p.Data, Global(), nil
	case targetAdmins:
		return p.Event, p.Data, Admins(), nil
	case targetStream:
		if p.Room == "" {
			return "", nil, Target{}, fmt.Errorf("stream target without room")
		}
		return p.Event, p.Data, Target{kind: targetStream, room: p.Room}, nil
	}
	return "", nil, Target{}, fmt.Errorf("unknown target %q", p.Target)
}
