package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/metrics"
	"github.com/aura-live/backend/internal/models"
)

func newTestClient(id string, role models.Role, streamID *uuid.UUID, buffer int) *Client {
	return &Client{
		ID:       id,
		Role:     role,
		StreamID: streamID,
		send:     make(chan WSMessage, buffer),
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
}

func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case m := <-c.send:
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestHubBroadcastTargets(t *testing.T) {
	h := NewHub(NewRooms(), zap.NewNop())
	s1, s2 := uuid.New(), uuid.New()

	admin := newTestClient("admin", models.RoleAdmin, nil, 8)
	mod := newTestClient("mod", models.RoleModerator, &s1, 8)
	v1 := newTestClient("v1", models.RoleUser, &s1, 8)
	v2 := newTestClient("v2", models.RoleUser, &s2, 8)
	anon := newTestClient("anon", models.RoleUser, nil, 8)
	for _, c := range []*Client{admin, mod, v1, v2, anon} {
		h.Register(c)
	}

	h.Broadcast("x:global", map[string]int{"n": 1}, Global())
	h.Broadcast("x:stream", nil, Stream(s1))
	h.Broadcast("x:admins", nil, Admins())

	events := func(c *Client) []string {
		var names []string
		for _, m := range drain(c) {
			names = append(names, m.Event)
		}
		return names
	}
	assert.Equal(t, []string{"x:global", "x:admins"}, events(admin))
	assert.Equal(t, []string{"x:global", "x:stream", "x:admins"}, events(mod))
	assert.Equal(t, []string{"x:global", "x:stream"}, events(v1))
	assert.Equal(t, []string{"x:global"}, events(v2))
	assert.Equal(t, []string{"x:global"}, events(anon))
}

func TestHubBroadcastPayload(t *testing.T) {
	h := NewHub(NewRooms(), zap.NewNop())
	c := newTestClient("c", models.RoleUser, nil, 1)
	h.Register(c)

	h.Broadcast(EventStatsViewers, map[string]int{"count": 3}, Global())
	msgs := drain(c)
	require.Len(t, msgs, 1)
	var body map[string]int
	require.NoError(t, json.Unmarshal(msgs[0].Data, &body))
	assert.Equal(t, 3, body["count"])
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub(NewRooms(), zap.NewNop())
	c := newTestClient("slow", models.RoleUser, nil, 1)
	h.Register(c)

	before := testutil.ToFloat64(metrics.DroppedSendsTotal)
	h.Broadcast("a", nil, Global())
	h.Broadcast("b", nil, Global())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DroppedSendsTotal))
	msgs := drain(c)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", msgs[0].Event)
}

func TestHubStreamSwitchAndUnregister(t *testing.T) {
	rooms := NewRooms()
	h := NewHub(rooms, zap.NewNop())
	s1, s2 := uuid.New(), uuid.New()
	c := newTestClient("c", models.RoleUser, &s1, 8)
	h.Register(c)
	require.Equal(t, 1, rooms.Size(StreamRoom(s1)))

	h.JoinStream(c, s2)
	assert.Equal(t, 0, rooms.Size(StreamRoom(s1)))
	assert.Equal(t, 1, rooms.Size(StreamRoom(s2)))
	assert.Equal(t, s2, *c.StreamID)

	h.LeaveStream(c)
	assert.Nil(t, c.StreamID)
	assert.Equal(t, 0, rooms.Size(StreamRoom(s2)))

	h.JoinStream(c, s1)
	h.Unregister(c)
	assert.Equal(t, 0, rooms.Size(StreamRoom(s1)))
	assert.Equal(t, 0, h.ClientCount())
	assert.False(t, c.enqueue(WSMessage{Event: "late"}), "stopped clients accept nothing")

	h.Unregister(c)
}

func TestTargetFor(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, Global(), TargetFor(models.GlobalScope()))
	assert.Equal(t, Stream(id), TargetFor(models.StreamScope(id)))
	assert.Equal(t, "stream", TargetFor(models.StreamScope(id)).Kind())
}

func TestDecodeRelay(t *testing.T) {
	id := uuid.New()
	body, err := json.Marshal(redisPayload{Event: EventMediaUpdate, Data: json.RawMessage(`{"id":"m"}`), Target: targetStream, Room: StreamRoom(id)})
	require.NoError(t, err)

	event, data, target, err := decodeRelay(body)
	require.NoError(t, err)
	assert.Equal(t, EventMediaUpdate, event)
	assert.JSONEq(t, `{"id":"m"}`, string(data))
	assert.Equal(t, Stream(id), target)

	_, _, _, err = decodeRelay([]byte(`{"event":"x","target":"everyone"}`))
	assert.Error(t, err)
	_, _, _, err = decodeRelay([]byte(`{"event":"x","target":"stream"}`))
	assert.Error(t, err)
}
