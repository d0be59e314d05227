package realtime

import (
	"github.com/google/uuid"

	"github.com/aura-live/backend/internal/models"
)

// Target selects the audience of a broadcast.
type Target struct {
	kind string
	room string
}

const (
	targetGlobal = "global"
	targetStream = "stream"
	targetAdmins = "admins"
)

// Global targets every connected client.
func Global() Target { return Target{kind: targetGlobal} }

// Stream targets the clients that joined the room of streamID.
func Stream(streamID uuid.UUID) Target {
	return Target{kind: targetStream, room: StreamRoom(streamID)}
}

// Admins targets clients authenticated as admin or moderator.
func Admins() Target { return Target{kind: targetAdmins, room: RoomAdmins} }

// TargetFor maps an interaction scope onto its broadcast target.
func TargetFor(scope models.Scope) Target {
	if scope.IsGlobal() {
		return Global()
	}
	return Stream(scope.StreamID)
}

// Kind is the target class used as a metric label: global, stream or admins.
func (t Target) Kind() string { return t.kind }

// Room is the room name of a stream or admins target, empty for global.
func (t Target) Room() string { return t.room }

// Broadcaster emits events to a target audience without waiting for delivery.
type Broadcaster interface {
	Broadcast(event string, payload any, target Target)
}
