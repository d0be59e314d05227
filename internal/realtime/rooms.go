package realtime

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Well-known room names.
const (
	RoomAdmins  = "admins"
	RoomViewers = "viewers"
)

// StreamRoom is the room of clients that declared streamID as their active stream.
func StreamRoom(streamID uuid.UUID) string { return "stream:" + streamID.String() }

// StreamViewersRoom is the presence room of viewers watching streamID.
func StreamViewersRoom(streamID uuid.UUID) string {
	return RoomViewers + ":stream:" + streamID.String()
}

// Rooms is the process-wide room membership registry. It is safe for concurrent use.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // room -> client ids
	joined  map[string]map[string]struct{} // client id -> rooms
}

// NewRooms returns an empty registry.
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join adds clientID to room. It reports false when the client was already a member.
func (r *Rooms) Join(room, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.members[room]
	if m == nil {
		m = make(map[string]struct{})
		r.members[room] = m
	}
	if _, ok := m[clientID]; ok {
		return false
	}
	m[clientID] = struct{}{}
	j := r.joined[clientID]
	if j == nil {
		j = make(map[string]struct{})
		r.joined[clientID] = j
	}
	j[room] = struct{}{}
	return true
}

// Leave removes clientID from room. It reports false when the client was not a member.
func (r *Rooms) Leave(room, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(room, clientID)
}

func (r *Rooms) leaveLocked(room, clientID string) bool {
	m, ok := r.members[room]
	if !ok {
		return false
	}
	if _, ok := m[clientID]; !ok {
		return false
	}
	delete(m, clientID)
	if len(m) == 0 {
		delete(r.members, room)
	}
	if j := r.joined[clientID]; j != nil {
		delete(j, room)
		if len(j) == 0 {
			delete(r.joined, clientID)
		}
	}
	return true
}

// LeaveAll removes clientID from every room and returns the rooms it left.
func (r *Rooms) LeaveAll(clientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var left []string
	for room := range r.joined[clientID] {
		left = append(left, room)
	}
	for _, room := range left {
		r.leaveLocked(room, clientID)
	}
	sort.Strings(left)
	return left
}

// Size returns the number of members of room.
func (r *Rooms) Size(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[room])
}

// MembersOf returns a copy of the member ids of room.
func (r *Rooms) MembersOf(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.members[room]
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

// IsMember reports whether clientID is in room.
func (r *Rooms) IsMember(room, clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[room][clientID]
	return ok
}
