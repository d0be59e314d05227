package models

import (
	"github.com/google/uuid"
)

// Scope is the audience partition of an interaction or poll: global, or one broadcast stream.
// The zero value is the global scope.
type Scope struct {
	StreamID uuid.UUID
}

// GlobalScope returns the scope shared by all viewers.
func GlobalScope() Scope { return Scope{} }

// StreamScope returns the scope bound to a single stream.
func StreamScope(streamID uuid.UUID) Scope { return Scope{StreamID: streamID} }

// ScopeOf returns StreamScope for a non-nil stream id and GlobalScope otherwise.
func ScopeOf(streamID *uuid.UUID) Scope {
	if streamID == nil || *streamID == uuid.Nil {
		return GlobalScope()
	}
	return StreamScope(*streamID)
}

// IsGlobal reports whether s is the global scope.
func (s Scope) IsGlobal() bool { return s.StreamID == uuid.Nil }

// StreamRef returns the stream id as a nullable value (nil for global), as stored and serialized.
func (s Scope) StreamRef() *uuid.UUID {
	if s.IsGlobal() {
		return nil
	}
	id := s.StreamID
	return &id
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "stream:" + s.StreamID.String()
}
