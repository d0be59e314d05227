package realtime

// Events read from clients.
const (
	EventJoinViewers  = "join:viewers"
	EventLeaveViewers = "leave:viewers"
	EventStreamJoin   = "stream:join"
	EventStreamLeave  = "stream:leave"
)

// Events emitted to clients.
const (
	EventStatsViewers    = "stats:viewers"
	EventChatMessage     = "chat:message"
	EventChatPending     = "chat:pending"
	EventChatDelete      = "chat:delete"
	EventChatUpdate      = "chat:update"
	EventCommentPending  = "comment:pending"
	EventCommentNew      = "comment:new"
	EventCommentDeleted  = "comment:deleted"
	EventCommentReaction = "comment:reaction"
	EventPollNew         = "poll:new"
	EventPollResults     = "poll:results"
	EventPollClosed      = "poll:closed"
	EventQuestionNew     = "question:new"
	EventQuestionDisplay = "question:display"
	EventReactionUpdate  = "reaction:update"
	EventMediaUpdate     = "media:update"
	EventSettingsUpdate  = "settings:update"
	EventStreamStatus    = "stream:status"
	EventReset           = "event:reset"
	EventError           = "error"
)
