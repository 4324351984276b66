package audit

import (
	"context"

	"github.com/FirasLatrech/Whispr/internal/log"
)

// Audit actions for the relay engine.
const (
	ActionJoinRoom     = "relay.join_room"
	ActionJoinRejected = "relay.join_rejected"
	ActionLeaveRoom    = "relay.leave_room"
	ActionEndChat      = "relay.end_chat"
	ActionDisconnect   = "relay.disconnect"
	ActionEvict        = "relay.evict"
	ActionRateLimited  = "relay.rate_limited"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, connID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldConnID, connID).
		Msg(msg)
}

// LogWithRoom emits an audit log carrying the room id.
func LogWithRoom(ctx context.Context, action, connID, roomID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldConnID, connID).
		Str(log.FieldRoomID, roomID).
		Msg(msg)
}
