package domain

import (
	"bytes"
	"encoding/json"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// roomIDPattern is the transport-level rule for room identifiers.
var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,16}$`)

// messageTypes are the accepted values for EncryptedMessage.MsgType.
var messageTypes = []string{"text", "image", "voice", "gif"}

// NewValidator returns a validator with the custom rules the payload
// structs reference. Every inbound payload is validated through it
// before any field is trusted.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails for empty tag names.
	_ = v.RegisterValidation("roomid", func(fl validator.FieldLevel) bool {
		return roomIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("msgtype", func(fl validator.FieldLevel) bool {
		return lo.Contains(messageTypes, fl.Field().String())
	})

	return v
}

// IsJSONArray reports whether raw is a well-formed JSON array. Used
// for relay-only payloads whose entries are forwarded verbatim.
func IsJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return false
	}
	return json.Valid(raw)
}

// ValidRoomID reports whether id satisfies the room identifier rule.
func ValidRoomID(id string) bool {
	return roomIDPattern.MatchString(id)
}

// TimestampInWindow reports whether a client-supplied millisecond
// timestamp falls inside the accepted tolerance around server time.
func TimestampInWindow(tsMillis int64, now time.Time) bool {
	ts := time.UnixMilli(tsMillis)
	if ts.After(now.Add(MaxTimestampFuture)) {
		return false
	}
	return !ts.Before(now.Add(-MaxTimestampPast))
}
