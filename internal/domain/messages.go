package domain

import "encoding/json"

// WebSocket event types from client.
const (
	MsgTypeJoinRoom    = "join-room"
	MsgTypeKeyExchange = "key-exchange"
	MsgTypeSyncHistory = "sync-history"
	MsgTypeSendMessage = "send-message"
	MsgTypeTyping      = "typing"
	MsgTypeStopTyping  = "stop-typing"
	MsgTypeEndChat     = "end-chat"
)

// WebSocket event types to client.
const (
	MsgTypeJoined         = "joined"
	MsgTypePeerJoined     = "peer-joined"
	MsgTypeRoomFull       = "room-full"
	MsgTypeReceiveMessage = "receive-message"
	MsgTypeChatEnded      = "chat-ended"
	MsgTypePeerLeft       = "peer-left"
	MsgTypeError          = "error-msg"
)

// BaseMessage is the envelope every inbound frame must carry.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server events.

type JoinRoomMessage struct {
	Type        string `json:"type"`
	RoomID      string `json:"roomId" validate:"required,roomid"`
	DisplayName string `json:"displayName" validate:"required,max=24"`
	Rejoining   bool   `json:"rejoining,omitempty"`
	// Token is the room token from a previous join. A valid token
	// proves prior membership and stands in for the captcha on
	// reconnect.
	Token         string `json:"token,omitempty"`
	CaptchaID     string `json:"captchaId,omitempty"`
	CaptchaAnswer string `json:"captchaAnswer,omitempty"`
}

type KeyExchangeMessage struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId" validate:"required,roomid"`
	PublicKey string `json:"publicKey" validate:"required,max=1000"`
}

// SyncHistoryMessage relays already-encrypted history verbatim.
// Messages stays raw: the only shape rule is "is a JSON array", and
// entries pass through byte for byte — their integrity and any extra
// fields are a client-cryptography concern the server never models.
type SyncHistoryMessage struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId" validate:"required,roomid"`
	Messages json.RawMessage `json:"messages" validate:"-"`
}

type SendMessageMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId" validate:"required,roomid"`
	EncryptedMessage
}

type TypingMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId" validate:"required,roomid"`
	Name   string `json:"name" validate:"required,max=24"`
}

type StopTypingMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId" validate:"required,roomid"`
}

type EndChatMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId" validate:"required,roomid"`
}

// EncryptedMessage is the opaque ciphertext unit relayed between the
// two peers. The server validates shape and bounds only; content is
// end-to-end encrypted and never inspected.
type EncryptedMessage struct {
	Sender     string `json:"sender" validate:"required,max=24"`
	MsgType    string `json:"msgType" validate:"required,msgtype"`
	Ciphertext string `json:"ciphertext" validate:"required,max=5242880"`
	IV         string `json:"iv" validate:"required,max=64"`
	Timestamp  int64  `json:"timestamp" validate:"required"`
}

// Server -> Client events.

// JoinedMessage acknowledges a join. PeerName is a pointer so the
// field serializes as an explicit null while the room has no peer yet.
type JoinedMessage struct {
	Type     string  `json:"type"`
	RoomID   string  `json:"roomId"`
	Token    string  `json:"token"`
	PeerName *string `json:"peerName"`
}

type PeerJoinedMessage struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type RoomFullMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type KeyExchangeRelay struct {
	Type      string `json:"type"`
	PublicKey string `json:"publicKey"`
}

type SyncHistoryRelay struct {
	Type     string          `json:"type"`
	Messages json.RawMessage `json:"messages"`
}

type ReceiveMessageRelay struct {
	Type string `json:"type"`
	EncryptedMessage
}

type TypingRelay struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type StopTypingRelay struct {
	Type string `json:"type"`
}

type ChatEndedMessage struct {
	Type string `json:"type"`
}

type PeerLeftMessage struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorMessage builds the error-msg event sent back to the sender
// for user-facing failure categories.
func NewErrorMessage(message string) *ErrorMessage {
	return &ErrorMessage{Type: MsgTypeError, Message: message}
}
