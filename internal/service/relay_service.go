package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/FirasLatrech/Whispr/internal/audit"
	"github.com/FirasLatrech/Whispr/internal/captcha"
	"github.com/FirasLatrech/Whispr/internal/domain"
	"github.com/FirasLatrech/Whispr/internal/gate"
	"github.com/FirasLatrech/Whispr/internal/hub"
	"github.com/FirasLatrech/Whispr/internal/log"
	"github.com/FirasLatrech/Whispr/internal/room"
	"github.com/FirasLatrech/Whispr/internal/throttle"
)

type relayService struct {
	hub      *hub.Hub
	ledger   *room.Ledger
	throttle *throttle.Throttle
	gate     *gate.Gate
	captcha  *captcha.Store
	validate *validator.Validate

	captchaRequired bool
	now             func() time.Time
}

func NewRelayService(
	h *hub.Hub,
	ledger *room.Ledger,
	th *throttle.Throttle,
	g *gate.Gate,
	cs *captcha.Store,
	captchaRequired bool,
) RelayService {
	return &relayService{
		hub:             h,
		ledger:          ledger,
		throttle:        th,
		gate:            g,
		captcha:         cs,
		validate:        domain.NewValidator(),
		captchaRequired: captchaRequired,
		now:             time.Now,
	}
}

func (s *relayService) HandleJoinRoom(ctx context.Context, c *hub.Client, msg *domain.JoinRoomMessage) error {
	if err := s.validate.Struct(msg); err != nil {
		return c.SendMessage(domain.NewErrorMessage("Invalid room id or display name"))
	}

	// A valid room token from an earlier join proves prior membership,
	// so a reconnecting client skips the captcha round.
	if s.captchaRequired && !s.ledger.VerifyToken(msg.RoomID, msg.Token) {
		if !s.captcha.Verify(msg.CaptchaID, msg.CaptchaAnswer) {
			audit.Log(ctx, audit.ActionJoinRejected, c.ID, "captcha verification failed")
			return c.SendMessage(domain.NewErrorMessage("Captcha verification failed"))
		}
	}

	displayName := sanitizeName(msg.DisplayName)
	res := s.ledger.CreateOrJoin(msg.RoomID, c.ID, displayName)
	if !res.Accepted {
		audit.LogWithRoom(ctx, audit.ActionJoinRejected, c.ID, msg.RoomID, "room full")
		return c.SendMessage(&domain.RoomFullMessage{Type: domain.MsgTypeRoomFull, RoomID: msg.RoomID})
	}

	s.hub.JoinRoom(c, msg.RoomID)

	var peerName *string
	for _, m := range res.Members {
		if m.ConnID != c.ID {
			name := m.DisplayName
			peerName = &name
		}
	}
	paired := peerName != nil

	c.Session.JoinRoom(msg.RoomID, displayName, paired)

	if err := c.SendMessage(&domain.JoinedMessage{
		Type:     domain.MsgTypeJoined,
		RoomID:   msg.RoomID,
		Token:    res.Token,
		PeerName: peerName,
	}); err != nil {
		return err
	}

	if paired {
		// The existing peer learns a partner arrived; by convention it
		// initiates the key exchange on receipt.
		for _, m := range res.Members {
			if m.ConnID == c.ID {
				continue
			}
			if peer, ok := s.hub.Client(m.ConnID); ok {
				peer.Session.Pair()
			}
		}
		s.hub.RelayToRoom(msg.RoomID, &domain.PeerJoinedMessage{
			Type: domain.MsgTypePeerJoined,
			Name: displayName,
		}, c.ID)
	}

	audit.LogWithRoom(ctx, audit.ActionJoinRoom, c.ID, msg.RoomID, "joined room")
	return nil
}

func (s *relayService) HandleKeyExchange(ctx context.Context, c *hub.Client, msg *domain.KeyExchangeMessage) error {
	// Oversized or malformed payloads are dropped silently; there is
	// no acknowledgment or retry in the handshake round.
	if err := s.validate.Struct(msg); err != nil {
		return nil
	}
	if !s.ledger.IsMember(msg.RoomID, c.ID) {
		return nil
	}

	c.Session.Secure()

	return s.hub.RelayToRoom(msg.RoomID, &domain.KeyExchangeRelay{
		Type:      domain.MsgTypeKeyExchange,
		PublicKey: msg.PublicKey,
	}, c.ID)
}

func (s *relayService) HandleSyncHistory(ctx context.Context, c *hub.Client, msg *domain.SyncHistoryMessage) error {
	if err := s.validate.Struct(msg); err != nil {
		return nil
	}
	// Messages must at least be an array; entries pass through verbatim.
	if !domain.IsJSONArray(msg.Messages) {
		return nil
	}
	if !s.ledger.IsMember(msg.RoomID, c.ID) {
		return nil
	}

	return s.hub.RelayToRoom(msg.RoomID, &domain.SyncHistoryRelay{
		Type:     domain.MsgTypeSyncHistory,
		Messages: msg.Messages,
	}, c.ID)
}

func (s *relayService) HandleSendMessage(ctx context.Context, c *hub.Client, msg *domain.SendMessageMessage) error {
	if !s.throttle.Check(c.ID) {
		audit.Log(ctx, audit.ActionRateLimited, c.ID, "message rate limit exceeded")
		return c.SendMessage(domain.NewErrorMessage("Rate limit exceeded, slow down"))
	}

	if err := s.validate.Struct(msg); err != nil {
		return nil
	}
	if !domain.TimestampInWindow(msg.Timestamp, s.now()) {
		return nil
	}
	if !s.ledger.IsMember(msg.RoomID, c.ID) {
		return nil
	}

	s.ledger.Touch(msg.RoomID)

	relayed := msg.EncryptedMessage
	relayed.Sender = sanitizeName(relayed.Sender)

	return s.hub.RelayToRoom(msg.RoomID, &domain.ReceiveMessageRelay{
		Type:             domain.MsgTypeReceiveMessage,
		EncryptedMessage: relayed,
	}, c.ID)
}

func (s *relayService) HandleTyping(ctx context.Context, c *hub.Client, msg *domain.TypingMessage) error {
	if err := s.validate.Struct(msg); err != nil {
		return nil
	}
	if !s.ledger.IsMember(msg.RoomID, c.ID) {
		return nil
	}

	return s.hub.RelayToRoom(msg.RoomID, &domain.TypingRelay{
		Type: domain.MsgTypeTyping,
		Name: sanitizeName(msg.Name),
	}, c.ID)
}

func (s *relayService) HandleStopTyping(ctx context.Context, c *hub.Client, msg *domain.StopTypingMessage) error {
	if err := s.validate.Struct(msg); err != nil {
		return nil
	}
	if !s.ledger.IsMember(msg.RoomID, c.ID) {
		return nil
	}

	return s.hub.RelayToRoom(msg.RoomID, &domain.StopTypingRelay{Type: domain.MsgTypeStopTyping}, c.ID)
}

func (s *relayService) HandleEndChat(ctx context.Context, c *hub.Client, msg *domain.EndChatMessage) error {
	if err := s.validate.Struct(msg); err != nil {
		return nil
	}
	if !s.ledger.IsMember(msg.RoomID, c.ID) {
		return nil
	}

	// Queue the notification before eviction closes the sockets;
	// delivery stays best-effort.
	if peer, ok := s.ledger.Peer(msg.RoomID, c.ID); ok {
		if peerClient, found := s.hub.Client(peer.ConnID); found {
			peerClient.SendMessage(&domain.ChatEndedMessage{Type: domain.MsgTypeChatEnded})
			peerClient.Session.End()
		}
	}

	c.Session.End()
	s.ledger.DestroyRoom(msg.RoomID)
	s.hub.EvictRoom(msg.RoomID)

	audit.LogWithRoom(ctx, audit.ActionEndChat, c.ID, msg.RoomID, "chat ended")
	return nil
}

func (s *relayService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	s.gate.Release(c.Session.RemoteIP)
	s.throttle.Remove(c.ID)

	roomID, displayName, ok := s.ledger.Leave(c.ID)
	if ok {
		s.hub.RelayToRoom(roomID, &domain.PeerLeftMessage{
			Type: domain.MsgTypePeerLeft,
			Name: displayName,
		}, c.ID)
		audit.LogWithRoom(ctx, audit.ActionLeaveRoom, c.ID, roomID, "left room")
	}

	c.Session.End()

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldConnID, c.ID).Msg("connection cleaned up")
	audit.Log(ctx, audit.ActionDisconnect, c.ID, "disconnected")
	return nil
}

// sanitizeName trims whitespace and bounds a user-supplied name
// before it is relayed to the peer. Truncation is by rune so a
// multi-byte name is never cut into invalid UTF-8.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	runes := []rune(name)
	if len(runes) > domain.MaxDisplayNameLen {
		return string(runes[:domain.MaxDisplayNameLen])
	}
	return name
}
