package service

import (
	"context"

	"github.com/FirasLatrech/Whispr/internal/domain"
	"github.com/FirasLatrech/Whispr/internal/hub"
)

// RelayService sequences join → key-exchange → message relay →
// teardown for every connection.
type RelayService interface {
	HandleJoinRoom(ctx context.Context, c *hub.Client, msg *domain.JoinRoomMessage) error
	HandleKeyExchange(ctx context.Context, c *hub.Client, msg *domain.KeyExchangeMessage) error
	HandleSyncHistory(ctx context.Context, c *hub.Client, msg *domain.SyncHistoryMessage) error
	HandleSendMessage(ctx context.Context, c *hub.Client, msg *domain.SendMessageMessage) error
	HandleTyping(ctx context.Context, c *hub.Client, msg *domain.TypingMessage) error
	HandleStopTyping(ctx context.Context, c *hub.Client, msg *domain.StopTypingMessage) error
	HandleEndChat(ctx context.Context, c *hub.Client, msg *domain.EndChatMessage) error
	HandleDisconnect(ctx context.Context, c *hub.Client) error
}
