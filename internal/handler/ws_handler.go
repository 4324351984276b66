package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/FirasLatrech/Whispr/internal/config"
	"github.com/FirasLatrech/Whispr/internal/domain"
	"github.com/FirasLatrech/Whispr/internal/gate"
	"github.com/FirasLatrech/Whispr/internal/hub"
	"github.com/FirasLatrech/Whispr/internal/log"
	"github.com/FirasLatrech/Whispr/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub     *hub.Hub
	service service.RelayService
	gate    *gate.Gate
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.RelayService, g *gate.Gate, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		gate:    g,
		wsCfg:   wsCfg,
	}
}

// HandleWebSocket admits a connection: the per-address gate runs
// before the upgrade, so a refused address never reaches room logic.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	remoteIP := log.ClientIP(r)

	if !h.gate.Acquire(remoteIP) {
		l := log.Ctx(r.Context())
		l.Warn().Str(log.FieldClientIP, remoteIP).Msg("connection cap reached")
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.gate.Release(remoteIP)
		l := log.Ctx(r.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), remoteIP, h.hub, conn, h.wsCfg)

	h.hub.Register(client)

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleMessage)
		// ReadPump returns once the socket is gone; release all
		// per-connection state.
		h.service.HandleDisconnect(context.Background(), client)
	}()
}

// handleMessage validates the envelope, decodes the typed payload for
// the event, and dispatches. Anything that fails shape-checking at
// this boundary is dropped before handler logic runs.
func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage("Invalid message format"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.MsgTypeJoinRoom:
		var msg domain.JoinRoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage("Invalid join-room message"))
			return
		}
		h.logHandlerError(client, base.Type, h.service.HandleJoinRoom(ctx, client, &msg))

	case domain.MsgTypeKeyExchange:
		var msg domain.KeyExchangeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		h.logHandlerError(client, base.Type, h.service.HandleKeyExchange(ctx, client, &msg))

	case domain.MsgTypeSyncHistory:
		var msg domain.SyncHistoryMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		h.logHandlerError(client, base.Type, h.service.HandleSyncHistory(ctx, client, &msg))

	case domain.MsgTypeSendMessage:
		var msg domain.SendMessageMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		h.logHandlerError(client, base.Type, h.service.HandleSendMessage(ctx, client, &msg))

	case domain.MsgTypeTyping:
		var msg domain.TypingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		h.logHandlerError(client, base.Type, h.service.HandleTyping(ctx, client, &msg))

	case domain.MsgTypeStopTyping:
		var msg domain.StopTypingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		h.logHandlerError(client, base.Type, h.service.HandleStopTyping(ctx, client, &msg))

	case domain.MsgTypeEndChat:
		var msg domain.EndChatMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		h.logHandlerError(client, base.Type, h.service.HandleEndChat(ctx, client, &msg))

	default:
		client.SendMessage(domain.NewErrorMessage("Unknown message type"))
	}
}

func (h *WSHandler) logHandlerError(client *hub.Client, event string, err error) {
	if err == nil {
		return
	}
	l := log.L()
	l.Warn().Str(log.FieldConnID, client.ID).Str(log.FieldEvent, event).Err(err).Msg("event handling failed")
}

func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleWebSocket)
}
