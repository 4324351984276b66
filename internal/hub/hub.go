// Package hub tracks live websocket clients and fans relayed frames
// out to room members. Authoritative room membership lives in the
// room ledger; the hub only knows which connections are reachable.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/FirasLatrech/Whispr/internal/log"
)

// RoomMessage is a frame addressed to a room, minus one excluded
// connection (normally the sender).
type RoomMessage struct {
	RoomID  string
	Message []byte
	Exclude string
}

type Hub struct {
	clients    map[string]*Client            // connID -> client
	rooms      map[string]map[string]*Client // roomID -> connID -> client
	register   chan *Client
	unregister chan *Client
	relay      chan *RoomMessage
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		relay:      make(chan *RoomMessage, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for roomID, members := range h.rooms {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.rooms, roomID)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Msg("client unregistered")

		case msg := <-h.relay:
			h.mu.RLock()
			if members, ok := h.rooms[msg.RoomID]; ok {
				for connID, client := range members {
					if connID == msg.Exclude {
						continue
					}
					select {
					case client.Send <- msg.Message:
					default:
						go h.removeClient(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom attaches a client to a room's delivery set.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
}

// LeaveRoom detaches a client from a room's delivery set.
func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// RelayToRoom marshals message and queues it for every room member
// except the excluded connection. Pure in-memory forwarding; no
// blocking I/O on this path.
func (h *Hub) RelayToRoom(roomID string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.relay <- &RoomMessage{RoomID: roomID, Message: data, Exclude: exclude}
	return nil
}

// EvictRoom drops the room's delivery set and closes the underlying
// connections, so a stale party cannot keep relaying after end-chat.
func (h *Hub) EvictRoom(roomID string) {
	h.mu.Lock()
	members := h.rooms[roomID]
	delete(h.rooms, roomID)
	evicted := make([]*Client, 0, len(members))
	for _, client := range members {
		evicted = append(evicted, client)
	}
	h.mu.Unlock()

	// Closing the socket ends each client's ReadPump, which runs the
	// normal disconnect cleanup.
	for _, client := range evicted {
		if client.Conn != nil {
			client.Conn.Close()
		}
	}

	l := log.L()
	l.Info().Str(log.FieldRoomID, roomID).Int("evicted", len(evicted)).Msg("room evicted")
}

// Client looks up a live client by connection id.
func (h *Hub) Client(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

// RoomClientCount returns how many connections the hub can reach in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
