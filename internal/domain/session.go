package domain

import (
	"sync"
	"time"
)

// State tracks where a connection is in the join → key-exchange →
// relay → teardown sequence.
type State int

const (
	// StateUnjoined is the initial state after the socket upgrade.
	StateUnjoined State = iota
	// StateJoined means the connection is alone in its room.
	StateJoined
	// StatePaired means both participants are present and the
	// key-exchange round is pending.
	StatePaired
	// StateSecured means this connection has relayed its public key.
	StateSecured
	// StateEnded is terminal: explicit end-chat or disconnect.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StatePaired:
		return "paired"
	case StateSecured:
		return "secured"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Session holds per-connection state owned by the relay service.
type Session struct {
	ID           string
	RemoteIP     string
	DisplayName  string
	RoomID       string
	State        State
	CreatedAt    time.Time
	LastActiveAt time.Time
	mu           sync.RWMutex
}

func NewSession(id, remoteIP string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		RemoteIP:     remoteIP,
		State:        StateUnjoined,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// JoinRoom records a successful join. paired is true when a peer was
// already present in the room.
func (s *Session) JoinRoom(roomID, displayName string, paired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RoomID = roomID
	s.DisplayName = displayName
	if paired {
		s.State = StatePaired
	} else {
		s.State = StateJoined
	}
	s.LastActiveAt = time.Now()
}

// Pair moves a solo connection to the paired state when its peer
// arrives. A connection already secured stays secured.
func (s *Session) Pair() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == StateJoined {
		s.State = StatePaired
	}
}

// Secure marks the connection as having completed its side of the
// key exchange.
func (s *Session) Secure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == StatePaired || s.State == StateJoined {
		s.State = StateSecured
	}
}

// End moves the session to its terminal state and clears room linkage.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RoomID = ""
	s.State = StateEnded
}

// LeaveRoom detaches the session from its room without terminating it.
func (s *Session) LeaveRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RoomID = ""
	s.State = StateUnjoined
}

func (s *Session) CurrentState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

func (s *Session) CurrentRoom() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RoomID
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DisplayName
}

func (s *Session) IsInRoom() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RoomID != ""
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
