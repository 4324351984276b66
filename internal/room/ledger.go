// Package room owns the in-memory registry of two-party rooms. The
// ledger is the sole writer of room state; everything else observes
// it through its methods.
package room

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/FirasLatrech/Whispr/internal/domain"
	"github.com/FirasLatrech/Whispr/internal/log"
)

// Member is one participant of a room.
type Member struct {
	ConnID      string
	DisplayName string
}

// Room is the ephemeral association between at most two connections.
type Room struct {
	ID           string
	Members      []Member
	Token        string
	CreatedAt    time.Time
	LastActivity time.Time
}

// JoinResult reports the outcome of CreateOrJoin.
type JoinResult struct {
	Accepted bool
	// Members is the full member list after the join, so the caller
	// can identify a pre-existing peer.
	Members []Member
	Token   string
}

// Ledger is the authoritative room registry. All mutation goes
// through its mutex; the TTL sweep takes the same lock.
type Ledger struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	secret []byte

	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	cancelSweep   context.CancelFunc
}

// NewLedger creates an empty ledger with a fresh token secret. The
// secret lives only in process memory; tokens from a previous run do
// not verify after a restart.
func NewLedger() (*Ledger, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}

	return &Ledger{
		rooms:         make(map[string]*Room),
		secret:        secret,
		ttl:           domain.RoomTTL,
		sweepInterval: domain.RoomSweepInterval,
		now:           time.Now,
	}, nil
}

// CreateOrJoin admits connID into roomID, creating the room on first
// join. A join by a connection that is already a member is treated as
// a reconnect: the stored display name is refreshed and the call
// succeeds. A join to a full room is rejected without mutating state.
func (l *Ledger) CreateOrJoin(roomID, connID, displayName string) JoinResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	r, ok := l.rooms[roomID]
	if !ok {
		r = &Room{
			ID:           roomID,
			Members:      []Member{{ConnID: connID, DisplayName: displayName}},
			Token:        l.deriveToken(roomID),
			CreatedAt:    now,
			LastActivity: now,
		}
		l.rooms[roomID] = r
		return JoinResult{Accepted: true, Members: append([]Member(nil), r.Members...), Token: r.Token}
	}

	for i := range r.Members {
		if r.Members[i].ConnID == connID {
			r.Members[i].DisplayName = displayName
			r.LastActivity = now
			return JoinResult{Accepted: true, Members: append([]Member(nil), r.Members...), Token: r.Token}
		}
	}

	if len(r.Members) >= domain.RoomCapacity {
		return JoinResult{Accepted: false}
	}

	r.Members = append(r.Members, Member{ConnID: connID, DisplayName: displayName})
	r.LastActivity = now
	return JoinResult{Accepted: true, Members: append([]Member(nil), r.Members...), Token: r.Token}
}

// Touch bumps the room's activity time so the sweep keeps it alive.
func (l *Ledger) Touch(roomID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.rooms[roomID]; ok {
		r.LastActivity = l.now()
	}
}

// Leave removes connID from whatever room it belongs to. A room left
// empty is deleted. Returns the vacated room id and display name so
// the caller can notify the remaining peer.
func (l *Ledger) Leave(connID string) (roomID, displayName string, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, r := range l.rooms {
		m, found := lo.Find(r.Members, func(m Member) bool { return m.ConnID == connID })
		if !found {
			continue
		}

		r.Members = lo.Reject(r.Members, func(m Member, _ int) bool { return m.ConnID == connID })
		if len(r.Members) == 0 {
			delete(l.rooms, id)
		}
		return id, m.DisplayName, true
	}
	return "", "", false
}

// DestroyRoom removes a room unconditionally (explicit end-of-chat).
func (l *Ledger) DestroyRoom(roomID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rooms, roomID)
}

// IsMember reports whether connID belongs to roomID. Every relay
// event is authorized through this check.
func (l *Ledger) IsMember(roomID, connID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.rooms[roomID]
	if !ok {
		return false
	}
	return lo.ContainsBy(r.Members, func(m Member) bool { return m.ConnID == connID })
}

// Peer returns the other member of connID's room, if both exist.
func (l *Ledger) Peer(roomID, connID string) (Member, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.rooms[roomID]
	if !ok {
		return Member{}, false
	}
	return lo.Find(r.Members, func(m Member) bool { return m.ConnID != connID })
}

// MemberCount returns the number of connections registered to roomID.
func (l *Ledger) MemberCount(roomID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.rooms[roomID]; ok {
		return len(r.Members)
	}
	return 0
}

// StartSweep launches the background TTL sweep. Stop with StopSweep
// or by cancelling ctx.
func (l *Ledger) StartSweep(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancelSweep = cancel

	go func() {
		ticker := time.NewTicker(l.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.SweepExpired()
			}
		}
	}()
}

// StopSweep terminates the background sweep.
func (l *Ledger) StopSweep() {
	if l.cancelSweep != nil {
		l.cancelSweep()
	}
}

// SweepExpired removes every room idle longer than the TTL and
// returns how many were removed.
func (l *Ledger) SweepExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.ttl)
	removed := 0
	for id, r := range l.rooms {
		if r.LastActivity.Before(cutoff) {
			delete(l.rooms, id)
			removed++
		}
	}

	if removed > 0 {
		lg := log.L()
		lg.Info().Int("rooms_removed", removed).Msg("room ttl sweep completed")
	}
	return removed
}
