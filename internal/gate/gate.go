// Package gate caps concurrent connections per source address.
package gate

import (
	"sync"

	"github.com/FirasLatrech/Whispr/internal/domain"
)

// Gate counts live connections per address. An address at the cap is
// refused before any room logic runs.
type Gate struct {
	mu     sync.Mutex
	counts map[string]int
	max    int
}

func New() *Gate {
	return &Gate{
		counts: make(map[string]int),
		max:    domain.MaxConnectionsPerIP,
	}
}

// Acquire reserves a connection slot for addr. It returns false when
// the address is already at the cap, leaving the count untouched.
func (g *Gate) Acquire(addr string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.counts[addr] >= g.max {
		return false
	}
	g.counts[addr]++
	return true
}

// Release frees a slot for addr. The entry is removed entirely once
// the count reaches zero; the count never goes negative.
func (g *Gate) Release(addr string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.counts[addr]
	if !ok {
		return
	}
	if n <= 1 {
		delete(g.counts, addr)
		return
	}
	g.counts[addr] = n - 1
}

// Count returns the current connection count for addr.
func (g *Gate) Count(addr string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[addr]
}
