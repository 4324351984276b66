package domain

import "time"

// Abuse-control limits. These are protocol constants, not tunables:
// both peers and the clients they run assume them.
const (
	// RoomCapacity is the number of participants a room can hold.
	RoomCapacity = 2

	// RoomTTL is how long a room survives without activity before the
	// sweep removes it.
	RoomTTL = time.Hour

	// RoomSweepInterval is how often the ledger scans for idle rooms.
	RoomSweepInterval = 5 * time.Minute

	// CaptchaTTL is how long an unanswered challenge stays valid.
	CaptchaTTL = 5 * time.Minute

	// CaptchaSweepInterval is how often expired challenges are purged.
	CaptchaSweepInterval = 2 * time.Minute

	// RateLimitMax and RateLimitWindow bound events per connection:
	// at most RateLimitMax events inside any trailing RateLimitWindow.
	RateLimitMax    = 30
	RateLimitWindow = 10 * time.Second

	// MaxConnectionsPerIP caps concurrent connections per source address.
	MaxConnectionsPerIP = 5

	// MaxCiphertextLen bounds a single relayed ciphertext (5 MiB of base64).
	MaxCiphertextLen = 5 * 1024 * 1024

	// MaxPublicKeyLen bounds a key-exchange payload.
	MaxPublicKeyLen = 1000

	// MaxDisplayNameLen bounds sender and display names.
	MaxDisplayNameLen = 24

	// Timestamp tolerance around server time for relayed messages,
	// bounding the replay window.
	MaxTimestampFuture = 30 * time.Second
	MaxTimestampPast   = 5 * time.Minute
)
