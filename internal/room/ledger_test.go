package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger()
	require.NoError(t, err)
	return l
}

func TestCreateOrJoinCreatesRoomWithToken(t *testing.T) {
	l := newTestLedger(t)

	res := l.CreateOrJoin("r00m1234", "conn-a", "alice")
	require.True(t, res.Accepted)
	require.Len(t, res.Members, 1)
	require.NotEmpty(t, res.Token)
	require.True(t, l.IsMember("r00m1234", "conn-a"))
}

func TestCreateOrJoinSecondMemberSeesPeer(t *testing.T) {
	l := newTestLedger(t)

	first := l.CreateOrJoin("r00m1234", "conn-a", "alice")
	second := l.CreateOrJoin("r00m1234", "conn-b", "bob")

	require.True(t, second.Accepted)
	require.Len(t, second.Members, 2)
	require.Equal(t, first.Token, second.Token)
	require.Equal(t, "alice", second.Members[0].DisplayName)
}

func TestCreateOrJoinFullRoomRejectedWithoutMutation(t *testing.T) {
	l := newTestLedger(t)

	l.CreateOrJoin("r00m1234", "conn-a", "alice")
	before := l.CreateOrJoin("r00m1234", "conn-b", "bob")

	third := l.CreateOrJoin("r00m1234", "conn-c", "carol")
	require.False(t, third.Accepted)
	require.Empty(t, third.Token)

	require.Equal(t, 2, l.MemberCount("r00m1234"))
	require.False(t, l.IsMember("r00m1234", "conn-c"))

	// Token unchanged after the rejected join.
	again := l.CreateOrJoin("r00m1234", "conn-a", "alice")
	require.Equal(t, before.Token, again.Token)
}

func TestCreateOrJoinSameConnectionIsReconnect(t *testing.T) {
	l := newTestLedger(t)

	l.CreateOrJoin("r00m1234", "conn-a", "alice")
	res := l.CreateOrJoin("r00m1234", "conn-a", "alice2")

	require.True(t, res.Accepted)
	require.Equal(t, 1, l.MemberCount("r00m1234"))
	require.Equal(t, "alice2", res.Members[0].DisplayName)
}

func TestLeaveKeepsRoomWithRemainingMember(t *testing.T) {
	l := newTestLedger(t)

	l.CreateOrJoin("r00m1234", "conn-a", "alice")
	l.CreateOrJoin("r00m1234", "conn-b", "bob")

	roomID, name, ok := l.Leave("conn-a")
	require.True(t, ok)
	require.Equal(t, "r00m1234", roomID)
	require.Equal(t, "alice", name)

	require.Equal(t, 1, l.MemberCount("r00m1234"))
	require.True(t, l.IsMember("r00m1234", "conn-b"))
}

func TestLeaveLastMemberDeletesRoom(t *testing.T) {
	l := newTestLedger(t)

	l.CreateOrJoin("r00m1234", "conn-a", "alice")

	_, _, ok := l.Leave("conn-a")
	require.True(t, ok)
	require.Equal(t, 0, l.MemberCount("r00m1234"))

	// A fresh join recreates the room with a new single member.
	res := l.CreateOrJoin("r00m1234", "conn-b", "bob")
	require.True(t, res.Accepted)
	require.Len(t, res.Members, 1)
}

func TestLeaveUnknownConnection(t *testing.T) {
	l := newTestLedger(t)

	_, _, ok := l.Leave("nobody")
	require.False(t, ok)
}

func TestDestroyRoom(t *testing.T) {
	l := newTestLedger(t)

	l.CreateOrJoin("r00m1234", "conn-a", "alice")
	l.DestroyRoom("r00m1234")

	require.False(t, l.IsMember("r00m1234", "conn-a"))
	require.Equal(t, 0, l.MemberCount("r00m1234"))
}

func TestPeer(t *testing.T) {
	l := newTestLedger(t)

	l.CreateOrJoin("r00m1234", "conn-a", "alice")

	_, ok := l.Peer("r00m1234", "conn-a")
	require.False(t, ok)

	l.CreateOrJoin("r00m1234", "conn-b", "bob")

	peer, ok := l.Peer("r00m1234", "conn-a")
	require.True(t, ok)
	require.Equal(t, "conn-b", peer.ConnID)
	require.Equal(t, "bob", peer.DisplayName)
}

func TestTouchKeepsRoomAliveThroughSweep(t *testing.T) {
	l := newTestLedger(t)

	base := time.Now()
	l.now = func() time.Time { return base }
	l.CreateOrJoin("idle0001", "conn-a", "alice")
	l.CreateOrJoin("act00001", "conn-b", "bob")

	// 61 minutes pass; only the touched room survives.
	l.now = func() time.Time { return base.Add(55 * time.Minute) }
	l.Touch("act00001")

	l.now = func() time.Time { return base.Add(61 * time.Minute) }
	removed := l.SweepExpired()

	require.Equal(t, 1, removed)
	require.False(t, l.IsMember("idle0001", "conn-a"))
	require.True(t, l.IsMember("act00001", "conn-b"))
}

func TestSweepIgnoresFreshRooms(t *testing.T) {
	l := newTestLedger(t)

	l.CreateOrJoin("r00m1234", "conn-a", "alice")
	require.Equal(t, 0, l.SweepExpired())
	require.True(t, l.IsMember("r00m1234", "conn-a"))
}

func TestTokenDeterministicPerProcess(t *testing.T) {
	l := newTestLedger(t)

	a := l.deriveToken("r00m1234")
	b := l.deriveToken("r00m1234")
	other := l.deriveToken("r00m5678")

	require.Equal(t, a, b)
	require.NotEqual(t, a, other)
}

func TestTokensDifferAcrossLedgers(t *testing.T) {
	l1 := newTestLedger(t)
	l2 := newTestLedger(t)

	require.NotEqual(t, l1.deriveToken("r00m1234"), l2.deriveToken("r00m1234"))
}

func TestVerifyToken(t *testing.T) {
	l := newTestLedger(t)

	res := l.CreateOrJoin("r00m1234", "conn-a", "alice")

	require.True(t, l.VerifyToken("r00m1234", res.Token))
	require.False(t, l.VerifyToken("r00m5678", res.Token))
	require.False(t, l.VerifyToken("r00m1234", "deadbeef"))
	require.False(t, l.VerifyToken("r00m1234", "not-hex"))
	require.False(t, l.VerifyToken("r00m1234", ""))
}
