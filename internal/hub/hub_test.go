package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FirasLatrech/Whispr/internal/config"
)

func testClient(h *Hub, id string) *Client {
	return NewClient(id, "10.0.0.1", h, nil, config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 1024,
	})
}

func waitRegistered(t *testing.T, h *Hub, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := h.Client(id)
		return ok
	}, time.Second, time.Millisecond)
}

func TestRelayToRoomExcludesSender(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := testClient(h, "conn-a")
	b := testClient(h, "conn-b")
	h.Register(a)
	h.Register(b)
	waitRegistered(t, h, "conn-a")
	waitRegistered(t, h, "conn-b")

	h.JoinRoom(a, "r00m1234")
	h.JoinRoom(b, "r00m1234")

	require.NoError(t, h.RelayToRoom("r00m1234", map[string]string{"type": "typing"}, "conn-a"))

	select {
	case data := <-b.Send:
		var m map[string]string
		require.NoError(t, json.Unmarshal(data, &m))
		require.Equal(t, "typing", m["type"])
	case <-time.After(time.Second):
		t.Fatal("peer did not receive relayed frame")
	}

	select {
	case data := <-a.Send:
		t.Fatalf("sender received its own frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRelayToUnknownRoomIsNoop(t *testing.T) {
	h := NewHub()
	go h.Run()

	require.NoError(t, h.RelayToRoom("n0r00m00", map[string]string{"type": "typing"}, ""))
}

func TestLeaveRoomRemovesEmptyRoom(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := testClient(h, "conn-a")
	h.Register(a)
	waitRegistered(t, h, "conn-a")

	h.JoinRoom(a, "r00m1234")
	require.Equal(t, 1, h.RoomClientCount("r00m1234"))

	h.LeaveRoom(a, "r00m1234")
	require.Equal(t, 0, h.RoomClientCount("r00m1234"))
}

func TestEvictRoomDropsDeliverySet(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := testClient(h, "conn-a")
	b := testClient(h, "conn-b")
	h.Register(a)
	h.Register(b)
	waitRegistered(t, h, "conn-a")
	waitRegistered(t, h, "conn-b")

	h.JoinRoom(a, "r00m1234")
	h.JoinRoom(b, "r00m1234")

	h.EvictRoom("r00m1234")
	require.Equal(t, 0, h.RoomClientCount("r00m1234"))

	// Relay after eviction reaches nobody.
	require.NoError(t, h.RelayToRoom("r00m1234", map[string]string{"type": "typing"}, ""))
	select {
	case data := <-b.Send:
		t.Fatalf("evicted client received frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := testClient(h, "conn-a")
	h.Register(a)
	waitRegistered(t, h, "conn-a")

	h.JoinRoom(a, "r00m1234")
	h.Unregister(a)

	require.Eventually(t, func() bool {
		_, ok := h.Client("conn-a")
		return !ok
	}, time.Second, time.Millisecond)
	require.Equal(t, 0, h.RoomClientCount("r00m1234"))

	_, open := <-a.Send
	require.False(t, open)
}
