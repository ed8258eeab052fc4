package discovery

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advert(t *testing.T, info RoomInfo) []byte {
	t.Helper()
	data, err := json.Marshal(info)
	require.NoError(t, err)
	return data
}

func TestListenerCollectsAndExpires(t *testing.T) {
	l := NewListener(zerolog.Nop())
	now := time.Now()

	require.NoError(t, l.handle(advert(t, RoomInfo{RoomName: "zeta", URL: "ws://b/ws"}), now))
	require.NoError(t, l.handle(advert(t, RoomInfo{RoomName: "alpha", URL: "ws://a/ws", PlayerCount: 1}), now))

	rooms := l.Rooms()
	require.Len(t, rooms, 2)
	assert.Equal(t, "alpha", rooms[0].RoomName)
	assert.Equal(t, "zeta", rooms[1].RoomName)

	// A newer advertisement replaces the old one for the same URL.
	later := now.Add(3 * time.Second)
	require.NoError(t, l.handle(advert(t, RoomInfo{RoomName: "alpha", URL: "ws://a/ws", PlayerCount: 2, RoundActive: true}), later))

	l.prune(now.Add(RoomExpiry + time.Second))
	rooms = l.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, 2, rooms[0].PlayerCount)
	assert.True(t, rooms[0].RoundActive)

	l.prune(later.Add(RoomExpiry + time.Second))
	assert.Empty(t, l.Rooms())
}

func TestListenerRejectsGarbage(t *testing.T) {
	l := NewListener(zerolog.Nop())
	assert.Error(t, l.handle([]byte("{"), time.Now()))
	assert.Error(t, l.handle(advert(t, RoomInfo{RoomName: "no url"}), time.Now()))
	assert.Empty(t, l.Rooms())
}

func TestDirectedBroadcast(t *testing.T) {
	_, n, err := net.ParseCIDR("192.168.1.17/24")
	require.NoError(t, err)
	n.IP = net.ParseIP("192.168.1.17")
	assert.Equal(t, "192.168.1.255", directedBroadcast(n).String())
}

func TestBroadcasterSendsProviderInfo(t *testing.T) {
	recv, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer recv.Close()

	calls := 0
	b := NewBroadcaster(func() RoomInfo {
		calls++
		return RoomInfo{RoomName: "den", PlayerCount: calls, URL: "ws://127.0.0.1:9999/ws"}
	}, zerolog.Nop())
	b.port = recv.LocalAddr().(*net.UDPAddr).Port

	send, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer send.Close()
	b.send(send)

	recv.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, _, err := recv.ReadFromUDP(buf)
	require.NoError(t, err)

	var got RoomInfo
	require.NoError(t, json.Unmarshal(buf[:n], &got))
	assert.Equal(t, "den", got.RoomName)
	assert.Equal(t, 1, got.PlayerCount)
}
