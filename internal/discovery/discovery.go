// Package discovery advertises rooms over UDP broadcast and collects the
// advertisements of other hosts on the LAN.
package discovery

import (
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// BroadcastPort is the UDP port used for room discovery.
	BroadcastPort = 9998
	// BroadcastInterval is how often hosts advertise their room.
	BroadcastInterval = 1 * time.Second
	// RoomExpiry is how long a room stays visible after its last broadcast.
	RoomExpiry = 4 * time.Second
)

// RoomInfo is the advertisement payload.
type RoomInfo struct {
	RoomName    string `json:"roomName"`
	HostName    string `json:"hostName"`
	PlayerCount int    `json:"playerCount"`
	RoundActive bool   `json:"roundActive"`
	URL         string `json:"url"` // websocket endpoint to dial
}

// Broadcaster periodically sends UDP broadcast packets describing a room.
// The provider is called on every tick so counts stay current.
type Broadcaster struct {
	provider func() RoomInfo
	port     int
	log      zerolog.Logger
	done     chan struct{}
	once     sync.Once
}

// NewBroadcaster creates a broadcaster that advertises whatever provider
// reports.
func NewBroadcaster(provider func() RoomInfo, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		provider: provider,
		port:     BroadcastPort,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start opens the broadcast socket and begins advertising.
func (b *Broadcaster) Start() error {
	// ListenPacket rather than DialUDP: Linux drops writes to
	// 255.255.255.255 on a dialed socket without SO_BROADCAST.
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return fmt.Errorf("open broadcast socket: %w", err)
	}
	go b.broadcastLoop(conn)
	return nil
}

// Stop stops the broadcaster. It is safe to call more than once.
func (b *Broadcaster) Stop() {
	b.once.Do(func() { close(b.done) })
}

func (b *Broadcaster) broadcastLoop(conn net.PacketConn) {
	defer conn.Close()

	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	b.send(conn)
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.send(conn)
		}
	}
}

func (b *Broadcaster) send(conn net.PacketConn) {
	data, err := json.Marshal(b.provider())
	if err != nil {
		b.log.Error().Err(err).Msg("encode advertisement")
		return
	}

	// Loopback first: same-machine browsers often never see the global
	// broadcast.
	for _, dst := range broadcastTargets(b.port) {
		if _, err := conn.WriteTo(data, dst); err != nil {
			b.log.Trace().Err(err).Str("dst", dst.String()).Msg("advertise failed")
		}
	}
}

// broadcastTargets lists loopback, the limited broadcast address and each
// up interface's directed broadcast address.
func broadcastTargets(port int) []*net.UDPAddr {
	targets := []*net.UDPAddr{
		{IP: net.IPv4(127, 0, 0, 1), Port: port},
		{IP: net.IPv4bcast, Port: port},
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return targets
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagBroadcast == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			targets = append(targets, &net.UDPAddr{IP: directedBroadcast(ipnet), Port: port})
		}
	}
	return targets
}

// directedBroadcast computes IP | ^mask for an IPv4 network.
func directedBroadcast(n *net.IPNet) net.IP {
	ip4 := n.IP.To4()
	mask := n.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	out := make(net.IP, net.IPv4len)
	for i := range out {
		out[i] = ip4[i] | ^mask[i]
	}
	return out
}

// LocalIPv4 lists the host's non-loopback IPv4 addresses.
func LocalIPv4() []net.IP {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var ips []net.IP
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			ips = append(ips, ipnet.IP.To4())
		}
	}
	return ips
}

type seenRoom struct {
	info     RoomInfo
	lastSeen time.Time
}

// Listener collects room advertisements. Rooms are keyed by URL and expire
// RoomExpiry after their last advertisement.
type Listener struct {
	rooms map[string]seenRoom
	mu    sync.RWMutex
	conn  *net.UDPConn
	log   zerolog.Logger
	done  chan struct{}
	once  sync.Once
}

// NewListener creates a room listener.
func NewListener(log zerolog.Logger) *Listener {
	return &Listener{
		rooms: make(map[string]seenRoom),
		log:   log,
		done:  make(chan struct{}),
	}
}

// Start binds the discovery port and begins collecting rooms.
func (l *Listener) Start() error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: BroadcastPort})
	if err != nil {
		return fmt.Errorf("listen UDP on port %d: %w (is another instance browsing?)", BroadcastPort, err)
	}
	l.conn = conn

	go l.listenLoop()
	go l.cleanupLoop()
	return nil
}

// Stop stops the listener.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
		if l.conn != nil {
			l.conn.Close()
		}
	})
}

// Rooms returns the currently visible rooms ordered by room name, then URL.
func (l *Listener) Rooms() []RoomInfo {
	l.mu.RLock()
	rooms := make([]RoomInfo, 0, len(l.rooms))
	for _, r := range l.rooms {
		rooms = append(rooms, r.info)
	}
	l.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].RoomName != rooms[j].RoomName {
			return rooms[i].RoomName < rooms[j].RoomName
		}
		return rooms[i].URL < rooms[j].URL
	})
	return rooms
}

func (l *Listener) listenLoop() {
	buf := make([]byte, 4096)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			l.log.Debug().Err(err).Msg("discovery read failed")
			continue
		}
		if err := l.handle(buf[:n], time.Now()); err != nil {
			l.log.Trace().Err(err).Msg("ignoring advertisement")
		}
	}
}

// handle records one advertisement.
func (l *Listener) handle(data []byte, now time.Time) error {
	var info RoomInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return err
	}
	if info.URL == "" {
		return fmt.Errorf("advertisement without url")
	}

	l.mu.Lock()
	l.rooms[info.URL] = seenRoom{info: info, lastSeen: now}
	l.mu.Unlock()
	return nil
}

func (l *Listener) cleanupLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			l.prune(now)
		}
	}
}

func (l *Listener) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for url, r := range l.rooms {
		if now.Sub(r.lastSeen) > RoomExpiry {
			delete(l.rooms, url)
		}
	}
}
