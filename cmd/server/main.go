// Command server runs a headless room server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/amalg/bomb-arena/internal/discovery"
	"github.com/amalg/bomb-arena/internal/game"
	"github.com/amalg/bomb-arena/internal/logging"
	"github.com/amalg/bomb-arena/internal/network"
)

func main() {
	addr := flag.String("addr", ":9999", "Address to listen on")
	width := flag.Int("width", 15, "Board width (odd number)")
	height := flag.Int("height", 15, "Board height (odd number)")
	roundSeconds := flag.Int("round-seconds", 180, "Round length in seconds")
	maxPlayers := flag.Int("max-players", 0, "Maximum number of players (0 = unlimited)")
	room := flag.String("room", "", "Room name to advertise (default: hostname)")
	advertise := flag.Bool("advertise", false, "Advertise the room on the LAN")
	logLevel := flag.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	logPretty := flag.Bool("log-pretty", true, "Human-readable log output")
	flag.Parse()

	log, err := logging.New(os.Stderr, *logLevel, *logPretty)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	config := game.DefaultConfig()
	config.Width = odd(*width)
	config.Height = odd(*height)
	config.RoundSeconds = *roundSeconds
	config.MaxPlayers = *maxPlayers

	srv, err := network.NewServer(config, network.WithLogger(logging.Component(log, "server")))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *addr).Msg("listen failed")
	}

	if *advertise {
		b := discovery.NewBroadcaster(roomProvider(srv, *room, ln.Addr()), logging.Component(log, "discovery"))
		if err := b.Start(); err != nil {
			log.Warn().Err(err).Msg("room advertisement disabled")
		} else {
			defer b.Stop()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx, ln); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

// roomProvider reports the live room state for advertisements.
func roomProvider(srv *network.Server, room string, addr net.Addr) func() discovery.RoomInfo {
	host, _ := os.Hostname()
	if room == "" {
		room = host
	}

	ip := "127.0.0.1"
	if ips := discovery.LocalIPv4(); len(ips) > 0 {
		ip = ips[0].String()
	}
	port := strconv.Itoa(addr.(*net.TCPAddr).Port)
	url := network.WebsocketURL(net.JoinHostPort(ip, port))

	return func() discovery.RoomInfo {
		engine := srv.Engine()
		return discovery.RoomInfo{
			RoomName:    room,
			HostName:    host,
			PlayerCount: engine.PlayerCount(),
			RoundActive: engine.Phase() == game.PhaseActive,
			URL:         url,
		}
	}
}

// odd bumps even board dimensions so the pillar grid lines up.
func odd(n int) int {
	if n%2 == 0 {
		return n + 1
	}
	return n
}
