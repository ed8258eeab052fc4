// Command bomberman hosts a room and plays in it from the same terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amalg/bomb-arena/internal/discovery"
	"github.com/amalg/bomb-arena/internal/game"
	"github.com/amalg/bomb-arena/internal/logging"
	"github.com/amalg/bomb-arena/internal/network"
	"github.com/amalg/bomb-arena/internal/ui"
)

func main() {
	port := flag.Int("port", 9999, "Port to listen on")
	name := flag.String("name", "Host", "Your player name")
	room := flag.String("room", "", "Room name to advertise (default: your name)")
	advertise := flag.Bool("advertise", true, "Advertise the room on the LAN")
	logFile := flag.String("log", "", "Log file path (default: discard server logs)")
	flag.Parse()

	// Anything written to the terminal corrupts the TUI, so logs go to a
	// file or nowhere.
	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	log, err := logging.New(out, "debug", false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	srv, err := network.NewServer(game.DefaultConfig(), network.WithLogger(logging.Component(log, "server")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
		os.Exit(1)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("0.0.0.0", strconv.Itoa(*port)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := srv.Serve(ctx, ln); err != nil {
			log.Error().Err(err).Msg("server exited")
		}
	}()
	shutdown := func() {
		cancel()
		<-served
	}

	if *advertise {
		roomName := *room
		if roomName == "" {
			roomName = *name + "'s room"
		}
		b := discovery.NewBroadcaster(hostedRoom(srv, roomName, *port), logging.Component(log, "discovery"))
		if err := b.Start(); err != nil {
			log.Warn().Err(err).Msg("room advertisement disabled")
		} else {
			defer b.Stop()
		}
	}

	client, err := network.NewClient(network.WebsocketURL(net.JoinHostPort("127.0.0.1", strconv.Itoa(*port))), *name)
	if err != nil {
		shutdown()
		fmt.Fprintf(os.Stderr, "Failed to connect as host: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("💣 Bomb Arena on port %d\n", *port)
	printLocalAddrs(*port)

	p := tea.NewProgram(ui.NewModel(client), tea.WithAltScreen())
	_, runErr := p.Run()

	client.Close()
	shutdown()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", runErr)
		os.Exit(1)
	}
}

func hostedRoom(srv *network.Server, room string, port int) func() discovery.RoomInfo {
	host, _ := os.Hostname()
	ip := "127.0.0.1"
	if ips := discovery.LocalIPv4(); len(ips) > 0 {
		ip = ips[0].String()
	}
	url := network.WebsocketURL(net.JoinHostPort(ip, strconv.Itoa(port)))

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

// printLocalAddrs prints all local network addresses for players to connect to.
func printLocalAddrs(port int) {
	fmt.Println("Players can connect using:")
	fmt.Printf("  127.0.0.1:%d (this machine)\n", port)
	for _, ip := range discovery.LocalIPv4() {
		fmt.Printf("  %s:%d\n", ip, port)
	}
}
