// Command client joins a room server with the terminal client.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amalg/bomb-arena/internal/discovery"
	"github.com/amalg/bomb-arena/internal/logging"
	"github.com/amalg/bomb-arena/internal/network"
	"github.com/amalg/bomb-arena/internal/ui"
)

func main() {
	addr := flag.String("addr", "", "Server address (e.g., 192.168.1.5:9999 or ws://host:port/ws)")
	name := flag.String("name", "Player", "Your player name")
	browse := flag.Bool("browse", false, "Find a room on the LAN instead of using --addr")
	wait := flag.Duration("browse-wait", 3*time.Second, "How long to listen for rooms")
	flag.Parse()

	url := ""
	switch {
	case *addr != "":
		url = network.WebsocketURL(*addr)
	case *browse:
		room, err := findRoom(*wait)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Browse failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Found %s (%d players) hosted by %s\n", room.RoomName, room.PlayerCount, room.HostName)
		url = room.URL
	default:
		fmt.Fprintln(os.Stderr, "Usage: client --addr <host:port> [--name <name>]")
		fmt.Fprintln(os.Stderr, "       client --browse [--name <name>]")
		os.Exit(1)
	}

	fmt.Printf("Connecting to %s as %s...\n", url, *name)

	client, err := network.NewClient(url, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Printf("Connected! Player ID: %s\n", client.PlayerID())

	p := tea.NewProgram(ui.NewModel(client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// findRoom listens for advertisements and returns the first visible room.
func findRoom(wait time.Duration) (discovery.RoomInfo, error) {
	log, _ := logging.New(io.Discard, "", false)
	l := discovery.NewListener(log)
	if err := l.Start(); err != nil {
		return discovery.RoomInfo{}, err
	}
	defer l.Stop()

	fmt.Println("Looking for rooms on the LAN...")
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if rooms := l.Rooms(); len(rooms) > 0 {
			return rooms[0], nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return discovery.RoomInfo{}, fmt.Errorf("no rooms found after %s", wait)
}
