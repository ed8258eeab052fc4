package network

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/amalg/bomb-arena/internal/game"
)

// Update is one decoded server notification. Exactly one field is set.
type Update struct {
	State     *game.Snapshot
	Result    *game.RoundResult
	Explosion *game.Explosion
	Chat      *ChatMsg
}

// Client connects to a room server and provides methods to send actions
// and receive updates.
type Client struct {
	conn      *websocket.Conn
	player    game.Player
	updates   chan Update
	closeOnce sync.Once
	mu        sync.Mutex
}

// WebsocketURL turns host:port into the server's websocket endpoint. Full
// ws:// or wss:// URLs are returned unchanged.
func WebsocketURL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + "/ws"
}

// NewClient dials the server and joins the room under name.
func NewClient(url, name string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		updates: make(chan Update, 64),
	}

	if err := c.write(MsgJoin, JoinMsg{Name: name}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send join: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		env, err := c.read()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("read welcome: %w", err)
		}

		switch env.Type {
		case MsgError:
			var errMsg ErrorMsg
			DecodePayload(env, &errMsg)
			conn.Close()
			return nil, fmt.Errorf("server error: %s", errMsg.Message)
		case MsgJoined:
			if err := DecodePayload(env, &c.player); err != nil {
				conn.Close()
				return nil, fmt.Errorf("decode welcome: %w", err)
			}
			conn.SetReadDeadline(time.Time{})
			go c.receiveLoop()
			return c, nil
		}
		// Broadcasts can arrive ahead of the reply; skip them.
	}
}

// PlayerID returns the client's assigned player ID.
func (c *Client) PlayerID() string {
	return c.player.ID
}

// Player returns the player record from the join reply.
func (c *Client) Player() game.Player {
	return c.player
}

// Updates returns a channel that yields server notifications. It is closed
// when the connection ends.
func (c *Client) Updates() <-chan Update {
	return c.updates
}

// Move requests a one-tile step.
func (c *Client) Move(dir game.Direction) error {
	return c.write(MsgMove, MoveMsg{Direction: dir})
}

// PlaceBomb requests a bomb at the player's tile.
func (c *Client) PlaceBomb() error {
	return c.write(MsgPlaceBomb, nil)
}

// Chat sends a chat line to the room.
func (c *Client) Chat(message string) error {
	return c.write(MsgChat, ChatMsg{Message: message})
}

// Close disconnects from the server.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		c.conn.Close()
	})
}

func (c *Client) write(msgType MsgType, payload any) error {
	data, err := Encode(msgType, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) read() (*Envelope, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func (c *Client) receiveLoop() {
	defer close(c.updates)

	for {
		// Read errors are permanent on a websocket connection.
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := Decode(data)
		if err != nil {
			continue
		}

		var u Update
		switch env.Type {
		case MsgState:
			u.State = &game.Snapshot{}
			if DecodePayload(env, u.State) != nil {
				continue
			}
		case MsgGameOver:
			u.Result = &game.RoundResult{}
			if DecodePayload(env, u.Result) != nil {
				continue
			}
		case MsgBombExploded:
			u.Explosion = &game.Explosion{}
			if DecodePayload(env, u.Explosion) != nil {
				continue
			}
		case MsgChat:
			u.Chat = &ChatMsg{}
			if DecodePayload(env, u.Chat) != nil {
				continue
			}
		default:
			continue
		}
		c.deliver(u)
	}
}

// deliver drops the oldest pending update when the consumer is slow; the
// latest state matters most.
func (c *Client) deliver(u Update) {
	select {
	case c.updates <- u:
		return
	default:
	}
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- u:
	default:
	}
}
