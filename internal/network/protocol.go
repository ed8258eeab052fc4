package network

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/amalg/bomb-arena/internal/game"
)

// MsgType identifies the type of network message.
type MsgType string

const (
	// Client → server
	MsgJoin      MsgType = "joinGame"
	MsgMove      MsgType = "move"
	MsgPlaceBomb MsgType = "placeBomb"
	MsgChat      MsgType = "chatMessage"

	// Server → client
	MsgJoined           MsgType = "joinedGame"
	MsgState            MsgType = MsgType(game.EventGameState)
	MsgBombPlaced       MsgType = MsgType(game.EventBombPlaced)
	MsgBombExploded     MsgType = MsgType(game.EventBombExploded)
	MsgPlayerRespawned  MsgType = MsgType(game.EventPlayerRespawned)
	MsgPlayerEliminated MsgType = MsgType(game.EventPlayerEliminated)
	MsgGameOver         MsgType = MsgType(game.EventGameOver)
	MsgError            MsgType = "error"
)

// maxMessageSize bounds a single inbound frame.
const maxMessageSize = 1 << 20

const maxChatLength = 200

// Envelope wraps all messages with a type discriminator for deserialization.
type Envelope struct {
	Type    MsgType         `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Client → Server Messages ---

// JoinMsg is sent by a client to join the room.
type JoinMsg struct {
	Name string `json:"name"`
}

// MoveMsg requests a one-tile step.
type MoveMsg struct {
	Direction game.Direction `json:"direction"`
}

// ChatMsg travels both ways: clients send Message only, the server fills in
// Sender and Time.
type ChatMsg struct {
	Sender  string `json:"sender,omitempty"`
	Message string `json:"message"`
	Time    string `json:"time,omitempty"`
}

// --- Server → Client Messages ---

// ErrorMsg notifies a client of an error.
type ErrorMsg struct {
	Message string `json:"message"`
}

// Encode serializes a typed message into one frame.
func Encode(msgType MsgType, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}

	body, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return body, nil
}

// Decode parses one frame.
func Decode(data []byte) (*Envelope, error) {
	if len(data) > maxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes", len(data))
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("missing message type")
	}
	return &env, nil
}

// DecodePayload unmarshals the payload from an envelope into the target struct.
func DecodePayload(env *Envelope, target any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", env.Type)
	}
	return json.Unmarshal(env.Payload, target)
}

// EncodeEvent maps an engine event onto its wire message.
func EncodeEvent(ev game.Event) ([]byte, error) {
	var payload any
	switch ev.Type {
	case game.EventGameState:
		payload = ev.State
	case game.EventBombPlaced:
		payload = ev.Bomb
	case game.EventBombExploded:
		payload = ev.Explosion
	case game.EventPlayerRespawned, game.EventPlayerEliminated:
		payload = ev.Player
	case game.EventGameOver:
		payload = ev.Result
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return Encode(MsgType(ev.Type), payload)
}

// SanitizeChat strips markup characters and caps the message length. It
// returns "" for messages with nothing left to say.
func SanitizeChat(message string) string {
	message = strings.NewReplacer("<", "", ">", "").Replace(message)
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > maxChatLength {
		message = string([]rune(message)[:maxChatLength])
	}
	return message
}

func newChat(sender, message string, now time.Time) ChatMsg {
	return ChatMsg{
		Sender:  sender,
		Message: message,
		Time:    now.Format("15:04:05"),
	}
}
