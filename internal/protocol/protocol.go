package protocol

import "encoding/json"

const Version = "1.0"

// Message types. Server -> client unless noted.
const (
	TypeWorldInit = "world-init"
	TypePlayers   = "players"
	TypeState     = "state"
	TypeChat      = "chat" // both directions
	TypeEvent     = "event"
	TypeError     = "error-msg"

	TypeAuth = "auth" // client -> server
	TypeMove = "move" // client -> server
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
