package protocol

// AUTH (client -> server): first message on a fresh connection when the
// bearer token was not supplied as a query parameter.
type AuthMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// MOVE (client -> server): latest directional intent. Booleans only; any
// other shape is dropped by the transport.
type MoveMsg struct {
	Type  string `json:"type"`
	Up    bool   `json:"up"`
	Down  bool   `json:"down"`
	Left  bool   `json:"left"`
	Right bool   `json:"right"`
}

// ChatSendMsg (client -> server): raw chat text, sanitized server-side.
type ChatSendMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PlayerView is the per-player slice of a snapshot.
type PlayerView struct {
	ID          string  `json:"id"`
	UID         string  `json:"uid"`
	Name        string  `json:"name"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Hue         int     `json:"hue"`
	Score       int64   `json:"score"`
	Lifetime    int64   `json:"lifetime"`
	BestSession int64   `json:"bestSession"`
	Boosted     bool    `json:"boosted,omitempty"`
}

type OrbView struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// PickupView is a live singleton pickup (speed booster or lucky orb).
type PickupView struct {
	ID   string  `json:"id"`
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type WorldBounds struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// WORLD-INIT: sent once per session right after admission.
type WorldInitMsg struct {
	Type      string       `json:"type"`
	SessionID string       `json:"sessionId"`
	World     WorldBounds  `json:"world"`
	Players   []PlayerView `json:"players"`
	Orbs      []OrbView    `json:"orbs"`
	Pickups   []PickupView `json:"pickups"`
}

// PLAYERS: roster broadcast on join/leave.
type PlayersMsg struct {
	Type    string       `json:"type"`
	Players []PlayerView `json:"players"`
}

// STATE: the full per-tick snapshot.
type StateMsg struct {
	Type    string       `json:"type"`
	Tick    uint64       `json:"tick"`
	Players []PlayerView `json:"players"`
	Orbs    []OrbView    `json:"orbs"`
	Pickups []PickupView `json:"pickups"`
}

// CHAT (server -> client): a sanitized, broadcast chat line.
type ChatMsg struct {
	Type string `json:"type"`
	UID  string `json:"uid"`
	Name string `json:"name"`
	Hue  int    `json:"hue"`
	Text string `json:"text"`
	TS   int64  `json:"ts"` // unix millis
}

// EVENT: transient, best-effort notification. Delivery is not guaranteed.
type EventMsg struct {
	Type      string `json:"type"`
	Kind      string `json:"kind"`
	SessionID string `json:"sessionId,omitempty"`
	Name      string `json:"name,omitempty"`
	Value     int64  `json:"value,omitempty"`
}

// Event kinds.
const (
	EventJoin         = "join"
	EventLeave        = "leave"
	EventBoosterClaim = "booster-claimed"
	EventLuckySpawn   = "lucky-spawned"
	EventLuckyClaim   = "lucky-claimed"
)

// ErrorMsg carries a fatal-to-the-connection failure string.
type ErrorMsg struct {
	Type string `json:"type"`
	Code string `json:"code,omitempty"`
	Text string `json:"text"`
}
