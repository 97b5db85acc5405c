package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Player is the loop-owned avatar for one live session. Everything here is
// mutated only from the world goroutine; connection goroutines never touch
// it directly, they post envelopes into the world mailboxes instead.
type Player struct {
	SessionID string
	UserID    string
	Name      string
	Hue       int
	JoinSeq   uint64

	X, Y   float64
	VX, VY float64 // base velocity from the latest move intent

	Score       int64 // session score, resets every connection
	Lifetime    int64 // durable total, seeded from the store
	BestSession int64

	Boosters int64 // lifetime booster pickups
	Lucky    int64 // lifetime lucky pickups

	BoostUntil time.Time

	statsLoaded bool
}

func (p *Player) boosted(now time.Time) bool {
	return now.Before(p.BoostUntil)
}

// Orb is a scoring pickup. The orb slice has constant length; a consumed
// orb is replaced in place within the same tick.
type Orb struct {
	ID string
	X  float64
	Y  float64
}

type PickupKind string

const (
	PickupBooster PickupKind = "booster"
	PickupLucky   PickupKind = "lucky"
)

// Pickup is a singleton special entity. At most one per kind is live.
type Pickup struct {
	ID   string
	Kind PickupKind
	X    float64
	Y    float64
}

// worldState is the shared mutable model. Single writer: the world loop.
type worldState struct {
	players   map[string]*Player
	joinOrder []string // session ids, stable by join sequence

	orbs []Orb

	booster          *Pickup
	lucky            *Pickup
	boosterNextSpawn time.Time
	luckyNextSpawn   time.Time
}

func newWorldState(orbCount int) *worldState {
	return &worldState{
		players: make(map[string]*Player),
		orbs:    make([]Orb, orbCount),
	}
}

// orderedPlayers yields players in join order. Collision scans use this so
// same-tick ties always resolve to the earliest joiner.
func (s *worldState) orderedPlayers() []*Player {
	out := make([]*Player, 0, len(s.joinOrder))
	for _, id := range s.joinOrder {
		if p, ok := s.players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *worldState) addPlayer(p *Player) {
	s.players[p.SessionID] = p
	s.joinOrder = append(s.joinOrder, p.SessionID)
}

func (s *worldState) removePlayer(sessionID string) *Player {
	p, ok := s.players[sessionID]
	if !ok {
		return nil
	}
	delete(s.players, sessionID)
	for i, id := range s.joinOrder {
		if id == sessionID {
			s.joinOrder = append(s.joinOrder[:i], s.joinOrder[i+1:]...)
			break
		}
	}
	return p
}

func randRange(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

func newOrb(rng *rand.Rand, w, h, inset float64) Orb {
	return Orb{
		ID: uuid.NewString(),
		X:  randRange(rng, inset, w-inset),
		Y:  randRange(rng, inset, h-inset),
	}
}

func newPickup(rng *rand.Rand, kind PickupKind, w, h, inset float64) *Pickup {
	return &Pickup{
		ID:   uuid.NewString(),
		Kind: kind,
		X:    randRange(rng, inset, w-inset),
		Y:    randRange(rng, inset, h-inset),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
