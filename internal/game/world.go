package game

import (
	"context"
	"log"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"orbarena/internal/game/tuning"
	"orbarena/internal/protocol"
	"orbarena/internal/store"
)

type Config struct {
	Tuning tuning.Tuning
	Seed   int64
}

// joinRequest admits a session into the simulation. The reply carries the
// one-time world-init payload composed from loop-owned state.
type joinRequest struct {
	Sess *Session
	Resp chan protocol.WorldInitMsg
}

// moveInput is the latest directional intent for one session. Only the
// newest intent per session survives until the next tick.
type moveInput struct {
	Up, Down, Left, Right bool
}

type statsEnvelope struct {
	SessionID string
	Stats     store.Stats
}

// EventLogEntry is one discrete game event for the audit log.
type EventLogEntry struct {
	Tick      uint64 `json:"tick"`
	AtMs      int64  `json:"at_ms"`
	Kind      string `json:"kind"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Value     int64  `json:"value,omitempty"`
}

// EventLogger sinks audit entries. Implementations live under
// internal/persistence and must not block for long; entries are written
// from the loop goroutine.
type EventLogger interface {
	WriteEvent(e EventLogEntry) error
}

// World is the authoritative single-threaded simulation. All of state is
// accessed only from the Run goroutine; everything else communicates
// through the mailboxes.
type World struct {
	cfg Config

	state *worldState
	reg   *Registry
	gw    *Gateway
	log   *log.Logger

	join  chan joinRequest
	leave chan string
	input chan inputEnvelope
	stats chan statsEnvelope
	stop  chan struct{}

	tick   atomic.Uint64
	stepMS atomic.Uint64 // float64 bits

	rng *rand.Rand
	now func() time.Time

	eventLog EventLogger // optional
}

type inputEnvelope struct {
	SessionID string
	Move      moveInput
}

func New(cfg Config, reg *Registry, gw *Gateway, logger *log.Logger) *World {
	w := &World{
		cfg:   cfg,
		state: newWorldState(cfg.Tuning.OrbCount),
		reg:   reg,
		gw:    gw,
		log:   logger,
		join:  make(chan joinRequest, 64),
		leave: make(chan string, 64),
		input: make(chan inputEnvelope, 1024),
		stats: make(chan statsEnvelope, 64),
		stop:  make(chan struct{}),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		now:   time.Now,
	}

	t := cfg.Tuning
	for i := range w.state.orbs {
		w.state.orbs[i] = newOrb(w.rng, t.WorldW, t.WorldH, t.OrbSpawnInset)
	}
	start := w.now()
	w.state.boosterNextSpawn = start.Add(time.Duration(t.Booster.CooldownMs) * time.Millisecond)
	w.state.luckyNextSpawn = start.Add(time.Duration(t.Lucky.CooldownMs) * time.Millisecond)
	return w
}

// SetEventLogger installs the optional audit sink. Call before Run.
func (w *World) SetEventLogger(l EventLogger) { w.eventLog = l }

// Admit hands an authenticated session to the loop and blocks until the
// next tick replies with the world-init payload. Lifetime stats are loaded
// in the background; the player starts at zero until they arrive.
func (w *World) Admit(ctx context.Context, sess *Session, st store.Store) (protocol.WorldInitMsg, error) {
	resp := make(chan protocol.WorldInitMsg, 1)
	select {
	case w.join <- joinRequest{Sess: sess, Resp: resp}:
	case <-ctx.Done():
		return protocol.WorldInitMsg{}, ctx.Err()
	}

	go w.loadStats(sess, st)

	select {
	case init := <-resp:
		return init, nil
	case <-ctx.Done():
		return protocol.WorldInitMsg{}, ctx.Err()
	}
}

func (w *World) loadStats(sess *Session, st store.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stats, err := st.LoadStats(ctx, sess.UserID)
	if err != nil {
		w.log.Printf("load stats user=%s: %v (defaulting to zero)", sess.UserID, err)
		stats = store.Stats{}
	}
	select {
	case w.stats <- statsEnvelope{SessionID: sess.ID, Stats: stats}:
	case <-w.stop:
	}
}

// Leave schedules removal of a session's player. Removal itself runs on
// the next tick; messages from a departed session become no-ops.
func (w *World) Leave(sessionID string) {
	select {
	case w.leave <- sessionID:
	case <-w.stop:
	}
}

// Input records a session's latest move intent.
func (w *World) Input(sessionID string, up, down, left, right bool) {
	env := inputEnvelope{SessionID: sessionID, Move: moveInput{Up: up, Down: down, Left: left, Right: right}}
	select {
	case w.input <- env:
	default:
		// Input channel saturated: the stale intent loses, which is fine.
	}
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

type QueueDepths struct {
	Join  int `json:"join"`
	Leave int `json:"leave"`
	Input int `json:"input"`
}

type Metrics struct {
	Tick        uint64      `json:"tick"`
	Players     int         `json:"players"`
	StepMS      float64     `json:"step_ms"`
	QueueDepths QueueDepths `json:"queue_depths"`
	Persist     struct {
		Depth   int    `json:"depth"`
		Dropped uint64 `json:"dropped"`
	} `json:"persist"`
}

func (w *World) Metrics() Metrics {
	var m Metrics
	m.Tick = w.tick.Load()
	m.Players = w.reg.Len()
	m.StepMS = math.Float64frombits(w.stepMS.Load())
	m.QueueDepths = QueueDepths{Join: len(w.join), Leave: len(w.leave), Input: len(w.input)}
	if w.gw != nil {
		m.Persist.Depth = w.gw.QueueDepth()
		m.Persist.Dropped = w.gw.Dropped()
	}
	return m
}

func (w *World) logEvent(e EventLogEntry) {
	if w.eventLog == nil {
		return
	}
	if err := w.eventLog.WriteEvent(e); err != nil {
		w.log.Printf("event log: %v", err)
	}
}
