package game

import (
	"encoding/json"
	"time"

	"orbarena/internal/protocol"
	"orbarena/internal/store"
)

// step is the tick body. Fixed order: roster changes, special-pickup spawn
// checks, input application, position integration, orb collisions, special
// collisions, broadcast. Nothing here blocks on I/O.
func (w *World) step(now time.Time, batch *tickBatch) {
	tick := w.tick.Add(1)

	rosterChanged := false
	for _, env := range batch.stats {
		w.applyStats(env)
	}
	for _, req := range batch.joins {
		w.applyJoin(tick, now, req)
		rosterChanged = true
	}
	for _, id := range batch.leaves {
		if w.applyLeave(tick, now, id) {
			rosterChanged = true
		}
	}

	w.spawnSpecials(tick, now)

	for id, mv := range batch.inputs {
		w.applyInput(id, mv)
	}
	w.integrate(now)

	players := w.state.orderedPlayers()
	w.resolveOrbs(tick, now, players)
	w.resolveSpecials(tick, now, players)

	if rosterChanged {
		w.broadcastRoster(now)
	}
	w.broadcastState(tick, now)
}

func (w *World) applyStats(env statsEnvelope) {
	p, ok := w.state.players[env.SessionID]
	if !ok || p.statsLoaded {
		return
	}
	p.statsLoaded = true
	p.Lifetime += env.Stats.TotalScore
	p.Boosters += env.Stats.SpeedBoosters
	p.Lucky += env.Stats.LuckyOrbs
}

func (w *World) applyJoin(tick uint64, now time.Time, req joinRequest) {
	t := w.cfg.Tuning
	p := &Player{
		SessionID: req.Sess.ID,
		UserID:    req.Sess.UserID,
		Name:      req.Sess.Name,
		Hue:       req.Sess.Hue,
		JoinSeq:   req.Sess.JoinSeq,
		X:         randRange(w.rng, t.PlayerSpawnInset, t.WorldW-t.PlayerSpawnInset),
		Y:         randRange(w.rng, t.PlayerSpawnInset, t.WorldH-t.PlayerSpawnInset),
	}
	w.state.addPlayer(p)

	req.Resp <- protocol.WorldInitMsg{
		Type:      protocol.TypeWorldInit,
		SessionID: p.SessionID,
		World:     protocol.WorldBounds{W: t.WorldW, H: t.WorldH},
		Players:   w.playerViews(now),
		Orbs:      w.orbViews(),
		Pickups:   w.pickupViews(),
	}

	w.emitEvent(protocol.EventMsg{
		Type: protocol.TypeEvent, Kind: protocol.EventJoin,
		SessionID: p.SessionID, Name: p.Name,
	})
	w.logEvent(EventLogEntry{Tick: tick, AtMs: now.UnixMilli(), Kind: "join",
		SessionID: p.SessionID, UserID: p.UserID, Name: p.Name})
}

// applyLeave removes the player and runs the final durable flush:
// best-session max plus a games-played increment.
func (w *World) applyLeave(tick uint64, now time.Time, sessionID string) bool {
	p := w.state.removePlayer(sessionID)
	if p == nil {
		return false
	}
	w.reg.Remove(sessionID)

	w.gw.MaxField(p.UserID, store.FieldBestScore, p.BestSession)
	w.gw.IncrementCounter(p.UserID, store.FieldGamesPlayed, 1)

	w.emitEvent(protocol.EventMsg{
		Type: protocol.TypeEvent, Kind: protocol.EventLeave,
		SessionID: p.SessionID, Name: p.Name,
	})
	w.logEvent(EventLogEntry{Tick: tick, AtMs: now.UnixMilli(), Kind: "leave",
		SessionID: p.SessionID, UserID: p.UserID, Name: p.Name, Value: p.Score})
	return true
}

// spawnSpecials re-checks each singleton's cooldown deadline once per tick.
func (w *World) spawnSpecials(tick uint64, now time.Time) {
	t := w.cfg.Tuning
	if w.state.booster == nil && !now.Before(w.state.boosterNextSpawn) {
		w.state.booster = newPickup(w.rng, PickupBooster, t.WorldW, t.WorldH, t.Booster.SpawnInset)
	}
	if w.state.lucky == nil && !now.Before(w.state.luckyNextSpawn) {
		w.state.lucky = newPickup(w.rng, PickupLucky, t.WorldW, t.WorldH, t.Lucky.SpawnInset)
		w.emitEvent(protocol.EventMsg{Type: protocol.TypeEvent, Kind: protocol.EventLuckySpawn})
		w.logEvent(EventLogEntry{Tick: tick, AtMs: now.UnixMilli(), Kind: "lucky-spawn"})
	}
}

func (w *World) applyInput(sessionID string, mv moveInput) {
	p, ok := w.state.players[sessionID]
	if !ok {
		return // raced with disconnect
	}
	speed := w.cfg.Tuning.PlayerSpeed
	var vx, vy float64
	if mv.Up {
		vy -= speed
	}
	if mv.Down {
		vy += speed
	}
	if mv.Left {
		vx -= speed
	}
	if mv.Right {
		vx += speed
	}
	p.VX = vx
	p.VY = vy
}

func (w *World) integrate(now time.Time) {
	t := w.cfg.Tuning
	for _, p := range w.state.players {
		mult := 1.0
		if p.boosted(now) {
			mult = t.Booster.Multiplier
		}
		p.X = clamp(p.X+p.VX*mult, t.PlayerRadius, t.WorldW-t.PlayerRadius)
		p.Y = clamp(p.Y+p.VY*mult, t.PlayerRadius, t.WorldH-t.PlayerRadius)
	}
}

// resolveOrbs awards each overlapped orb to the earliest-joined overlapping
// player and respawns it in place the same tick.
func (w *World) resolveOrbs(tick uint64, now time.Time, players []*Player) {
	t := w.cfg.Tuning
	for i := range w.state.orbs {
		o := &w.state.orbs[i]
		p := firstOverlapping(players, o.X, o.Y, t.OrbRadius, t.PlayerRadius)
		if p == nil {
			continue
		}
		p.Score += t.OrbValue
		p.Lifetime += t.OrbValue
		if p.Score > p.BestSession {
			p.BestSession = p.Score
		}
		w.gw.IncrementScore(p.UserID, t.OrbValue)
		w.state.orbs[i] = newOrb(w.rng, t.WorldW, t.WorldH, t.OrbSpawnInset)
	}
}

// resolveSpecials lets at most one player claim each live singleton, then
// clears it and restarts its cooldown clock from now.
func (w *World) resolveSpecials(tick uint64, now time.Time, players []*Player) {
	t := w.cfg.Tuning

	if b := w.state.booster; b != nil {
		if p := firstOverlapping(players, b.X, b.Y, t.Booster.Radius, t.PlayerRadius); p != nil {
			p.BoostUntil = now.Add(time.Duration(t.Booster.DurationMs) * time.Millisecond)
			p.Boosters++
			w.gw.IncrementCounter(p.UserID, store.FieldSpeedBoosters, 1)
			w.state.booster = nil
			w.state.boosterNextSpawn = now.Add(time.Duration(t.Booster.CooldownMs) * time.Millisecond)
			w.emitEvent(protocol.EventMsg{
				Type: protocol.TypeEvent, Kind: protocol.EventBoosterClaim,
				SessionID: p.SessionID, Name: p.Name,
			})
			w.logEvent(EventLogEntry{Tick: tick, AtMs: now.UnixMilli(), Kind: "booster-claim",
				SessionID: p.SessionID, UserID: p.UserID})
		}
	}

	if l := w.state.lucky; l != nil {
		if p := firstOverlapping(players, l.X, l.Y, t.Lucky.Radius, t.PlayerRadius); p != nil {
			p.Score += t.Lucky.Value
			p.Lifetime += t.Lucky.Value
			if p.Score > p.BestSession {
				p.BestSession = p.Score
			}
			p.Lucky++
			w.gw.IncrementScore(p.UserID, t.Lucky.Value)
			w.gw.IncrementCounter(p.UserID, store.FieldLuckyOrbs, 1)
			w.state.lucky = nil
			w.state.luckyNextSpawn = now.Add(time.Duration(t.Lucky.CooldownMs) * time.Millisecond)
			w.emitEvent(protocol.EventMsg{
				Type: protocol.TypeEvent, Kind: protocol.EventLuckyClaim,
				SessionID: p.SessionID, Name: p.Name, Value: t.Lucky.Value,
			})
			w.logEvent(EventLogEntry{Tick: tick, AtMs: now.UnixMilli(), Kind: "lucky-claim",
				SessionID: p.SessionID, UserID: p.UserID, Value: t.Lucky.Value})
		}
	}
}

func (w *World) broadcastRoster(now time.Time) {
	b, err := json.Marshal(protocol.PlayersMsg{
		Type:    protocol.TypePlayers,
		Players: w.playerViews(now),
	})
	if err != nil {
		return
	}
	w.reg.Broadcast(b)
}

func (w *World) broadcastState(tick uint64, now time.Time) {
	b, err := json.Marshal(protocol.StateMsg{
		Type:    protocol.TypeState,
		Tick:    tick,
		Players: w.playerViews(now),
		Orbs:    w.orbViews(),
		Pickups: w.pickupViews(),
	})
	if err != nil {
		return
	}
	w.reg.Broadcast(b)
}

func (w *World) emitEvent(e protocol.EventMsg) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	w.reg.Broadcast(b)
}
