package game

import (
	"time"

	"orbarena/internal/protocol"
)

// View composition for broadcast payloads. Loop goroutine only.

func (w *World) playerViews(now time.Time) []protocol.PlayerView {
	out := make([]protocol.PlayerView, 0, len(w.state.joinOrder))
	for _, p := range w.state.orderedPlayers() {
		out = append(out, protocol.PlayerView{
			ID:          p.SessionID,
			UID:         p.UserID,
			Name:        p.Name,
			X:           p.X,
			Y:           p.Y,
			Hue:         p.Hue,
			Score:       p.Score,
			Lifetime:    p.Lifetime,
			BestSession: p.BestSession,
			Boosted:     p.boosted(now),
		})
	}
	return out
}

func (w *World) orbViews() []protocol.OrbView {
	out := make([]protocol.OrbView, len(w.state.orbs))
	for i, o := range w.state.orbs {
		out[i] = protocol.OrbView{ID: o.ID, X: o.X, Y: o.Y}
	}
	return out
}

func (w *World) pickupViews() []protocol.PickupView {
	var out []protocol.PickupView
	if b := w.state.booster; b != nil {
		out = append(out, protocol.PickupView{ID: b.ID, Kind: string(b.Kind), X: b.X, Y: b.Y})
	}
	if l := w.state.lucky; l != nil {
		out = append(out, protocol.PickupView{ID: l.ID, Kind: string(l.Kind), X: l.X, Y: l.Y})
	}
	return out
}
