package game

// Pure collision helpers. These read state and report hits; all crediting
// and respawning stays in the tick body.

func dist2(ax, ay, bx, by float64) float64 {
	dx := ax - bx
	dy := ay - by
	return dx*dx + dy*dy
}

func overlaps(ax, ay, ar, bx, by, br float64) bool {
	r := ar + br
	return dist2(ax, ay, bx, by) < r*r
}

// firstOverlapping returns the earliest-joined player overlapping the
// circle at (x,y) with radius r, or nil.
func firstOverlapping(players []*Player, x, y, r, playerRadius float64) *Player {
	for _, p := range players {
		if overlaps(p.X, p.Y, playerRadius, x, y, r) {
			return p
		}
	}
	return nil
}
