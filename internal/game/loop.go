package game

import (
	"context"
	"math"
	"time"
)

// tickBatch is everything the loop drained from the mailboxes since the
// previous tick. Inputs keep only the latest intent per session.
type tickBatch struct {
	joins  []joinRequest
	leaves []string
	inputs map[string]moveInput
	stats  []statsEnvelope
}

func (b *tickBatch) reset() {
	b.joins = b.joins[:0]
	b.leaves = b.leaves[:0]
	b.stats = b.stats[:0]
	for k := range b.inputs {
		delete(b.inputs, k)
	}
}

// Run drives the fixed-interval simulation until ctx is cancelled or Stop
// is called. It is the sole writer of world state.
func (w *World) Run(ctx context.Context) error {
	interval := time.Duration(w.cfg.Tuning.TickMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	batch := tickBatch{inputs: make(map[string]moveInput)}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			batch.joins = append(batch.joins, req)
		case id := <-w.leave:
			batch.leaves = append(batch.leaves, id)
		case env := <-w.input:
			batch.inputs[env.SessionID] = env.Move
		case env := <-w.stats:
			batch.stats = append(batch.stats, env)
		case <-ticker.C:
			start := time.Now()
			w.step(w.now(), &batch)
			w.stepMS.Store(math.Float64bits(float64(time.Since(start).Microseconds()) / 1000.0))
			batch.reset()
		}
	}
}

// Stop terminates Run. Subsequent mailbox posts become no-ops.
func (w *World) Stop() { close(w.stop) }

// StepOnce advances exactly one tick with the given batch at the given
// instant, using the same ordering semantics as Run. For tests.
func (w *World) StepOnce(now time.Time, batch *tickBatch) uint64 {
	if batch == nil {
		batch = &tickBatch{}
	}
	w.step(now, batch)
	return w.tick.Load()
}
