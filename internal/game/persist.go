package game

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"orbarena/internal/store"
)

// Gateway is the fire-and-forget path to the durable store. Every call
// enqueues and returns immediately; a single worker goroutine applies ops
// in order. Failures are logged and never retried, and a saturated queue
// drops the op rather than stalling the caller. The tick loop's liveness
// must never depend on store availability.
type Gateway struct {
	st  store.Store
	log *log.Logger

	ch   chan gatewayOp
	wg   sync.WaitGroup
	once sync.Once

	// closeMu serializes Close against in-flight enqueues so intake can
	// never race the channel close.
	closeMu sync.RWMutex
	closed  atomic.Bool
	dropped atomic.Uint64
}

type gatewayOpKind int

const (
	opIncrScore gatewayOpKind = iota + 1
	opIncrCounter
	opMaxField
	opAppendChat
)

type gatewayOp struct {
	kind   gatewayOpKind
	userID string
	field  store.Field
	delta  int64
	chat   store.ChatMessage
}

func NewGateway(st store.Store, queueSize int, logger *log.Logger) *Gateway {
	if queueSize <= 0 {
		queueSize = 4096
	}
	g := &Gateway{
		st:  st,
		log: logger,
		ch:  make(chan gatewayOp, queueSize),
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.loop()
	}()
	return g
}

func (g *Gateway) IncrementScore(userID string, delta int64) {
	g.enqueue(gatewayOp{kind: opIncrScore, userID: userID, delta: delta})
}

func (g *Gateway) IncrementCounter(userID string, field store.Field, delta int64) {
	g.enqueue(gatewayOp{kind: opIncrCounter, userID: userID, field: field, delta: delta})
}

func (g *Gateway) MaxField(userID string, field store.Field, value int64) {
	g.enqueue(gatewayOp{kind: opMaxField, userID: userID, field: field, delta: value})
}

func (g *Gateway) AppendChat(msg store.ChatMessage) {
	g.enqueue(gatewayOp{kind: opAppendChat, chat: msg})
}

func (g *Gateway) enqueue(op gatewayOp) {
	if g == nil {
		return
	}
	g.closeMu.RLock()
	defer g.closeMu.RUnlock()
	if g.closed.Load() {
		return
	}
	select {
	case g.ch <- op:
	default:
		n := g.dropped.Add(1)
		if n == 1 || n%1000 == 0 {
			g.log.Printf("persist: queue full, dropped %d ops total", n)
		}
	}
}

// QueueDepth reports the current backlog, for metrics.
func (g *Gateway) QueueDepth() int { return len(g.ch) }

// Dropped reports how many ops were shed on a full queue.
func (g *Gateway) Dropped() uint64 { return g.dropped.Load() }

// Close stops intake, drains the backlog, and returns. It does not close
// the underlying store.
func (g *Gateway) Close() {
	g.once.Do(func() {
		g.closeMu.Lock()
		g.closed.Store(true)
		close(g.ch)
		g.closeMu.Unlock()
		g.wg.Wait()
	})
}

func (g *Gateway) loop() {
	for op := range g.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var err error
		switch op.kind {
		case opIncrScore:
			err = g.st.IncrementScore(ctx, op.userID, op.delta)
		case opIncrCounter:
			err = g.st.IncrementCounter(ctx, op.userID, op.field, op.delta)
		case opMaxField:
			err = g.st.MaxField(ctx, op.userID, op.field, op.delta)
		case opAppendChat:
			err = g.st.AppendChat(ctx, op.chat)
		}
		cancel()
		if err != nil {
			g.log.Printf("persist: op %d user=%s field=%s: %v", op.kind, op.userID, op.field, err)
		}
	}
}
