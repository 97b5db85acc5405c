package game

import (
	"fmt"
	"sync"
	"sync/atomic"

	"orbarena/internal/auth"
)

// Session is one live authenticated connection. The outbound channel is
// drained by the connection's writer goroutine; fan-out never blocks on a
// slow client, it drops that client's oldest frame instead. The channel is
// never closed: writers stop via their connection context, and a removed
// session's buffer just goes unread until collected.
type Session struct {
	ID      string
	UserID  string
	Name    string
	Hue     int
	JoinSeq uint64

	out chan []byte
}

// Out is the outbound frame channel.
func (s *Session) Out() <-chan []byte { return s.out }

// Send queues a frame for this session, dropping the oldest on overflow.
func (s *Session) Send(b []byte) {
	sendLatest(s.out, b)
}

// Registry tracks one session per authenticated connection. It is the only
// game structure touched from multiple goroutines, so it carries its own
// lock; the loop-owned worldState never does.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	nextSeq   atomic.Uint64
	queueSize int
}

func NewRegistry(queueSize int) *Registry {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		queueSize: queueSize,
	}
}

// Admit registers a session for a verified identity. Token verification
// already happened in the transport; by this point the identity is trusted.
func (r *Registry) Admit(id auth.Identity, hue int) *Session {
	seq := r.nextSeq.Add(1)
	s := &Session{
		ID:      fmt.Sprintf("s%06d", seq),
		UserID:  id.UserID,
		Name:    id.Username,
		Hue:     hue,
		JoinSeq: seq,
		out:     make(chan []byte, r.queueSize),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Remove deregisters a session. Idempotent: safe to call from both the
// disconnect path and the loop.
func (r *Registry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	return ok
}

func (r *Registry) Get(sessionID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[sessionID]
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Broadcast fans a frame out to every live session, best-effort.
func (r *Registry) Broadcast(b []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		sendLatest(s.out, b)
	}
}

// sendLatest prefers fresh frames: when the buffer is full the oldest
// queued frame is dropped to make room.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
