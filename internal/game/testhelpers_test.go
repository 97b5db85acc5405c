package game

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"orbarena/internal/auth"
	"orbarena/internal/game/tuning"
	"orbarena/internal/protocol"
	"orbarena/internal/store"
)

// fakeStore is an in-memory store.Store that records every call.
type fakeStore struct {
	mu    sync.Mutex
	stats map[string]store.Stats
	chat  []store.ChatMessage

	failLoads bool
	failAll   bool

	// When set, writes park here until the channel is closed.
	gate chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{stats: make(map[string]store.Stats)}
}

var errFakeStore = errors.New("fake store down")

func (f *fakeStore) LoadStats(_ context.Context, userID string) (store.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoads || f.failAll {
		return store.Stats{}, errFakeStore
	}
	return f.stats[userID], nil
}

func (f *fakeStore) IncrementScore(ctx context.Context, userID string, delta int64) error {
	return f.IncrementCounter(ctx, userID, store.FieldTotalScore, delta)
}

func (f *fakeStore) IncrementCounter(_ context.Context, userID string, field store.Field, delta int64) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errFakeStore
	}
	st := f.stats[userID]
	switch field {
	case store.FieldTotalScore:
		st.TotalScore += delta
	case store.FieldGamesPlayed:
		st.GamesPlayed += delta
	case store.FieldSpeedBoosters:
		st.SpeedBoosters += delta
	case store.FieldLuckyOrbs:
		st.LuckyOrbs += delta
	case store.FieldBestScore:
		st.BestScore += delta
	default:
		return store.ErrUnknownField
	}
	f.stats[userID] = st
	return nil
}

func (f *fakeStore) MaxField(_ context.Context, userID string, field store.Field, value int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errFakeStore
	}
	st := f.stats[userID]
	if field == store.FieldBestScore && value > st.BestScore {
		st.BestScore = value
	}
	f.stats[userID] = st
	return nil
}

func (f *fakeStore) AppendChat(_ context.Context, msg store.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errFakeStore
	}
	f.chat = append(f.chat, msg)
	return nil
}

func (f *fakeStore) RecentChat(_ context.Context, limit int) ([]store.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errFakeStore
	}
	if len(f.chat) <= limit {
		return append([]store.ChatMessage(nil), f.chat...), nil
	}
	return append([]store.ChatMessage(nil), f.chat[len(f.chat)-limit:]...), nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) statsFor(userID string) store.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats[userID]
}

type testWorld struct {
	w   *World
	reg *Registry
	gw  *Gateway
	st  *fakeStore
	now time.Time
}

func newTestWorld(t *testing.T, mod func(*tuning.Tuning)) *testWorld {
	t.Helper()
	tune := tuning.Defaults()
	if mod != nil {
		mod(&tune)
	}
	st := newFakeStore()
	logger := log.New(io.Discard, "", 0)
	gw := NewGateway(st, tune.PersistQueue, logger)
	t.Cleanup(gw.Close)
	reg := NewRegistry(tune.SessionQueue)
	w := New(Config{Tuning: tune, Seed: 1}, reg, gw, logger)

	tw := &testWorld{w: w, reg: reg, gw: gw, st: st, now: time.UnixMilli(1_700_000_000_000)}
	w.now = func() time.Time { return tw.now }
	return tw
}

// admit joins a session through a single tick and returns the player.
func (tw *testWorld) admit(t *testing.T, userID, name string) (*Session, protocol.WorldInitMsg) {
	t.Helper()
	sess := tw.reg.Admit(auth.Identity{UserID: userID, Username: name}, 180)
	resp := make(chan protocol.WorldInitMsg, 1)
	tw.step(t, &tickBatch{joins: []joinRequest{{Sess: sess, Resp: resp}}})
	select {
	case init := <-resp:
		return sess, init
	default:
		t.Fatalf("no world-init reply for %s", userID)
		return nil, protocol.WorldInitMsg{}
	}
}

func (tw *testWorld) step(t *testing.T, batch *tickBatch) {
	t.Helper()
	if batch == nil {
		batch = &tickBatch{}
	}
	tw.w.StepOnce(tw.now, batch)
}

func (tw *testWorld) advance(d time.Duration) {
	tw.now = tw.now.Add(d)
}

func (tw *testWorld) player(t *testing.T, sessionID string) *Player {
	t.Helper()
	p, ok := tw.w.state.players[sessionID]
	if !ok {
		t.Fatalf("player %s not in world", sessionID)
	}
	return p
}
