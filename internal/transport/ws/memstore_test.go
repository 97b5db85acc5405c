package ws_test

import (
	"context"
	"sync"

	"orbarena/internal/store"
)

// memStore is a minimal in-memory store.Store for transport tests.
type memStore struct {
	mu    sync.Mutex
	stats map[string]store.Stats
	chat  []store.ChatMessage
}

func newMemStore() *memStore {
	return &memStore{stats: make(map[string]store.Stats)}
}

func (m *memStore) LoadStats(_ context.Context, userID string) (store.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats[userID], nil
}

func (m *memStore) IncrementScore(ctx context.Context, userID string, delta int64) error {
	return m.IncrementCounter(ctx, userID, store.FieldTotalScore, delta)
}

func (m *memStore) IncrementCounter(_ context.Context, userID string, field store.Field, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.stats[userID]
	switch field {
	case store.FieldTotalScore:
		st.TotalScore += delta
	case store.FieldGamesPlayed:
		st.GamesPlayed += delta
	case store.FieldSpeedBoosters:
		st.SpeedBoosters += delta
	case store.FieldLuckyOrbs:
		st.LuckyOrbs += delta
	}
	m.stats[userID] = st
	return nil
}

func (m *memStore) MaxField(_ context.Context, userID string, field store.Field, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.stats[userID]
	if field == store.FieldBestScore && value > st.BestScore {
		st.BestScore = value
	}
	m.stats[userID] = st
	return nil
}

func (m *memStore) AppendChat(_ context.Context, msg store.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chat = append(m.chat, msg)
	return nil
}

func (m *memStore) RecentChat(_ context.Context, limit int) ([]store.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.chat) <= limit {
		return append([]store.ChatMessage(nil), m.chat...), nil
	}
	return append([]store.ChatMessage(nil), m.chat[len(m.chat)-limit:]...), nil
}

func (m *memStore) Close() error { return nil }
