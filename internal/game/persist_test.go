package game

import (
	"io"
	"log"
	"testing"

	"orbarena/internal/store"
)

func TestGatewayAppliesOpsInOrder(t *testing.T) {
	st := newFakeStore()
	gw := NewGateway(st, 64, log.New(io.Discard, "", 0))

	gw.IncrementScore("u1", 5)
	gw.IncrementScore("u1", 5)
	gw.MaxField("u1", store.FieldBestScore, 7)
	gw.MaxField("u1", store.FieldBestScore, 3) // lower: must not win
	gw.IncrementCounter("u1", store.FieldGamesPlayed, 1)
	gw.Close()

	got := st.statsFor("u1")
	if got.TotalScore != 10 {
		t.Fatalf("total = %d, want 10", got.TotalScore)
	}
	if got.BestScore != 7 {
		t.Fatalf("best = %d, want 7", got.BestScore)
	}
	if got.GamesPlayed != 1 {
		t.Fatalf("games = %d, want 1", got.GamesPlayed)
	}
}

func TestGatewaySwallowsStoreFailures(t *testing.T) {
	st := newFakeStore()
	st.failAll = true
	gw := NewGateway(st, 64, log.New(io.Discard, "", 0))

	// Must not panic, block, or surface anything.
	gw.IncrementScore("u1", 5)
	gw.Close()

	if got := st.statsFor("u1").TotalScore; got != 0 {
		t.Fatalf("total = %d, want 0", got)
	}
}

func TestGatewayShedsOnFullQueue(t *testing.T) {
	st := newFakeStore()
	st.gate = make(chan struct{}) // park the worker mid-op
	gw := NewGateway(st, 1, log.New(io.Discard, "", 0))

	for i := 0; i < 10; i++ {
		gw.IncrementScore("u1", 1)
	}
	dropped := gw.Dropped()
	close(st.gate)
	gw.Close()

	if dropped == 0 {
		t.Fatal("expected drops on a size-1 queue under burst")
	}
	if got := st.statsFor("u1").TotalScore; got == 0 || got >= 10 {
		t.Fatalf("applied total = %d, want partial delivery", got)
	}
}

func TestGatewayEnqueueAfterCloseIsNoop(t *testing.T) {
	st := newFakeStore()
	gw := NewGateway(st, 8, log.New(io.Discard, "", 0))
	gw.Close()

	gw.IncrementScore("u1", 5) // must not panic on closed channel
	if got := st.statsFor("u1").TotalScore; got != 0 {
		t.Fatalf("total = %d, want 0", got)
	}
}
