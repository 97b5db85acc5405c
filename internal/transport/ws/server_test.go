package ws_test

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"orbarena/internal/auth"
	"orbarena/internal/game"
	"orbarena/internal/game/tuning"
	"orbarena/internal/protocol"
	"orbarena/internal/transport/ws"
)

var testSecret = []byte("ws-test-secret")

type testServer struct {
	srv *httptest.Server
}

func startServer(t *testing.T) *testServer {
	t.Helper()

	tune := tuning.Defaults()
	tune.TickMs = 5
	tune.OrbCount = 0 // keep scores inert for movement assertions

	logger := log.New(io.Discard, "", 0)
	st := newMemStore()
	gw := game.NewGateway(st, tune.PersistQueue, logger)
	t.Cleanup(gw.Close)
	reg := game.NewRegistry(tune.SessionQueue)
	relay := game.NewChatRelay(reg, gw, tune.ChatMaxLen, logger)
	w := game.New(game.Config{Tuning: tune, Seed: 7}, reg, gw, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()

	handler := ws.NewServer(w, reg, relay, auth.NewHMACVerifier(testSecret), st, logger).Handler()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv}
}

func (ts *testServer) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http")
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func mintToken(t *testing.T, uid, name string) string {
	t.Helper()
	tok, err := auth.Issue(testSecret, auth.Identity{UserID: uid, Username: name}, time.Now(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

// readUntil scans frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) []byte {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %q: %v", wantType, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		if base.Type == wantType {
			return msg
		}
	}
	t.Fatalf("no %q frame within deadline", wantType)
	return nil
}

func TestAuthFailureClosesConnection(t *testing.T) {
	ts := startServer(t)
	conn := ts.dial(t, "not-a-token")

	msg := readUntil(t, conn, protocol.TypeError)
	var em protocol.ErrorMsg
	if err := json.Unmarshal(msg, &em); err != nil {
		t.Fatal(err)
	}
	if em.Code != protocol.ErrAuthFailed {
		t.Fatalf("code %q", em.Code)
	}
	if !protocol.IsKnownCode(em.Code) {
		t.Fatalf("code %q not in the published set", em.Code)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return // closed, as required
		}
	}
}

func TestJoinMoveAndMalformedInput(t *testing.T) {
	ts := startServer(t)
	conn := ts.dial(t, mintToken(t, "u1", "ann"))

	var init protocol.WorldInitMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeWorldInit), &init); err != nil {
		t.Fatal(err)
	}
	if init.SessionID == "" || init.World.W <= 0 {
		t.Fatalf("world-init %+v", init)
	}

	findSelf := func() protocol.PlayerView {
		t.Helper()
		for i := 0; i < 50; i++ {
			var st protocol.StateMsg
			if err := json.Unmarshal(readUntil(t, conn, protocol.TypeState), &st); err != nil {
				t.Fatal(err)
			}
			for _, p := range st.Players {
				if p.ID == init.SessionID {
					return p
				}
			}
		}
		t.Fatal("never saw own player in state")
		return protocol.PlayerView{}
	}

	// Malformed move: non-boolean fields. Velocity must stay zero.
	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"move","up":"yes","down":1,"left":[],"right":{}}`)); err != nil {
		t.Fatal(err)
	}
	before := findSelf()
	time.Sleep(50 * time.Millisecond)
	after := findSelf()
	if before.X != after.X || before.Y != after.Y {
		t.Fatalf("malformed move changed position: %+v -> %+v", before, after)
	}

	// Valid move: position advances.
	if err := conn.WriteJSON(protocol.MoveMsg{Type: protocol.TypeMove, Right: true}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	moved := findSelf()
	if moved.X <= after.X {
		t.Fatalf("x did not advance: %v -> %v", after.X, moved.X)
	}
}

func TestChatRoundTrip(t *testing.T) {
	ts := startServer(t)
	conn := ts.dial(t, mintToken(t, "u1", "ann"))
	readUntil(t, conn, protocol.TypeWorldInit)

	if err := conn.WriteJSON(protocol.ChatSendMsg{Type: protocol.TypeChat, Text: " hello arena "}); err != nil {
		t.Fatal(err)
	}

	var ch protocol.ChatMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeChat), &ch); err != nil {
		t.Fatal(err)
	}
	if ch.Text != "hello arena" || ch.Name != "ann" {
		t.Fatalf("chat %+v", ch)
	}
}

func TestSecondClientSeesRoster(t *testing.T) {
	ts := startServer(t)
	a := ts.dial(t, mintToken(t, "u1", "ann"))
	readUntil(t, a, protocol.TypeWorldInit)

	b := ts.dial(t, mintToken(t, "u2", "bob"))
	var init protocol.WorldInitMsg
	if err := json.Unmarshal(readUntil(t, b, protocol.TypeWorldInit), &init); err != nil {
		t.Fatal(err)
	}
	if len(init.Players) != 2 {
		t.Fatalf("second join sees %d players, want 2", len(init.Players))
	}

	// The first client gets a roster update naming both players.
	var roster protocol.PlayersMsg
	if err := json.Unmarshal(readUntil(t, a, protocol.TypePlayers), &roster); err != nil {
		t.Fatal(err)
	}
	if len(roster.Players) != 2 {
		t.Fatalf("roster has %d players, want 2", len(roster.Players))
	}
}
