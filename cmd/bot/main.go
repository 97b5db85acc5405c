package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"orbarena/internal/auth"
	"orbarena/internal/protocol"
)

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "username for the minted token")
		userID = flag.String("uid", "bot-1", "user id for the minted token")
		secret = flag.String("auth_secret", "", "server hmac secret (or set ORB_AUTH_SECRET)")
		chatty = flag.Bool("chat", true, "send a chat line now and then")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	sec := *secret
	if sec == "" {
		sec = os.Getenv("ORB_AUTH_SECRET")
	}
	if sec == "" {
		logger.Fatalf("auth secret required (-auth_secret or ORB_AUTH_SECRET)")
	}
	token, err := auth.Issue([]byte(sec), auth.Identity{UserID: *userID, Username: *name}, time.Now(), time.Hour)
	if err != nil {
		logger.Fatalf("issue token: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url+"?token="+token, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var sessionID string
	var lastTick uint64

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWorldInit:
			var init protocol.WorldInitMsg
			if err := json.Unmarshal(msg, &init); err != nil {
				continue
			}
			sessionID = init.SessionID
			logger.Printf("joined session=%s world=%.0fx%.0f orbs=%d players=%d",
				sessionID, init.World.W, init.World.H, len(init.Orbs), len(init.Players))

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			lastTick = st.Tick
			steer(conn, rng, st.Tick)
			if *chatty && st.Tick%600 == 0 {
				_ = conn.WriteJSON(protocol.ChatSendMsg{
					Type: protocol.TypeChat,
					Text: fmt.Sprintf("still here at tick %d", st.Tick),
				})
			}

		case protocol.TypeError:
			var em protocol.ErrorMsg
			_ = json.Unmarshal(msg, &em)
			logger.Fatalf("server error at tick %d: %s %s", lastTick, em.Code, em.Text)
		}
	}
}

// steer changes direction every couple of seconds.
func steer(conn *websocket.Conn, rng *rand.Rand, tick uint64) {
	if tick%60 != 0 {
		return
	}
	dir := rng.Intn(4)
	mv := protocol.MoveMsg{Type: protocol.TypeMove}
	switch dir {
	case 0:
		mv.Up = true
	case 1:
		mv.Down = true
	case 2:
		mv.Left = true
	case 3:
		mv.Right = true
	}
	_ = conn.WriteJSON(mv)
}
