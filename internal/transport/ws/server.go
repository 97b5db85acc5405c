package ws

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"orbarena/internal/auth"
	"orbarena/internal/game"
	"orbarena/internal/protocol"
	"orbarena/internal/store"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
)

type Server struct {
	world    *game.World
	reg      *game.Registry
	relay    *game.ChatRelay
	verifier auth.Verifier
	st       store.Store
	log      *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *game.World, reg *game.Registry, relay *game.ChatRelay, verifier auth.Verifier, st store.Store, logger *log.Logger) *Server {
	return &Server{
		world:    w,
		reg:      reg,
		relay:    relay,
		verifier: verifier,
		st:       st,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn, r)
		if sess == nil {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-sess.Out():
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop. Malformed messages are dropped, the session lives on.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeMove:
				var mv protocol.MoveMsg
				if err := json.Unmarshal(msg, &mv); err != nil {
					continue
				}
				s.world.Input(sess.ID, mv.Up, mv.Down, mv.Left, mv.Right)
			case protocol.TypeChat:
				var ch protocol.ChatSendMsg
				if err := json.Unmarshal(msg, &ch); err != nil {
					continue
				}
				s.relay.Send(sess.ID, ch.Text)
			default:
				// Unknown type: drop.
			}
		}

		// Cleanup. The loop removes the player and runs the final flush.
		s.world.Leave(sess.ID)
	}
}

// handshake verifies the bearer token (query param, or an auth message as
// the first frame) and admits the session. Auth failure is fatal to the
// connection: one error-msg frame, then close. No retry.
func (s *Server) handshake(conn *websocket.Conn, r *http.Request) *game.Session {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeAuth {
			s.reject(conn, protocol.ErrProtoBadHello, "expected auth")
			return nil
		}
		var am protocol.AuthMsg
		if err := json.Unmarshal(msg, &am); err != nil {
			s.reject(conn, protocol.ErrProtoBadHello, "expected auth")
			return nil
		}
		token = strings.TrimSpace(am.Token)
	}

	ident, err := s.verifier.Verify(token, time.Now())
	if err != nil {
		s.reject(conn, protocol.ErrAuthFailed, "Auth failed")
		return nil
	}

	sess := s.reg.Admit(ident, rand.Intn(360))

	ctx, cancel := context.WithTimeout(r.Context(), handshakeTimeout)
	defer cancel()
	init, err := s.world.Admit(ctx, sess, s.st)
	if err != nil {
		s.reg.Remove(sess.ID)
		return nil
	}

	if err := writeJSON(conn, init); err != nil {
		s.world.Leave(sess.ID)
		return nil
	}
	return sess
}

func (s *Server) reject(conn *websocket.Conn, code, text string) {
	_ = writeJSON(conn, protocol.ErrorMsg{Type: protocol.TypeError, Code: code, Text: text})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, text),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
