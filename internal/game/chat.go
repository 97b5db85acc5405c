package game

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"orbarena/internal/protocol"
	"orbarena/internal/store"
)

// ChatRelay validates, persists, and fans out chat. It runs on message
// arrival, never on the tick, and touches no loop-owned state: the session
// registry and the persistence gateway are its whole world.
type ChatRelay struct {
	reg    *Registry
	gw     *Gateway
	maxLen int
	log    *log.Logger
	now    func() time.Time
}

func NewChatRelay(reg *Registry, gw *Gateway, maxLen int, logger *log.Logger) *ChatRelay {
	if maxLen <= 0 {
		maxLen = 500
	}
	return &ChatRelay{
		reg:    reg,
		gw:     gw,
		maxLen: maxLen,
		log:    logger,
		now:    time.Now,
	}
}

// Send sanitizes and broadcasts one chat line from a live session. Empty
// text and unknown sessions are silently dropped. Persistence is enqueued
// before broadcast but never gates it: delivery wins over durability.
func (c *ChatRelay) Send(sessionID, rawText string) {
	sess := c.reg.Get(sessionID)
	if sess == nil {
		return
	}

	text := strings.TrimSpace(rawText)
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > c.maxLen {
		text = string(runes[:c.maxLen])
	}

	now := c.now()
	c.gw.AppendChat(store.ChatMessage{
		UserID:   sess.UserID,
		Username: sess.Name,
		Hue:      sess.Hue,
		Text:     text,
		At:       now,
	})

	b, err := json.Marshal(protocol.ChatMsg{
		Type: protocol.TypeChat,
		UID:  sess.UserID,
		Name: sess.Name,
		Hue:  sess.Hue,
		Text: text,
		TS:   now.UnixMilli(),
	})
	if err != nil {
		c.log.Printf("chat: marshal: %v", err)
		return
	}
	c.reg.Broadcast(b)
}
