// Package store is the boundary to the durable profile/chat store. The
// simulation only ever reaches it through the game's persistence gateway,
// which makes every write fire-and-forget.
package store

import (
	"context"
	"errors"
	"time"
)

// Counter and max fields the game is allowed to touch.
type Field string

const (
	FieldTotalScore    Field = "total_score"
	FieldBestScore     Field = "best_score"
	FieldGamesPlayed   Field = "games_played"
	FieldSpeedBoosters Field = "speed_boosters"
	FieldLuckyOrbs     Field = "lucky_orbs"
)

var ErrUnknownField = errors.New("store: unknown field")

// Stats are the lifetime totals loaded at admission.
type Stats struct {
	TotalScore    int64
	BestScore     int64
	GamesPlayed   int64
	SpeedBoosters int64
	LuckyOrbs     int64
}

type ChatMessage struct {
	UserID   string
	Username string
	Hue      int
	Text     string
	At       time.Time
}

type Store interface {
	// LoadStats returns zero stats for unknown users, not an error.
	LoadStats(ctx context.Context, userID string) (Stats, error)

	IncrementScore(ctx context.Context, userID string, delta int64) error
	IncrementCounter(ctx context.Context, userID string, field Field, delta int64) error
	// MaxField raises field to value if value is greater; never lowers it.
	MaxField(ctx context.Context, userID string, field Field, value int64) error

	AppendChat(ctx context.Context, msg ChatMessage) error
	// RecentChat returns up to limit messages, oldest first.
	RecentChat(ctx context.Context, limit int) ([]ChatMessage, error)

	Close() error
}
