package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the single-process durable store. One connection, WAL.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits a write-mostly stats workload.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id TEXT PRIMARY KEY,
			total_score INTEGER NOT NULL DEFAULT 0,
			best_score INTEGER NOT NULL DEFAULT 0,
			games_played INTEGER NOT NULL DEFAULT 0,
			speed_boosters INTEGER NOT NULL DEFAULT 0,
			lucky_orbs INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			hue INTEGER NOT NULL,
			text TEXT NOT NULL,
			ts_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_ts ON chat_messages(ts_ms);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) LoadStats(ctx context.Context, userID string) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT total_score, best_score, games_played, speed_boosters, lucky_orbs
		 FROM user_stats WHERE user_id = ?`, userID).
		Scan(&st.TotalScore, &st.BestScore, &st.GamesPlayed, &st.SpeedBoosters, &st.LuckyOrbs)
	if err == sql.ErrNoRows {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *SQLiteStore) IncrementScore(ctx context.Context, userID string, delta int64) error {
	return s.IncrementCounter(ctx, userID, FieldTotalScore, delta)
}

func (s *SQLiteStore) IncrementCounter(ctx context.Context, userID string, field Field, delta int64) error {
	col, ok := columnFor(field)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO user_stats(user_id, %[1]s) VALUES(?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET %[1]s = %[1]s + excluded.%[1]s`, col),
		userID, delta)
	return err
}

func (s *SQLiteStore) MaxField(ctx context.Context, userID string, field Field, value int64) error {
	col, ok := columnFor(field)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO user_stats(user_id, %[1]s) VALUES(?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET %[1]s = MAX(%[1]s, excluded.%[1]s)`, col),
		userID, value)
	return err
}

func (s *SQLiteStore) AppendChat(ctx context.Context, msg ChatMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages(user_id, username, hue, text, ts_ms) VALUES(?,?,?,?,?)`,
		msg.UserID, msg.Username, msg.Hue, msg.Text, msg.At.UnixMilli())
	return err
}

func (s *SQLiteStore) RecentChat(ctx context.Context, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, username, hue, text, ts_ms FROM
		 (SELECT * FROM chat_messages ORDER BY id DESC LIMIT ?)
		 ORDER BY id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		var ts int64
		if err := rows.Scan(&m.UserID, &m.Username, &m.Hue, &m.Text, &ts); err != nil {
			return nil, err
		}
		m.At = time.UnixMilli(ts).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// columnFor whitelists fields; the column name is interpolated into SQL.
func columnFor(f Field) (string, bool) {
	switch f {
	case FieldTotalScore, FieldBestScore, FieldGamesPlayed, FieldSpeedBoosters, FieldLuckyOrbs:
		return string(f), true
	default:
		return "", false
	}
}
