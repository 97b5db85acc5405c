package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickMs int `yaml:"tick_ms"`

	WorldW float64 `yaml:"world_w"`
	WorldH float64 `yaml:"world_h"`

	PlayerSpeed      float64 `yaml:"player_speed"`
	PlayerRadius     float64 `yaml:"player_radius"`
	PlayerSpawnInset float64 `yaml:"player_spawn_inset"`

	OrbCount      int     `yaml:"orb_count"`
	OrbValue      int64   `yaml:"orb_value"`
	OrbRadius     float64 `yaml:"orb_radius"`
	OrbSpawnInset float64 `yaml:"orb_spawn_inset"`

	Booster BoosterTuning `yaml:"booster"`
	Lucky   LuckyTuning   `yaml:"lucky"`

	ChatMaxLen      int `yaml:"chat_max_len"`
	ChatRecentLimit int `yaml:"chat_recent_limit"`

	SessionQueue int `yaml:"session_queue"` // per-session outbound frame buffer
	PersistQueue int `yaml:"persist_queue"` // pending durable-store ops
}

type BoosterTuning struct {
	Multiplier float64 `yaml:"multiplier"`
	DurationMs int     `yaml:"duration_ms"`
	CooldownMs int     `yaml:"cooldown_ms"`
	Radius     float64 `yaml:"radius"`
	SpawnInset float64 `yaml:"spawn_inset"`
}

type LuckyTuning struct {
	Value      int64   `yaml:"value"`
	CooldownMs int     `yaml:"cooldown_ms"`
	Radius     float64 `yaml:"radius"`
	SpawnInset float64 `yaml:"spawn_inset"`
}

// Defaults mirrors the values the game shipped with.
func Defaults() Tuning {
	return Tuning{
		TickMs: 33,

		WorldW: 2400,
		WorldH: 1400,

		PlayerSpeed:      5,
		PlayerRadius:     14,
		PlayerSpawnInset: 100,

		OrbCount:      80,
		OrbValue:      5,
		OrbRadius:     10,
		OrbSpawnInset: 50,

		Booster: BoosterTuning{
			Multiplier: 2.0,
			DurationMs: 5000,
			CooldownMs: 15000,
			Radius:     12,
			SpawnInset: 50,
		},
		Lucky: LuckyTuning{
			Value:      25,
			CooldownMs: 20000,
			Radius:     12,
			SpawnInset: 50,
		},

		ChatMaxLen:      500,
		ChatRecentLimit: 50,

		SessionQueue: 32,
		PersistQueue: 4096,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
