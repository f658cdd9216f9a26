package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	EnginePaths []string

	Threads        int
	HashMB         int
	SkillLevel     int
	MultiPV        int
	MoveTimeMillis int

	ReadyTimeout  time.Duration
	ResultTimeout time.Duration
	PollInterval  time.Duration

	HTTPAddr    string
	RedisURL    string
	DatabaseURL string
	CacheTTLSec int
}

func defaults() *AppConfig {
	return &AppConfig{
		EnginePaths: []string{
			"/usr/local/bin/stockfish",
			"/app/stockfish",
			"stockfish",
			"/opt/homebrew/bin/stockfish",
		},
		Threads:        runtime.NumCPU(),
		HashMB:         512,
		SkillLevel:     20,
		MultiPV:        1,
		MoveTimeMillis: 1000,
		ReadyTimeout:   5 * time.Second,
		ResultTimeout:  7 * time.Second,
		PollInterval:   10 * time.Millisecond,
		HTTPAddr:       ":8080",
		CacheTTLSec:    3600,
	}
}

// Load builds the config from defaults, the optional YAML file named by
// BESTMOVE_CONFIG, and finally the environment.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("BESTMOVE_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := applyYAML(cfg, raw); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("ENGINE_PATHS")); v != "" {
		cfg.EnginePaths = splitList(v)
	}
	// an explicit binary is tried before anything else
	if v := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); v != "" {
		cfg.EnginePaths = append([]string{v}, cfg.EnginePaths...)
	}

	setInt(&cfg.Threads, "ENGINE_THREADS")
	setInt(&cfg.HashMB, "ENGINE_HASH_MB")
	setInt(&cfg.SkillLevel, "ENGINE_SKILL_LEVEL")
	setInt(&cfg.MultiPV, "ENGINE_MULTIPV")
	setInt(&cfg.MoveTimeMillis, "ENGINE_MOVETIME_MS")
	setDuration(&cfg.ReadyTimeout, "ENGINE_READY_TIMEOUT")
	setDuration(&cfg.ResultTimeout, "ENGINE_RESULT_TIMEOUT")
	setDuration(&cfg.PollInterval, "ENGINE_POLL_INTERVAL")

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	setInt(&cfg.CacheTTLSec, "CACHE_TTL_SEC")

	if len(cfg.EnginePaths) == 0 {
		return nil, errors.New("at least one engine path is required")
	}
	if cfg.SkillLevel < 0 || cfg.SkillLevel > 20 {
		return nil, fmt.Errorf("skill level %d out of range 0-20", cfg.SkillLevel)
	}
	return cfg, nil
}

func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

type yamlDurations struct {
	ReadyTimeout  string `yaml:"ready_timeout"`
	ResultTimeout string `yaml:"result_timeout"`
	PollInterval  string `yaml:"poll_interval"`
}

func applyYAML(cfg *AppConfig, raw []byte) error {
	// durations are written as "5s" and need their own pass
	var durs yamlDurations
	if err := yaml.Unmarshal(raw, &durs); err != nil {
		return err
	}
	var overlay struct {
		EnginePaths    []string `yaml:"engine_paths"`
		Threads        *int     `yaml:"threads"`
		HashMB         *int     `yaml:"hash_mb"`
		SkillLevel     *int     `yaml:"skill_level"`
		MultiPV        *int     `yaml:"multipv"`
		MoveTimeMillis *int     `yaml:"movetime_ms"`
		HTTPAddr       string   `yaml:"http_addr"`
		RedisURL       string   `yaml:"redis_url"`
		DatabaseURL    string   `yaml:"database_url"`
		CacheTTLSec    *int     `yaml:"cache_ttl_sec"`
	}
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return err
	}

	if len(overlay.EnginePaths) > 0 {
		cfg.EnginePaths = overlay.EnginePaths
	}
	for dst, src := range map[*int]*int{
		&cfg.Threads:        overlay.Threads,
		&cfg.HashMB:         overlay.HashMB,
		&cfg.SkillLevel:     overlay.SkillLevel,
		&cfg.MultiPV:        overlay.MultiPV,
		&cfg.MoveTimeMillis: overlay.MoveTimeMillis,
		&cfg.CacheTTLSec:    overlay.CacheTTLSec,
	} {
		if src != nil {
			*dst = *src
		}
	}
	if overlay.HTTPAddr != "" {
		cfg.HTTPAddr = overlay.HTTPAddr
	}
	if overlay.RedisURL != "" {
		cfg.RedisURL = overlay.RedisURL
	}
	if overlay.DatabaseURL != "" {
		cfg.DatabaseURL = overlay.DatabaseURL
	}

	for dst, src := range map[*time.Duration]string{
		&cfg.ReadyTimeout:  durs.ReadyTimeout,
		&cfg.ResultTimeout: durs.ResultTimeout,
		&cfg.PollInterval:  durs.PollInterval,
	} {
		if strings.TrimSpace(src) == "" {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(src))
		if err != nil {
			return fmt.Errorf("duration %q: %w", src, err)
		}
		*dst = d
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}
