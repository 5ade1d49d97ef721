package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"course-quiz-bot/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Telegram struct {
		Token    string  `yaml:"token"`
		AdminIDs []int64 `yaml:"admin_ids"`
		Debug    bool    `yaml:"debug"`
	} `yaml:"telegram"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TimePerQuestion  string `yaml:"time_per_question"`
		Grace            string `yaml:"grace"`
		PassThresholdPct int    `yaml:"pass_threshold_pct"`
		PassReward       int    `yaml:"pass_reward"`
		SendAttempts     int    `yaml:"send_attempts"`
		ContentRoot      string `yaml:"content_root"`
		ContentTTL       string `yaml:"content_ttl"`
	} `yaml:"quiz"`
	Tests []domain.TestMeta `yaml:"tests"`
	Feed  struct {
		Token string `yaml:"token"`
	} `yaml:"feed"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets secrets live outside the YAML file.
func (c *Config) applyEnv() {
	if token := strings.TrimSpace(os.Getenv("BOT_TOKEN")); token != "" {
		c.Telegram.Token = token
	}
	if ids := ParseAdminIDs(os.Getenv("ADMIN_IDS")); len(ids) > 0 {
		c.Telegram.AdminIDs = ids
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Postgres.URL = url
	}
}

// ParseAdminIDs parses a comma separated list, skipping anything that is not a number.
func ParseAdminIDs(raw string) []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
