package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
telegram:
  token: from-file
  admin_ids: [1]
quiz:
  time_per_question: 45s
  pass_threshold_pct: 80
tests:
  - code: theory_1
    title: Theory 1
    file: tests/theory_1.json
  - code: theory_2
    title: Theory 2
    file: tests/theory_2.json
    depends_on: theory_1
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("ADMIN_IDS", `"10", 20, x, 10`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("expected env token, got %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AdminIDs) != 2 || cfg.Telegram.AdminIDs[0] != 10 || cfg.Telegram.AdminIDs[1] != 20 {
		t.Fatalf("unexpected admin ids %v", cfg.Telegram.AdminIDs)
	}
	if len(cfg.Tests) != 2 || cfg.Tests[1].DependsOn != "theory_1" {
		t.Fatalf("unexpected tests %+v", cfg.Tests)
	}
	if d := TTLDuration(cfg.Quiz.TimePerQuestion, time.Second); d != 45*time.Second {
		t.Fatalf("expected 45s, got %v", d)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if d := TTLDuration("", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback, got %v", d)
	}
	if d := TTLDuration("garbage", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback on parse error, got %v", d)
	}
}
