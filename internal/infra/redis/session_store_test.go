package redis

import (
	"context"
	"testing"
	"time"

	"course-quiz-bot/internal/app"
	"course-quiz-bot/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreMirrorsProgress(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	questions := []domain.Question{
		{Prompt: "a", Options: []string{"x", "y"}},
		{Prompt: "b", Options: []string{"x", "y"}},
	}
	session := app.NewSession(domain.Student{ID: 42}, 42, domain.TestMeta{Code: "theory_1"}, "attempt-1", questions, nil, time.Now())
	_ = store.Start(session)
	if !mr.Exists("quiz:session:42") {
		t.Fatalf("expected redis key to be set")
	}

	if _, err := store.Advance(42, true); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got := mr.HGet("quiz:session:42", "correct"); got != "1" {
		t.Fatalf("expected mirrored correct=1, got %q", got)
	}
	if got := mr.HGet("quiz:session:42", "index"); got != "1" {
		t.Fatalf("expected mirrored index=1, got %q", got)
	}

	store.End(42)
	if mr.Exists("quiz:session:42") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestDialogueStoreMarker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewDialogueStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	handle := store.Handle(7)

	if err := handle.Set(ctx); err != nil {
		t.Fatalf("set: %v", err)
	}
	if running, _ := store.Running(ctx, 7); !running {
		t.Fatalf("expected marker present")
	}
	if err := handle.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if running, _ := store.Running(ctx, 7); running {
		t.Fatalf("expected marker cleared")
	}
}
