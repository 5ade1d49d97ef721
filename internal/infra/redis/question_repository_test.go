package redis

import (
	"context"
	"testing"
	"time"

	"course-quiz-bot/internal/domain"
	"course-quiz-bot/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	source := &countingSource{
		ContentSource: memory.NewStaticSource(map[string][]byte{
			"theory_1": sampleDoc(),
		}),
	}
	repo := NewQuestionRepository(client, source, time.Minute)

	questions, err := repo.GetQuestions(context.Background(), sampleMeta())
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(questions) != 1 || questions[0].CorrectIdx != 1 {
		t.Fatalf("unexpected questions %+v", questions)
	}
	if source.calls != 1 {
		t.Fatalf("expected source called once, got %d", source.calls)
	}
	if !mr.Exists("quiz:questions:theory_1") {
		t.Fatalf("expected document cached in redis")
	}

	// Second call should hit cache, source not incremented.
	_, _ = repo.GetQuestions(context.Background(), sampleMeta())
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls=%d", source.calls)
	}
}

func TestQuestionRepositoryDoesNotCacheInvalidSets(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuestionRepository(newClient(mr), memory.NewStaticSource(map[string][]byte{
		"theory_1": []byte(`{"questions": []}`),
	}), time.Minute)

	if _, err := repo.GetQuestions(context.Background(), sampleMeta()); err == nil {
		t.Fatalf("expected content error")
	}
	if mr.Exists("quiz:questions:theory_1") {
		t.Fatalf("invalid document must not be cached")
	}
}

type countingSource struct {
	ContentSource
	calls int
}

func (s *countingSource) LoadQuestionSet(ctx context.Context, meta domain.TestMeta) ([]byte, error) {
	s.calls++
	return s.ContentSource.LoadQuestionSet(ctx, meta)
}

func sampleMeta() domain.TestMeta {
	return domain.TestMeta{Code: "theory_1", Title: "Theory 1"}
}

func sampleDoc() []byte {
	return []byte(`[{"prompt": "What is 2 + 2?", "options": ["3", "4"], "correct_idx": 1}]`)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
