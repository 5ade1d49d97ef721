package redis

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"course-quiz-bot/internal/app"
	"course-quiz-bot/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ContentSource fetches raw question-set documents (file, database row).
type ContentSource interface {
	LoadQuestionSet(ctx context.Context, meta domain.TestMeta) ([]byte, error)
}

// QuestionRepository caches question-set documents in Redis and falls back to a source on cache miss.
// Documents are stored as: SET quiz:questions:{testCode} {json}
// Only documents that pass validation are cached.
type QuestionRepository struct {
	client *redis.Client
	source ContentSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, source ContentSource, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, meta domain.TestMeta) ([]domain.Question, error) {
	key := r.key(meta.Code)

	if questions, ok := r.cached(ctx, meta.Code, key); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(meta.Code, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := r.cached(ctx, meta.Code, key); ok {
			return questions, nil
		}

		raw, err := r.source.LoadQuestionSet(ctx, meta)
		if err != nil {
			return nil, &domain.ContentError{TestCode: meta.Code, Reason: "unreadable", Err: err}
		}
		questions, err := app.ParseQuestionSet(meta.Code, raw)
		if err != nil {
			return nil, err
		}

		_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) cached(ctx context.Context, code, key string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	questions, err := app.ParseQuestionSet(code, raw)
	if err != nil {
		// a bad cached copy is dropped and reloaded from the source
		var contentErr *domain.ContentError
		if errors.As(err, &contentErr) {
			_ = r.client.Del(ctx, key).Err()
		}
		return nil, false
	}
	return questions, true
}

func (r *QuestionRepository) key(code string) string {
	return "quiz:questions:" + code
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
