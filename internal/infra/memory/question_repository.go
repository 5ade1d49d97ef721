package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"course-quiz-bot/internal/app"
	"course-quiz-bot/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ContentSource fetches a raw question-set document (file, database row).
type ContentSource interface {
	LoadQuestionSet(ctx context.Context, meta domain.TestMeta) ([]byte, error)
}

// QuestionRepository caches validated question sets with TTL to avoid re-reading content.
type QuestionRepository struct {
	source ContentSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(source ContentSource, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, meta domain.TestMeta) ([]domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[meta.Code]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(meta.Code, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[meta.Code]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		raw, err := r.source.LoadQuestionSet(ctx, meta)
		if err != nil {
			return nil, &domain.ContentError{TestCode: meta.Code, Reason: "unreadable", Err: err}
		}
		questions, err := app.ParseQuestionSet(meta.Code, raw)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[meta.Code] = cachedSet{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// StaticSource serves documents from an in-memory map keyed by test code (tests/demos).
type StaticSource struct {
	docs map[string][]byte
}

func NewStaticSource(docs map[string][]byte) *StaticSource {
	return &StaticSource{docs: docs}
}

func (s *StaticSource) LoadQuestionSet(_ context.Context, meta domain.TestMeta) ([]byte, error) {
	if doc, ok := s.docs[meta.Code]; ok {
		return doc, nil
	}
	return nil, domain.ErrQuestionSetNotFound
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
