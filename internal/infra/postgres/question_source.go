package postgres

import (
	"context"
	"errors"
	"fmt"

	"course-quiz-bot/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionSource loads question-set JSONB from Postgres.
type QuestionSource struct {
	pool *pgxpool.Pool
}

func NewQuestionSource(pool *pgxpool.Pool) *QuestionSource {
	return &QuestionSource{pool: pool}
}

func (s *QuestionSource) LoadQuestionSet(ctx context.Context, meta domain.TestMeta) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM question_sets WHERE test_code=$1`, meta.Code).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load question set: %w", err)
	}
	return raw, nil
}

// SaveQuestionSet stores or replaces the document for a test code.
func (s *QuestionSource) SaveQuestionSet(ctx context.Context, testCode string, raw []byte) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO question_sets (test_code, data, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (test_code) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`, testCode, string(raw))
	if err != nil {
		return fmt.Errorf("save question set: %w", err)
	}
	return nil
}
