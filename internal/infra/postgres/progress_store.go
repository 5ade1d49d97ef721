package postgres

import (
	"context"
	"fmt"

	"course-quiz-bot/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProgressStore persists test results and points in Postgres.
// Uniqueness on (user_id, test_code) and (user_id, source) makes both writes idempotent.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (p *ProgressStore) UpsertResult(ctx context.Context, r domain.Result) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO test_results (user_id, test_code, correct_count, total_count, passed, attempt_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id, test_code) DO UPDATE SET
			correct_count = EXCLUDED.correct_count,
			total_count   = EXCLUDED.total_count,
			passed        = EXCLUDED.passed,
			attempt_id    = EXCLUDED.attempt_id,
			updated_at    = EXCLUDED.updated_at`,
		r.UserID, r.TestCode, r.Correct, r.Total, r.Passed, r.AttemptID, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

func (p *ProgressStore) GrantReward(ctx context.Context, userID int64, reason string, amount int) (bool, error) {
	if reason == "" {
		return false, fmt.Errorf("grant reward: empty reason")
	}
	if amount == 0 {
		return false, nil
	}
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO points (user_id, source, amount) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, source) DO NOTHING`, userID, reason, amount)
	if err != nil {
		return false, fmt.Errorf("grant reward: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *ProgressStore) PassedCodes(ctx context.Context, userID int64) (map[string]bool, error) {
	rows, err := p.pool.Query(ctx, `SELECT test_code FROM test_results WHERE user_id=$1 AND passed`, userID)
	if err != nil {
		return nil, fmt.Errorf("passed codes: %w", err)
	}
	defer rows.Close()

	passed := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan passed code: %w", err)
		}
		passed[code] = true
	}
	return passed, rows.Err()
}

// TotalPoints sums the points of userID.
func (p *ProgressStore) TotalPoints(ctx context.Context, userID int64) (int, error) {
	var total int
	err := p.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM points WHERE user_id=$1`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total points: %w", err)
	}
	return total, nil
}
