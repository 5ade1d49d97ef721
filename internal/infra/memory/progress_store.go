package memory

import (
	"context"
	"sync"

	"course-quiz-bot/internal/domain"
)

// ProgressStore keeps results and points in memory. Used when Postgres is not configured.
type ProgressStore struct {
	mu      sync.RWMutex
	results map[progressKey]domain.Result
	rewards map[rewardKey]int
}

type progressKey struct {
	userID   int64
	testCode string
}

type rewardKey struct {
	userID int64
	reason string
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		results: make(map[progressKey]domain.Result),
		rewards: make(map[rewardKey]int),
	}
}

func (p *ProgressStore) UpsertResult(_ context.Context, r domain.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[progressKey{userID: r.UserID, testCode: r.TestCode}] = r
	return nil
}

func (p *ProgressStore) GrantReward(_ context.Context, userID int64, reason string, amount int) (bool, error) {
	if amount == 0 {
		return false, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	key := rewardKey{userID: userID, reason: reason}
	if _, ok := p.rewards[key]; ok {
		return false, nil
	}
	p.rewards[key] = amount
	return true, nil
}

func (p *ProgressStore) PassedCodes(_ context.Context, userID int64) (map[string]bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	passed := make(map[string]bool)
	for key, r := range p.results {
		if key.userID == userID && r.Passed {
			passed[key.testCode] = true
		}
	}
	return passed, nil
}

// Result returns the stored result for (userID, testCode).
func (p *ProgressStore) Result(userID int64, testCode string) (domain.Result, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.results[progressKey{userID: userID, testCode: testCode}]
	return r, ok
}

// Points sums every reward granted to userID.
func (p *ProgressStore) Points(userID int64) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	total := 0
	for key, amount := range p.rewards {
		if key.userID == userID {
			total += amount
		}
	}
	return total
}
