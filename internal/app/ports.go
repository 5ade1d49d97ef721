package app

import (
	"context"
	"time"

	"course-quiz-bot/internal/domain"
)

// SessionRegistry abstracts where running quiz sessions live (in-memory, Redis-aware).
// Callers hold the user's lock around every call.
type SessionRegistry interface {
	// Start installs s and returns the session it replaced, if any.
	Start(s *Session) *Session
	Get(userID int64) (*Session, bool)
	// Advance moves the session to the next question and records the verdict.
	Advance(userID int64, correct bool) (*Session, error)
	// End removes and returns the session.
	End(userID int64) (*Session, bool)
}

// QuestionRepository loads validated question sets, typically through a cache.
type QuestionRepository interface {
	GetQuestions(ctx context.Context, meta domain.TestMeta) ([]domain.Question, error)
}

// Transport is the chat side of the engine.
type Transport interface {
	SendQuiz(ctx context.Context, chatID int64, p domain.Presentation, openPeriod time.Duration) (domain.SentPoll, error)
	StopPoll(ctx context.Context, chatID int64, messageID int) error
	SendText(ctx context.Context, chatID int64, text string) error
}

// ProgressStore persists attempt results and point rewards.
type ProgressStore interface {
	UpsertResult(ctx context.Context, r domain.Result) error
	// GrantReward must be idempotent per (userID, reason); it reports whether points were added.
	GrantReward(ctx context.Context, userID int64, reason string, amount int) (bool, error)
	PassedCodes(ctx context.Context, userID int64) (map[string]bool, error)
}

// Notifier delivers fire-and-forget operator notices.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notice)
}

// Notifiers fans a notice out to every notifier in the list.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, n domain.Notice) {
	for _, notifier := range ns {
		notifier.Notify(ctx, n)
	}
}

// DialogueHandle marks a user as "inside a quiz" for the surrounding chat routing.
type DialogueHandle interface {
	Set(ctx context.Context) error
	Clear(ctx context.Context) error
}

// Clock is swapped in tests to fire deadlines deterministically.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of *time.Timer the deadline watcher needs.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) Timer { return realTimer{time.NewTimer(d)} }

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }

func (r realTimer) Stop() bool { return r.t.Stop() }
