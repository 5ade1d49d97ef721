package app

import (
	"context"

	"course-quiz-bot/internal/domain"
	"github.com/sirupsen/logrus"
)

// HandleAnswer processes a poll answer. It reports whether the answer decided
// the question; late or duplicate answers are ignored.
func (e *Engine) HandleAnswer(ctx context.Context, pollID string, optionIDs []int) bool {
	return e.arbitrate(ctx, pollID, domain.OutcomeAnswered, func(b pollBinding) bool {
		return len(optionIDs) > 0 && optionIDs[0] == b.correctIdx
	})
}

// HandlePollClosed processes a poll that the transport reports as closed.
// An unanswered closed poll counts as incorrect.
func (e *Engine) HandlePollClosed(ctx context.Context, pollID string) bool {
	return e.arbitrate(ctx, pollID, domain.OutcomeClosed, func(pollBinding) bool {
		return false
	})
}

func (e *Engine) arbitrate(ctx context.Context, pollID string, outcome domain.Outcome, verdict func(pollBinding) bool) bool {
	err := e.finalize(ctx, pollID, outcome, verdict)
	if err != nil {
		e.log.WithFields(logrus.Fields{"poll_id": pollID, "outcome": outcome}).WithError(err).Debug("ignored quiz event")
		return false
	}
	return true
}

func (e *Engine) finalize(ctx context.Context, pollID string, outcome domain.Outcome, verdict func(pollBinding) bool) error {
	b, ok := e.polls.take(pollID)
	if !ok {
		return domain.ErrStaleEvent
	}

	lock := e.locks.get(b.userID)
	lock.Lock()
	defer lock.Unlock()

	s, ok := e.sessions.Get(b.userID)
	if !ok || s.index != b.index || s.lastPollID != pollID {
		return domain.ErrStaleEvent
	}
	if !e.polls.markFinalized(pollID, b.userID) {
		return domain.ErrStaleEvent
	}
	s.stopDeadline()
	e.scoreLocked(ctx, s, verdict(b), outcome)
	return nil
}
