package app

import (
	"context"
	"time"

	"course-quiz-bot/internal/domain"
	"github.com/sirupsen/logrus"
)

// deadline is the cancellable handle of one deadline watcher.
type deadline struct {
	pollID string
	index  int
	cancel context.CancelFunc
}

// armDeadline starts a watcher for (s, index). The timer is created before the
// goroutine starts so a test clock sees it as soon as dispatch returns.
func (e *Engine) armDeadline(s *Session, pollID string, index int, after time.Duration) *deadline {
	ctx, cancel := context.WithCancel(e.ctx)
	d := &deadline{pollID: pollID, index: index, cancel: cancel}
	timer := e.clock.NewTimer(after)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C():
		}
		e.expire(ctx, s, d)
	}()
	return d
}

// expire finalizes the watched question as a timeout unless it was already
// resolved by an answer or a poll-closed event.
func (e *Engine) expire(ctx context.Context, s *Session, d *deadline) {
	userID := s.UserID()
	lock := e.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	if ctx.Err() != nil {
		return
	}
	current, ok := e.sessions.Get(userID)
	if !ok || current != s || s.index != d.index {
		return
	}
	if !e.polls.markFinalized(d.pollID, userID) {
		return
	}
	s.stopDeadline()

	log := e.log.WithFields(logrus.Fields{"user_id": userID, "index": d.index, "poll_id": d.pollID})
	// Our own ctx is cancelled by stopDeadline; transport calls run under the engine context.
	if err := e.transport.StopPoll(e.ctx, s.chatID, s.lastMessageID); err != nil {
		log.WithError(err).Warn("failed to stop expired poll")
	}
	log.Debug("question timed out")
	e.scoreLocked(e.ctx, s, false, domain.OutcomeTimedOut)
}
