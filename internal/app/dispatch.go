package app

import (
	"context"
	"errors"
	"time"

	"course-quiz-bot/internal/domain"
	"github.com/sirupsen/logrus"
)

// clampOpenPeriod keeps the poll open period inside what Telegram accepts.
func clampOpenPeriod(d time.Duration) time.Duration {
	if d < domain.MinOpenPeriod {
		return domain.MinOpenPeriod
	}
	if d > domain.MaxOpenPeriod {
		return domain.MaxOpenPeriod
	}
	return d.Truncate(time.Second)
}

// dispatchLocked sends the question at the session's current index, binds the
// returned poll id and arms its deadline. Caller holds the user lock.
func (e *Engine) dispatchLocked(ctx context.Context, s *Session) error {
	e.rndMu.Lock()
	shown, err := Present(e.rnd, s.current(), s.index, s.Total())
	e.rndMu.Unlock()
	if err != nil {
		return &domain.ContentError{TestCode: s.test.Code, Reason: "cannot render question", Err: err}
	}

	open := clampOpenPeriod(e.cfg.TimePerQuestion)
	sent, err := e.sendQuiz(ctx, s, shown, open)
	if err != nil {
		return err
	}

	e.polls.bind(sent.PollID, pollBinding{userID: s.UserID(), index: s.index, correctIdx: shown.CorrectIdx})
	s.lastPollID = sent.PollID
	s.lastMessageID = sent.MessageID
	s.shown = shown

	s.stopDeadline()
	s.deadline = e.armDeadline(s, sent.PollID, s.index, open+e.cfg.Grace)

	e.log.WithFields(logrus.Fields{
		"user_id": s.UserID(),
		"test":    s.test.Code,
		"index":   s.index,
		"poll_id": sent.PollID,
	}).Debug("question dispatched")
	return nil
}

func (e *Engine) sendQuiz(ctx context.Context, s *Session, shown domain.Presentation, open time.Duration) (domain.SentPoll, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.SendAttempts; attempt++ {
		sent, err := e.transport.SendQuiz(ctx, s.chatID, shown, open)
		if err == nil {
			return sent, nil
		}
		lastErr = err
		e.log.WithError(err).WithFields(logrus.Fields{
			"user_id": s.UserID(),
			"index":   s.index,
			"attempt": attempt,
		}).Warn("failed to send question")

		if attempt == e.cfg.SendAttempts || e.cfg.SendRetryDelay <= 0 {
			continue
		}
		timer := e.clock.NewTimer(e.cfg.SendRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.SentPoll{}, &domain.TransportError{Op: "send poll", Err: ctx.Err()}
		case <-timer.C():
		}
	}

	var transportErr *domain.TransportError
	if errors.As(lastErr, &transportErr) {
		return domain.SentPoll{}, lastErr
	}
	return domain.SentPoll{}, &domain.TransportError{Op: "send poll", Err: lastErr}
}
