package app

import (
	"context"
	"fmt"
	"strings"

	"course-quiz-bot/internal/domain"
	"github.com/sirupsen/logrus"
)

// IsPassed applies the pass threshold: correct*100 >= total*thresholdPct.
func IsPassed(correct, total, thresholdPct int) bool {
	return total > 0 && correct*100 >= total*thresholdPct
}

// RewardReason is unique per test attempt so retried grants stay idempotent.
func RewardReason(testCode, attemptID string) string {
	return "test:" + testCode + ":" + attemptID
}

// scoreLocked applies a finalized verdict: feedback, counters, then the next
// question or completion. Caller holds the user lock.
func (e *Engine) scoreLocked(ctx context.Context, s *Session, correct bool, outcome domain.Outcome) {
	e.sendText(ctx, s, feedbackText(s.shown, correct, outcome))

	e.log.WithFields(logrus.Fields{
		"user_id": s.UserID(),
		"test":    s.test.Code,
		"index":   s.index,
		"outcome": outcome,
		"correct": correct,
	}).Info("question finalized")

	if _, err := e.sessions.Advance(s.UserID(), correct); err != nil {
		e.log.WithError(err).WithField("user_id", s.UserID()).Error("failed to advance session")
		return
	}
	if !s.Done() {
		if err := e.dispatchLocked(ctx, s); err != nil {
			e.abortLocked(ctx, s, err)
		}
		return
	}
	e.completeLocked(ctx, s)
}

func feedbackText(shown domain.Presentation, correct bool, outcome domain.Outcome) string {
	if correct {
		return "✅ Correct"
	}
	var b strings.Builder
	if outcome == domain.OutcomeTimedOut || outcome == domain.OutcomeClosed {
		b.WriteString("⏰ Time is up")
	} else {
		b.WriteString("❌ Incorrect")
	}
	if text := shown.CorrectText(); text != "" {
		b.WriteString("\nCorrect answer: " + text)
	}
	if shown.Explanation != "" {
		b.WriteString("\nWhy: " + shown.Explanation)
	}
	return b.String()
}

// completeLocked records the result of a finished session and removes it.
func (e *Engine) completeLocked(ctx context.Context, s *Session) {
	userID := s.UserID()
	e.sessions.End(userID)
	e.teardownLocked(s)

	result := domain.Result{
		UserID:    userID,
		TestCode:  s.test.Code,
		Correct:   s.correct,
		Total:     s.Total(),
		Passed:    IsPassed(s.correct, s.Total(), e.cfg.PassThresholdPct),
		AttemptID: s.attemptID,
		UpdatedAt: e.clock.Now(),
	}
	log := e.log.WithFields(logrus.Fields{
		"user_id": userID,
		"test":    result.TestCode,
		"correct": result.Correct,
		"total":   result.Total,
		"passed":  result.Passed,
	})

	if result.Passed {
		e.sendText(ctx, s, fmt.Sprintf("✅ Test passed!\nResult: %d of %d correct (threshold %d%%).",
			result.Correct, result.Total, e.cfg.PassThresholdPct))
	} else {
		e.sendText(ctx, s, fmt.Sprintf("❌ Test not passed.\nResult: %d of %d correct (below %d%%). Try again tomorrow.",
			result.Correct, result.Total, e.cfg.PassThresholdPct))
	}

	if err := e.progress.UpsertResult(ctx, result); err != nil {
		e.reportPersistence(ctx, s, &domain.PersistenceError{Op: "upsert result", Err: err})
	}
	if result.Passed && e.cfg.PassReward > 0 {
		granted, err := e.progress.GrantReward(ctx, userID, RewardReason(result.TestCode, result.AttemptID), e.cfg.PassReward)
		if err != nil {
			e.reportPersistence(ctx, s, &domain.PersistenceError{Op: "grant reward", Err: err})
		} else if granted {
			log.WithField("points", e.cfg.PassReward).Info("reward granted")
		}
	}

	verdict := "NOT PASSED"
	if result.Passed {
		verdict = "PASSED"
	}
	e.notifier.Notify(ctx, domain.Notice{
		Kind:   domain.NoticeResult,
		UserID: userID,
		Text: fmt.Sprintf("🧪 Test result\nTest: %s\nStudent: %s %s\nTelegram ID: %d\nScore: %d/%d (%d%%) %s",
			s.test.Title, s.student.FullName, s.student.Mention(), userID,
			result.Correct, result.Total, result.Percent(), verdict),
		At: result.UpdatedAt,
	})

	if err := s.clearDialogue(ctx); err != nil {
		log.WithError(err).Warn("failed to clear dialogue state")
	}
	log.Info("quiz completed")
}

// abortLocked ends a session whose next question could not be delivered.
func (e *Engine) abortLocked(ctx context.Context, s *Session, cause error) {
	userID := s.UserID()
	e.sessions.End(userID)
	e.teardownLocked(s)
	if err := s.clearDialogue(ctx); err != nil {
		e.log.WithError(err).WithField("user_id", userID).Warn("failed to clear dialogue state")
	}
	e.log.WithError(cause).WithFields(logrus.Fields{"user_id": userID, "index": s.index}).Error("quiz aborted")

	e.sendText(ctx, s, "Could not deliver the next question, the test was stopped. Please start it again.")
	e.notifier.Notify(ctx, domain.Notice{
		Kind:   domain.NoticeFailure,
		UserID: userID,
		Text:   fmt.Sprintf("⚠️ Test %s aborted for %d: %v", s.test.Code, userID, cause),
		At:     e.clock.Now(),
	})
}

func (e *Engine) reportPersistence(ctx context.Context, s *Session, err error) {
	e.log.WithError(err).WithFields(logrus.Fields{"user_id": s.UserID(), "test": s.test.Code}).Error("failed to persist quiz outcome")
	e.notifier.Notify(ctx, domain.Notice{
		Kind:   domain.NoticeFailure,
		UserID: s.UserID(),
		Text:   fmt.Sprintf("⚠️ Could not save test %s for %d: %v", s.test.Code, s.UserID(), err),
		At:     e.clock.Now(),
	})
}
