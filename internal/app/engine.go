package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"course-quiz-bot/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config tunes the quiz engine.
type Config struct {
	TimePerQuestion  time.Duration
	Grace            time.Duration
	PassThresholdPct int
	PassReward       int
	SendAttempts     int
	SendRetryDelay   time.Duration
}

// DefaultConfig mirrors the course defaults: 30s per question, 80% to pass, 50 points.
func DefaultConfig() Config {
	return Config{
		TimePerQuestion:  30 * time.Second,
		Grace:            500 * time.Millisecond,
		PassThresholdPct: 80,
		PassReward:       50,
		SendAttempts:     2,
		SendRetryDelay:   time.Second,
	}
}

// Deps are the collaborators the engine talks to.
type Deps struct {
	Sessions  SessionRegistry
	Questions QuestionRepository
	Tests     *TestRegistry
	Transport Transport
	Progress  ProgressStore
	Notifier  Notifier
	Clock     Clock
	Rand      *rand.Rand
	Logger    logrus.FieldLogger
	AttemptID func() string
}

// Engine runs time-boxed quiz sessions over the chat transport. Answer events,
// poll-closed events and deadline expiries all pass through the same per-user
// critical section so each question is scored at most once.
type Engine struct {
	cfg       Config
	sessions  SessionRegistry
	questions QuestionRepository
	tests     *TestRegistry
	transport Transport
	progress  ProgressStore
	notifier  Notifier
	clock     Clock
	log       logrus.FieldLogger
	attemptID func() string

	rndMu sync.Mutex
	rnd   *rand.Rand

	locks *userLocks
	polls *pollIndex

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

func NewEngine(cfg Config, deps Deps) *Engine {
	if cfg.SendAttempts < 1 {
		cfg.SendAttempts = 1
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.AttemptID == nil {
		deps.AttemptID = func() string { return uuid.NewString() }
	}
	if deps.Notifier == nil {
		deps.Notifier = Notifiers(nil)
	}
	if deps.Tests == nil {
		deps.Tests = NewTestRegistry(nil)
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Engine{
		cfg:       cfg,
		sessions:  deps.Sessions,
		questions: deps.Questions,
		tests:     deps.Tests,
		transport: deps.Transport,
		progress:  deps.Progress,
		notifier:  deps.Notifier,
		clock:     deps.Clock,
		log:       deps.Logger.WithField("component", "quiz_engine"),
		attemptID: deps.AttemptID,
		rnd:       deps.Rand,
		locks:     newUserLocks(),
		polls:     newPollIndex(),
		ctx:       ctx,
		stop:      stop,
	}
}

// Tests exposes the registry for menus.
func (e *Engine) Tests() *TestRegistry { return e.tests }

// StartRequest asks the engine to begin a test for a student.
type StartRequest struct {
	Student  domain.Student
	ChatID   int64
	TestCode string
	Dialogue DialogueHandle
}

// StartQuiz loads and validates the question set, replaces any running session
// of the student and sends the first question.
func (e *Engine) StartQuiz(ctx context.Context, req StartRequest) error {
	meta, ok := e.tests.Get(req.TestCode)
	if !ok {
		return domain.ErrTestNotFound
	}
	if meta.DependsOn != "" {
		passed, err := e.progress.PassedCodes(ctx, req.Student.ID)
		if err != nil {
			return &domain.PersistenceError{Op: "passed codes", Err: err}
		}
		if !Unlocked(meta, passed) {
			return domain.ErrTestLocked
		}
	}

	questions, err := e.questions.GetQuestions(ctx, meta)
	if err != nil {
		var contentErr *domain.ContentError
		if !errors.As(err, &contentErr) {
			err = &domain.ContentError{TestCode: meta.Code, Reason: "unreadable", Err: err}
		}
		return err
	}

	userID := req.Student.ID
	sess := NewSession(req.Student, req.ChatID, meta, e.attemptID(), questions, req.Dialogue, e.clock.Now())
	log := e.log.WithFields(logrus.Fields{"user_id": userID, "test": meta.Code, "attempt": sess.attemptID})

	lock := e.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	if prev := e.sessions.Start(sess); prev != nil {
		e.teardownLocked(prev)
		log.WithField("replaced_attempt", prev.attemptID).Info("replaced running quiz session")
	}
	if req.Dialogue != nil {
		if err := req.Dialogue.Set(ctx); err != nil {
			log.WithError(err).Warn("failed to mark dialogue state")
		}
	}

	e.sendText(ctx, sess, fmt.Sprintf("🧠 Starting test: %s\n%d questions, %d seconds each.",
		meta.Title, len(questions), int(clampOpenPeriod(e.cfg.TimePerQuestion)/time.Second)))

	if err := e.dispatchLocked(ctx, sess); err != nil {
		e.sessions.End(userID)
		e.teardownLocked(sess)
		if err := sess.clearDialogue(ctx); err != nil {
			log.WithError(err).Warn("failed to clear dialogue state")
		}
		log.WithError(err).Error("failed to send first question")
		return err
	}
	log.WithField("questions", len(questions)).Info("quiz started")
	return nil
}

// Active reports whether userID has a running quiz.
func (e *Engine) Active(userID int64) bool {
	lock := e.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()
	_, ok := e.sessions.Get(userID)
	return ok
}

// Cancel stops the running quiz of userID without recording a result.
// It reports false when there was nothing to cancel.
func (e *Engine) Cancel(ctx context.Context, userID int64) bool {
	lock := e.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := e.sessions.End(userID)
	if !ok {
		return false
	}
	e.teardownLocked(sess)
	if sess.lastMessageID != 0 {
		if err := e.transport.StopPoll(ctx, sess.chatID, sess.lastMessageID); err != nil {
			e.log.WithError(err).WithField("user_id", userID).Warn("failed to stop poll on cancel")
		}
	}
	if err := sess.clearDialogue(ctx); err != nil {
		e.log.WithError(err).WithField("user_id", userID).Warn("failed to clear dialogue state")
	}

	e.sendText(ctx, sess, "Test cancelled. It is not counted as passed.")
	e.notifier.Notify(ctx, domain.Notice{
		Kind:   domain.NoticeCancelled,
		UserID: userID,
		Text: fmt.Sprintf("🧪 Test cancelled\nTest: %s\nStudent: %s %s\nTelegram ID: %d",
			sess.test.Title, sess.student.FullName, sess.student.Mention(), userID),
		At: e.clock.Now(),
	})
	e.log.WithFields(logrus.Fields{"user_id": userID, "test": sess.test.Code, "index": sess.index}).Info("quiz cancelled")
	return true
}

// Close stops every pending deadline watcher and waits for them to exit.
func (e *Engine) Close() {
	e.stop()
	e.wg.Wait()
}

// teardownLocked releases the timer and poll bookkeeping of a session that is leaving the registry.
func (e *Engine) teardownLocked(s *Session) {
	s.stopDeadline()
	e.polls.purge(s.UserID())
}

// sendText delivers a message to the session chat; an unreachable user does not affect scoring.
func (e *Engine) sendText(ctx context.Context, s *Session, text string) {
	if err := e.transport.SendText(ctx, s.chatID, text); err != nil {
		e.log.WithError(err).WithField("user_id", s.UserID()).Warn("failed to deliver message")
	}
}
