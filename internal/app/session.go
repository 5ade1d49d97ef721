package app

import (
	"context"
	"time"

	"course-quiz-bot/internal/domain"
)

// Session is one user's in-progress quiz attempt.
// All fields are guarded by the owning user's lock in the engine.
type Session struct {
	student   domain.Student
	chatID    int64
	test      domain.TestMeta
	attemptID string
	questions []domain.Question
	startedAt time.Time

	index   int
	correct int

	lastPollID    string
	lastMessageID int
	shown         domain.Presentation
	deadline      *deadline
	dialogue      DialogueHandle
}

// NewSession builds a session positioned at the first question.
func NewSession(student domain.Student, chatID int64, test domain.TestMeta, attemptID string, questions []domain.Question, dialogue DialogueHandle, startedAt time.Time) *Session {
	return &Session{
		student:   student,
		chatID:    chatID,
		test:      test,
		attemptID: attemptID,
		questions: questions,
		dialogue:  dialogue,
		startedAt: startedAt,
	}
}

func (s *Session) UserID() int64 { return s.student.ID }
func (s *Session) ChatID() int64 { return s.chatID }
func (s *Session) Test() domain.TestMeta { return s.test }
func (s *Session) AttemptID() string { return s.attemptID }
func (s *Session) Index() int { return s.index }
func (s *Session) Correct() int { return s.correct }
func (s *Session) Total() int { return len(s.questions) }
func (s *Session) LastPollID() string { return s.lastPollID }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) Done() bool { return s.index >= len(s.questions) }

// Advance records the verdict for the current question and moves on.
func (s *Session) Advance(correct bool) {
	if correct {
		s.correct++
	}
	s.index++
}

func (s *Session) current() domain.Question { return s.questions[s.index] }

func (s *Session) stopDeadline() {
	if s.deadline != nil {
		s.deadline.cancel()
		s.deadline = nil
	}
}

func (s *Session) clearDialogue(ctx context.Context) error {
	if s.dialogue == nil {
		return nil
	}
	return s.dialogue.Clear(ctx)
}
