package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"course-quiz-bot/internal/app"
	"course-quiz-bot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	callbackStartPrefix  = "tests:start:"
	callbackLockedPrefix = "tests:locked:"
	callbackBack         = "tests:back"
	menuButtonText       = "🧠 Tests"
)

// QuizEngine is what the router needs from the quiz engine.
type QuizEngine interface {
	StartQuiz(ctx context.Context, req app.StartRequest) error
	HandleAnswer(ctx context.Context, pollID string, optionIDs []int) bool
	HandlePollClosed(ctx context.Context, pollID string) bool
	Cancel(ctx context.Context, userID int64) bool
	Tests() *app.TestRegistry
}

// Dialogues hands out and inspects the per-user "quiz running" state.
type Dialogues interface {
	Handle(userID int64) app.DialogueHandle
	Running(ctx context.Context, userID int64) (bool, error)
}

// PassedCodes is the read side of the progress store.
type PassedCodes interface {
	PassedCodes(ctx context.Context, userID int64) (map[string]bool, error)
}

// UpdateSource yields bot updates; *tgbotapi.BotAPI satisfies it.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Router turns Telegram updates into engine calls and menu replies.
type Router struct {
	api       BotAPI
	engine    QuizEngine
	dialogues Dialogues
	progress  PassedCodes
	log       logrus.FieldLogger
}

func NewRouter(api BotAPI, engine QuizEngine, dialogues Dialogues, progress PassedCodes, log logrus.FieldLogger) *Router {
	return &Router{
		api:       api,
		engine:    engine,
		dialogues: dialogues,
		progress:  progress,
		log:       log.WithField("component", "telegram_router"),
	}
}

// Run long-polls updates until ctx is done. Each update is handled on its own
// goroutine; Run waits for in-flight handlers before returning.
func (r *Router) Run(ctx context.Context, src UpdateSource) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	cfg.AllowedUpdates = []string{"message", "callback_query", "poll", "poll_answer"}
	updates := src.GetUpdatesChan(cfg)

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			src.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer wg.Done()
				r.HandleUpdate(ctx, upd)
			}(upd)
		}
	}
}

// HandleUpdate routes a single update.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.PollAnswer != nil:
		if !r.engine.HandleAnswer(ctx, upd.PollAnswer.PollID, upd.PollAnswer.OptionIDs) {
			r.log.WithField("poll_id", upd.PollAnswer.PollID).Debug("poll answer ignored")
		}
	case upd.Poll != nil:
		if upd.Poll.IsClosed {
			r.engine.HandlePollClosed(ctx, upd.Poll.ID)
		}
	case upd.CallbackQuery != nil:
		r.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		r.handleMessage(ctx, upd.Message)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	student := studentOf(msg.From)
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			if code := strings.TrimSpace(msg.CommandArguments()); code != "" {
				r.start(ctx, student, chatID, code)
				return
			}
			r.reply(chatID, "Hi! Open "+menuButtonText+" to pick a test.", menuKeyboard())
		case "tests":
			r.sendMenu(ctx, student.ID, chatID)
		case "cancel_quiz":
			if !r.engine.Cancel(ctx, student.ID) {
				r.reply(chatID, "No test is running.", nil)
			}
		}
		return
	}

	if strings.TrimSpace(msg.Text) == menuButtonText {
		r.sendMenu(ctx, student.ID, chatID)
		return
	}

	running, err := r.dialogues.Running(ctx, student.ID)
	if err != nil {
		r.log.WithError(err).WithField("user_id", student.ID).Warn("failed to read dialogue state")
		return
	}
	if running {
		r.reply(chatID, "A test is in progress. Answer the poll above or press ⛔ Cancel test.", nil)
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	student := studentOf(cb.From)
	chatID := student.ID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}

	switch data := cb.Data; {
	case data == CallbackCancelQuiz:
		if r.engine.Cancel(ctx, student.ID) {
			r.answerCallback(cb.ID, "Cancelled")
		} else {
			r.answerCallback(cb.ID, "No test is running")
		}
	case strings.HasPrefix(data, callbackStartPrefix):
		r.answerCallback(cb.ID, "")
		r.start(ctx, student, chatID, strings.TrimPrefix(data, callbackStartPrefix))
	case strings.HasPrefix(data, callbackLockedPrefix):
		r.answerCallback(cb.ID, "Pass the previous test first")
	case data == callbackBack:
		r.answerCallback(cb.ID, "")
		r.reply(chatID, "Main menu.", menuKeyboard())
	default:
		r.answerCallback(cb.ID, "")
	}
}

func (r *Router) start(ctx context.Context, student domain.Student, chatID int64, code string) {
	err := r.engine.StartQuiz(ctx, app.StartRequest{
		Student:  student,
		ChatID:   chatID,
		TestCode: code,
		Dialogue: r.dialogues.Handle(student.ID),
	})
	if err == nil {
		return
	}

	log := r.log.WithError(err).WithFields(logrus.Fields{"user_id": student.ID, "test": code})
	var (
		contentErr   *domain.ContentError
		transportErr *domain.TransportError
	)
	switch {
	case errors.Is(err, domain.ErrTestNotFound):
		r.reply(chatID, "Test not found.", nil)
	case errors.Is(err, domain.ErrTestLocked):
		r.reply(chatID, "🔒 Pass the previous test first to unlock this one.", nil)
	case errors.As(err, &contentErr):
		log.Error("test content is broken")
		r.reply(chatID, "This test is unavailable right now, please try another test.", nil)
	case errors.As(err, &transportErr):
		log.Warn("could not start quiz")
	default:
		log.Error("failed to start quiz")
		r.reply(chatID, "Something went wrong, please try again later.", nil)
	}
}

func (r *Router) sendMenu(ctx context.Context, userID, chatID int64) {
	passed, err := r.progress.PassedCodes(ctx, userID)
	if err != nil {
		r.log.WithError(err).WithField("user_id", userID).Warn("failed to load passed tests")
		passed = map[string]bool{}
	}
	tests := r.engine.Tests().All()
	if len(tests) == 0 {
		r.reply(chatID, "No tests are available yet.", nil)
		return
	}
	r.reply(chatID, "Pick a test:", testsKeyboard(tests, passed))
}

// testsKeyboard lists one button per test: passed, available or locked.
func testsKeyboard(tests []domain.TestMeta, passed map[string]bool) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tests)+1)
	for _, t := range tests {
		var btn tgbotapi.InlineKeyboardButton
		switch {
		case passed[t.Code]:
			btn = tgbotapi.NewInlineKeyboardButtonData("✅ "+t.Title, callbackStartPrefix+t.Code)
		case app.Unlocked(t, passed):
			btn = tgbotapi.NewInlineKeyboardButtonData("▶️ "+t.Title, callbackStartPrefix+t.Code)
		default:
			btn = tgbotapi.NewInlineKeyboardButtonData("🔒 "+t.Title, callbackLockedPrefix+t.Code)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", callbackBack)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuButtonText)))
}

func (r *Router) reply(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := r.api.Send(msg); err != nil {
		r.log.WithError(err).WithField("chat_id", chatID).Warn("failed to send reply")
	}
}

func (r *Router) answerCallback(id, text string) {
	if _, err := r.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		r.log.WithError(err).Debug("failed to answer callback")
	}
}

func studentOf(u *tgbotapi.User) domain.Student {
	return domain.Student{
		ID:       u.ID,
		Username: u.UserName,
		FullName: strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName)),
	}
}
