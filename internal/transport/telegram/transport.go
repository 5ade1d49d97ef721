package telegram

import (
	"context"
	"errors"
	"time"

	"course-quiz-bot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CallbackCancelQuiz is the data of the cancel button shown under every question.
const CallbackCancelQuiz = "quiz_cancel"

// BotAPI is the part of *tgbotapi.BotAPI used by the bot.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Transport sends quiz polls and messages through the Telegram Bot API.
type Transport struct {
	api BotAPI
}

func NewTransport(api BotAPI) *Transport {
	return &Transport{api: api}
}

func (t *Transport) SendQuiz(ctx context.Context, chatID int64, p domain.Presentation, openPeriod time.Duration) (domain.SentPoll, error) {
	if err := ctx.Err(); err != nil {
		return domain.SentPoll{}, &domain.TransportError{Op: "send poll", Err: err}
	}
	poll := tgbotapi.NewPoll(chatID, p.Prompt, p.Options...)
	poll.Type = "quiz"
	poll.IsAnonymous = false
	poll.CorrectOptionID = int64(p.CorrectIdx)
	poll.Explanation = p.Explanation
	poll.OpenPeriod = int(openPeriod / time.Second)
	poll.ReplyMarkup = cancelKeyboard()

	msg, err := t.api.Send(poll)
	if err != nil {
		return domain.SentPoll{}, &domain.TransportError{Op: "send poll", Err: err}
	}
	if msg.Poll == nil {
		return domain.SentPoll{}, &domain.TransportError{Op: "send poll", Err: errors.New("response has no poll")}
	}
	return domain.SentPoll{PollID: msg.Poll.ID, MessageID: msg.MessageID}, nil
}

func (t *Transport) StopPoll(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return &domain.TransportError{Op: "stop poll", Err: err}
	}
	if _, err := t.api.Request(tgbotapi.NewStopPoll(chatID, messageID)); err != nil {
		return &domain.TransportError{Op: "stop poll", Err: err}
	}
	return nil
}

func (t *Transport) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return &domain.TransportError{Op: "send message", Err: err}
	}
	if _, err := t.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return &domain.TransportError{Op: "send message", Err: err}
	}
	return nil
}

func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⛔ Cancel test", CallbackCancelQuiz),
		),
	)
}
