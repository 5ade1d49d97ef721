package telegram

import (
	"context"

	"course-quiz-bot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// AdminNotifier forwards engine notices to the configured admin chats.
// Delivery failures are logged and swallowed.
type AdminNotifier struct {
	api      BotAPI
	adminIDs []int64
	log      logrus.FieldLogger
}

func NewAdminNotifier(api BotAPI, adminIDs []int64, log logrus.FieldLogger) *AdminNotifier {
	return &AdminNotifier{api: api, adminIDs: adminIDs, log: log}
}

func (n *AdminNotifier) Notify(ctx context.Context, notice domain.Notice) {
	if len(n.adminIDs) == 0 {
		n.log.WithField("kind", notice.Kind).Debug("skip admin notify: no admin ids configured")
		return
	}
	for _, id := range n.adminIDs {
		if ctx.Err() != nil {
			return
		}
		if _, err := n.api.Send(tgbotapi.NewMessage(id, notice.Text)); err != nil {
			n.log.WithError(err).WithField("admin_id", id).Warn("failed to notify admin")
		}
	}
}
