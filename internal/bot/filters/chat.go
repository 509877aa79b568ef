// Package filters решает, какие апдейты бот вообще обрабатывает.
package filters

import (
	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/telegram"
)

const groupDenyText = "Я работаю только в личных сообщениях. Напишите мне в личку: /start"

// ChatFilter пропускает только личные чаты с ботом.
// Диалоги, регистрация и платежи привязаны к пользователю, а не к группе.
type ChatFilter struct {
	sender telegram.Sender
}

func NewChatFilter(sender telegram.Sender) *ChatFilter {
	return &ChatFilter{sender: sender}
}

func (f *ChatFilter) CheckAccess(req telegram.Request) bool {
	if req.UserID == 0 {
		log.WithField("component", "ChatFilter").Warn("апдейт без отправителя")
		return false
	}
	if req.Private {
		return true
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   req.ChatID,
		"user_id":   req.UserID,
	})

	// в группе отвечаем только на явные команды, остальное молча игнорируем
	if req.Kind == telegram.KindMessage && len(req.Text) > 0 && req.Text[0] == '/' {
		logger.Info("deny: command in group chat")
		if f.sender != nil {
			telegram.SendText(f.sender, req.ChatID, groupDenyText)
		}
		return false
	}
	logger.Debug("deny: not a private chat")
	return false
}
