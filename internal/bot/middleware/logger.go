// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	"time"

	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/telegram"
)

// LogRequest логирует входящий апдейт.
// Записывает: тип, user_id, chat_id, username, текст или callback data (первые 50 символов).
func LogRequest(req telegram.Request) {
	fields := log.Fields{
		"kind":     req.Kind.String(),
		"user_id":  req.UserID,
		"chat_id":  req.ChatID,
		"username": req.Username,
		"time":     time.Now().Format("15:04:05"),
	}
	switch req.Kind {
	case telegram.KindMessage:
		fields["text"] = common.Truncate(req.Text, 50)
	case telegram.KindCallback:
		fields["data"] = req.CallbackData
	case telegram.KindPreCheckout, telegram.KindPayment:
		fields["payload"] = req.Payload
		fields["amount"] = req.TotalAmount
		fields["currency"] = req.Currency
	}
	log.WithFields(fields).Debug("Входящий апдейт")
}
