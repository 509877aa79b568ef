package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Sender — то, что бот умеет отправлять в Telegram.
// *tgbotapi.BotAPI реализует его напрямую.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// SendText отправляет простое текстовое сообщение.
func SendText(s Sender, chatID int64, text string) {
	SendMarkup(s, chatID, text, nil)
}

// SendMarkup отправляет сообщение с клавиатурой (reply или inline).
// markup == nil — без клавиатуры.
func SendMarkup(s Sender, chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := s.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// Edit заменяет текст (и inline-клавиатуру) сообщения, к которому привязан callback.
// Если редактировать нечего — отправляет новое сообщение.
func Edit(s Sender, req Request, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if req.Kind != KindCallback || req.MessageID == 0 {
		if markup != nil {
			SendMarkup(s, req.ChatID, text, *markup)
			return
		}
		SendText(s, req.ChatID, text)
		return
	}

	var edit tgbotapi.EditMessageTextConfig
	if markup != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(req.ChatID, req.MessageID, text, *markup)
	} else {
		edit = tgbotapi.NewEditMessageText(req.ChatID, req.MessageID, text)
	}
	if _, err := s.Send(edit); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id":    req.ChatID,
			"message_id": req.MessageID,
		}).Warn("Не удалось отредактировать сообщение")
	}
}

// AnswerCallback снимает «часики» с inline-кнопки. text может быть пустым.
func AnswerCallback(s Sender, req Request, text string) {
	if req.CallbackID == "" {
		return
	}
	if _, err := s.Request(tgbotapi.NewCallback(req.CallbackID, text)); err != nil {
		log.WithError(err).WithField("user_id", req.UserID).Debug("Не удалось ответить на callback")
	}
}

// AnswerPreCheckout подтверждает или отклоняет pre-checkout запрос.
func AnswerPreCheckout(s Sender, queryID string, ok bool, errorMessage string) error {
	cfg := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
	}
	if !ok {
		cfg.ErrorMessage = errorMessage
	}
	_, err := s.Request(cfg)
	return err
}
