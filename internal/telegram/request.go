// Package telegram — тонкий адаптер над telegram-bot-api.
// Апдейты приводятся к Request, а ответы уходят через интерфейс Sender,
// который реализует *tgbotapi.BotAPI (и фейк в тестах).
package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Kind — тип входящего апдейта.
type Kind int

const (
	KindMessage Kind = iota
	KindCallback
	KindPreCheckout
	KindPayment
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindCallback:
		return "callback"
	case KindPreCheckout:
		return "pre_checkout"
	case KindPayment:
		return "payment"
	}
	return "unknown"
}

// Request — нормализованный входящий апдейт.
type Request struct {
	Kind      Kind
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	Private   bool

	// Текст сообщения. Command и Args заполняет роутер.
	Text    string
	Command string
	Args    []string

	// Сообщение, к которому привязан callback (для редактирования).
	MessageID    int
	CallbackID   string
	CallbackData string

	// Платежи: ID pre-checkout запроса, payload счёта, сумма в минимальных единицах.
	QueryID     string
	Payload     string
	Currency    string
	TotalAmount int
}

// FromUpdate приводит апдейт к Request. false — апдейт боту не интересен
// (нет отправителя, служебное сообщение и т.п.).
func FromUpdate(update tgbotapi.Update) (Request, bool) {
	switch {
	case update.PreCheckoutQuery != nil:
		q := update.PreCheckoutQuery
		if q.From == nil {
			return Request{}, false
		}
		return Request{
			Kind:        KindPreCheckout,
			ChatID:      q.From.ID,
			UserID:      q.From.ID,
			Username:    q.From.UserName,
			FirstName:   q.From.FirstName,
			Private:     true,
			QueryID:     q.ID,
			Payload:     q.InvoicePayload,
			Currency:    q.Currency,
			TotalAmount: q.TotalAmount,
		}, true

	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return Request{}, false
		}
		return Request{
			Kind:         KindCallback,
			ChatID:       cq.Message.Chat.ID,
			UserID:       cq.From.ID,
			Username:     cq.From.UserName,
			FirstName:    cq.From.FirstName,
			Private:      cq.Message.Chat.IsPrivate(),
			MessageID:    cq.Message.MessageID,
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}, true

	case update.Message != nil:
		m := update.Message
		if m.From == nil || m.Chat == nil {
			return Request{}, false
		}
		req := Request{
			Kind:      KindMessage,
			ChatID:    m.Chat.ID,
			UserID:    m.From.ID,
			Username:  m.From.UserName,
			FirstName: m.From.FirstName,
			Private:   m.Chat.IsPrivate(),
			MessageID: m.MessageID,
			Text:      m.Text,
		}
		if p := m.SuccessfulPayment; p != nil {
			req.Kind = KindPayment
			req.Payload = p.InvoicePayload
			req.Currency = p.Currency
			req.TotalAmount = p.TotalAmount
			return req, true
		}
		if m.Text == "" {
			return Request{}, false
		}
		return req, true
	}
	return Request{}, false
}

// DisplayName — @username, если есть, иначе имя.
func (r Request) DisplayName() string {
	if r.Username != "" {
		return "@" + r.Username
	}
	return r.FirstName
}
