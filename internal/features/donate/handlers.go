// Package donate — пожертвования через платёжного провайдера Telegram.
// Платежи нигде не сохраняются: бот только выставляет счёт и благодарит.
package donate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

// payloadNamespace — начало payload каждого счёта.
const payloadNamespace = "meetup_donation"

const (
	invoiceTitle       = "Поддержка Python Meetup"
	invoiceDescription = "Ваш вклад поможет сделать наши митапы еще лучше! Спасибо!"
	priceLabel         = "Донат на развитие митапа"

	msgUnavailable   = "Извините, функция донатов временно недоступна. (Ошибка конфигурации провайдера)"
	msgCheckFailed   = "Произошла ошибка при проверке платежа. Пожалуйста, попробуйте снова."
	msgInvoiceFailed = "Произошла ошибка при попытке отправить счет. Пожалуйста, попробуйте позже."
)

// Handler выставляет счета и обрабатывает ответы Telegram по платежам.
type Handler struct {
	sender        telegram.Sender
	providerToken string
	amount        int // в минимальных единицах валюты
	currency      string
	now           func() time.Time
}

func NewHandler(sender telegram.Sender, providerToken string, amount int, currency string) *Handler {
	return &Handler{
		sender:        sender,
		providerToken: providerToken,
		amount:        amount,
		currency:      currency,
		now:           time.Now,
	}
}

// WithClock подменяет часы, из которых берётся метка времени payload.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Register(r *bot.Router) {
	r.Command("donate", h.Donate)
	r.Button(ui.BtnDonate, h.Donate)
	r.PreCheckout(h.PreCheckout)
	r.Payment(h.Payment)
}

// Payload — идентификатор счёта: пользователь и момент выставления.
func Payload(userID int64, at time.Time) string {
	return fmt.Sprintf("%s_%d_%d", payloadNamespace, userID, at.Unix())
}

// Donate отправляет счёт. Без токена провайдера счёт не отправляется.
func (h *Handler) Donate(_ context.Context, u *bot.Update) error {
	if h.providerToken == "" {
		log.WithField("user_id", u.UserID).Error("Токен платёжного провайдера не задан")
		telegram.SendText(h.sender, u.ChatID, msgUnavailable)
		return nil
	}

	invoice := tgbotapi.NewInvoice(
		u.ChatID,
		invoiceTitle,
		invoiceDescription,
		Payload(u.UserID, h.now()),
		h.providerToken,
		"",
		h.currency,
		[]tgbotapi.LabeledPrice{{Label: priceLabel, Amount: h.amount}},
	)
	// nil уходит в API как null, и Telegram отклоняет счёт
	invoice.SuggestedTipAmounts = []int{}

	if _, err := h.sender.Send(invoice); err != nil {
		log.WithError(err).WithField("user_id", u.UserID).Error("Не удалось отправить счёт")
		telegram.SendText(h.sender, u.ChatID, msgInvoiceFailed)
		return nil
	}
	log.WithFields(log.Fields{
		"user_id":  u.UserID,
		"amount":   h.amount,
		"currency": h.currency,
	}).Info("Счёт на донат отправлен")
	return nil
}

// PreCheckout подтверждает оплату, если payload выставлен этому пользователю.
// Сумма и валюта не перепроверяются.
func (h *Handler) PreCheckout(_ context.Context, u *bot.Update) error {
	expected := fmt.Sprintf("%s_%d", payloadNamespace, u.UserID)
	if !strings.HasPrefix(u.Payload, expected) {
		log.WithFields(log.Fields{
			"user_id": u.UserID,
			"payload": u.Payload,
		}).Warn("PreCheckoutQuery с неожиданным payload")
		return telegram.AnswerPreCheckout(h.sender, u.QueryID, false, msgCheckFailed)
	}
	return telegram.AnswerPreCheckout(h.sender, u.QueryID, true, "")
}

// Payment благодарит за успешный платёж.
func (h *Handler) Payment(_ context.Context, u *bot.Update) error {
	name := u.FirstName
	if name == "" {
		name = "дорогой друг"
	}
	log.WithFields(log.Fields{
		"user_id":  u.UserID,
		"amount":   u.TotalAmount,
		"currency": u.Currency,
		"payload":  u.Payload,
	}).Info("Успешный платёж")

	telegram.SendText(h.sender, u.ChatID, fmt.Sprintf(
		"Спасибо большое, %s, за вашу поддержку в размере %s %s!\nВаш вклад очень важен для нас. Payload вашего платежа: %s.",
		name, FormatAmount(u.TotalAmount), u.Currency, u.Payload))
	return nil
}

// FormatAmount переводит минимальные единицы в основные: 10000 → "100", 12345 → "123.45".
func FormatAmount(minor int) string {
	major, rest := minor/100, minor%100
	if rest == 0 {
		return strconv.Itoa(major)
	}
	if rest < 0 {
		rest = -rest
	}
	return fmt.Sprintf("%d.%02d", major, rest)
}
