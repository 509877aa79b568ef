// Package organizer — инструменты организатора: запись спикеров на мероприятия,
// резерв потенциальных спикеров, заявки спикеров, рассылка и QR-коды регистрации.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/features/registration"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

// qrSize — сторона PNG с QR-кодом в пикселях.
const qrSize = 512

// Handler обслуживает меню организатора.
type Handler struct {
	sender      telegram.Sender
	members     *members.Service
	events      *events.Service
	dialogs     dialog.Store
	loc         *time.Location
	botUsername string
	// пауза между сообщениями рассылки
	pace time.Duration
}

func NewHandler(sender telegram.Sender, memberService *members.Service, eventService *events.Service, dialogs dialog.Store, loc *time.Location, botUsername string) *Handler {
	return &Handler{
		sender:      sender,
		members:     memberService,
		events:      eventService,
		dialogs:     dialogs,
		loc:         loc,
		botUsername: botUsername,
		pace:        broadcastPace,
	}
}

// WithBroadcastPace меняет паузу между сообщениями рассылки. 0 — без паузы.
func (h *Handler) WithBroadcastPace(d time.Duration) *Handler {
	h.pace = d
	return h
}

func (h *Handler) Register(r *bot.Router) {
	r.Button(ui.BtnManageSpeakers, h.organizerOnly(h.StartManage))
	r.CallbackPrefix(ui.CbManageEvent, h.organizerOnly(h.ChooseEvent))
	r.CallbackPrefix(ui.CbManageSpeaker, h.organizerOnly(h.ChooseSpeaker))
	r.Callback(ui.CbManageBack, h.organizerOnly(h.BackToEvents))
	r.Callback(ui.CbManageCancel, h.CancelManage)
	r.Dialog(dialog.KindManageSpeaker, h.HandleDetails)

	r.Button(ui.BtnReserve, h.organizerOnly(h.StartReserve))
	r.Command("skip_notes", h.SkipNotes)
	r.Command("cancel_add_speaker", h.CancelReserve)
	r.Dialog(dialog.KindReserve, h.HandleReserve)

	r.Button(ui.BtnSpeakerRequests, h.organizerOnly(h.PendingRequests))

	r.Button(ui.BtnBroadcast, h.organizerOnly(h.StartBroadcast))
	r.Dialog(dialog.KindBroadcast, h.HandleBroadcast)

	r.Command("qrcode", h.organizerOnly(h.QRCode))
}

// organizerOnly пропускает только пользователей с флагом организатора.
func (h *Handler) organizerOnly(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, u *bot.Update) error {
		if u.User == nil || !u.User.IsOrganizer {
			log.WithFields(log.Fields{
				"user_id": u.UserID,
				"text":    u.Text,
				"data":    u.CallbackData,
			}).Warn("Попытка доступа к функции организатора")
			telegram.SendText(h.sender, u.ChatID, ui.MsgOrganizerOnly)
			return nil
		}
		return next(ctx, u)
	}
}

// backToMenu завершает диалог организатора и возвращает его меню.
func (h *Handler) backToMenu(ctx context.Context, u *bot.Update, kind dialog.Kind) error {
	if err := h.dialogs.End(ctx, u.UserID, kind); err != nil {
		return err
	}
	ui.ShowMenu(h.sender, u.ChatID, ui.BackToOrganizerMenu, members.RoleOrganizer)
	return nil
}

// PendingRequests — заявки спикеров, ожидающие решения.
func (h *Handler) PendingRequests(ctx context.Context, u *bot.Update) error {
	list, err := h.members.PendingSpeakers(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		telegram.SendText(h.sender, u.ChatID, "Новых заявок спикеров нет.")
		return nil
	}
	for _, sp := range list {
		telegram.SendMarkup(h.sender, u.ChatID, ui.SpeakerRequest(sp), ui.SpeakerDecision(sp.ID))
	}
	return nil
}

// QRCode — /qrcode <id мероприятия>: картинка со ссылкой на регистрацию.
func (h *Handler) QRCode(ctx context.Context, u *bot.Update) error {
	if len(u.Args) != 1 {
		telegram.SendText(h.sender, u.ChatID, "Использование: /qrcode <id мероприятия>")
		return nil
	}
	eventID, err := strconv.ParseInt(u.Args[0], 10, 64)
	if err != nil || eventID <= 0 {
		telegram.SendText(h.sender, u.ChatID, "ID мероприятия должен быть положительным числом.")
		return nil
	}
	if h.botUsername == "" {
		log.Error("Имя бота неизвестно, ссылку для QR-кода не построить")
		telegram.SendText(h.sender, u.ChatID, ui.MsgConfigError)
		return nil
	}

	ev, err := h.events.Event(ctx, eventID)
	if errors.Is(err, common.ErrNotFound) {
		telegram.SendText(h.sender, u.ChatID, "Мероприятие не найдено.")
		return nil
	}
	if err != nil {
		return err
	}

	link := RegistrationLink(h.botUsername, ev.ID)
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return fmt.Errorf("ошибка генерации QR-кода: %w", err)
	}

	photo := tgbotapi.NewPhoto(u.ChatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("event_%d.png", ev.ID),
		Bytes: png,
	})
	photo.Caption = fmt.Sprintf("Регистрация на «%s»:\n%s", ev.Name, link)
	if _, err := h.sender.Send(photo); err != nil {
		return fmt.Errorf("ошибка отправки QR-кода: %w", err)
	}
	return nil
}

// RegistrationLink — deep link, открывающий регистрацию на мероприятие.
func RegistrationLink(botUsername string, eventID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%s%d", botUsername, registration.DeepLinkPrefix, eventID)
}
