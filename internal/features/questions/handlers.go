// Package questions — вопросы гостей текущему докладчику.
// Перед записью вопрос ещё раз сверяется с окном доклада: пока гость печатал,
// спикер мог закончить.
package questions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const keyTalkID = "speaker_talk_id"

const maxQuestionLen = 1000

const (
	msgActual     = "Что происходит на митапе прямо сейчас:"
	msgNoTalk     = "В данный момент нет активных докладов, которым можно было бы задать вопрос.\nПожалуйста, проверьте расписание (/schedule) и попробуйте позже."
	msgEmpty      = "Вопрос не может быть пустым. Напишите ваш вопрос одним сообщением:"
	msgTooLong    = "Слишком длинный вопрос. Пожалуйста, сформулируйте короче."
	msgTalkClosed = "К сожалению, доклад уже завершён, и вопрос не был отправлен."
	msgCancelled  = "Вопрос отменён."
)

// Handler — раздел «Актуалочка» и диалог вопроса спикеру.
type Handler struct {
	sender  telegram.Sender
	members *members.Service
	events  *events.Service
	dialogs dialog.Store
}

func NewHandler(sender telegram.Sender, memberService *members.Service, eventService *events.Service, dialogs dialog.Store) *Handler {
	return &Handler{
		sender:  sender,
		members: memberService,
		events:  eventService,
		dialogs: dialogs,
	}
}

func (h *Handler) Register(r *bot.Router) {
	r.Button(ui.BtnActual, h.ShowActual)
	r.Callback(ui.CbAsk, h.Start)
	r.Callback(ui.CbAskCancel, h.Cancel)
	r.Dialog(dialog.KindQuestion, h.HandleText)
}

func (h *Handler) ShowActual(_ context.Context, u *bot.Update) error {
	telegram.SendMarkup(h.sender, u.ChatID, msgActual, ui.ActualMenu())
	return nil
}

// Start — кнопка «Задать вопрос».
func (h *Handler) Start(ctx context.Context, u *bot.Update) error {
	if _, err := h.members.Guest(ctx, u.User); errors.Is(err, common.ErrNotFound) {
		telegram.SendMarkup(h.sender, u.ChatID, ui.MsgNeedStart, ui.RoleChoice())
		return nil
	} else if err != nil {
		return err
	}

	talk, err := h.events.CurrentTalk(ctx)
	if errors.Is(err, common.ErrNotFound) {
		telegram.Edit(h.sender, u.Request, msgNoTalk, nil)
		return nil
	}
	if err != nil {
		return err
	}

	s := dialog.New(u.UserID, dialog.KindQuestion, dialog.StateQuestionInput)
	s.SetInt64(keyTalkID, talk.ID)
	if err := h.dialogs.Save(ctx, s); err != nil {
		return err
	}

	cancel := ui.CancelButton(ui.CbAskCancel)
	telegram.Edit(h.sender, u.Request, fmt.Sprintf(
		"Доклад «%s» (спикер: %s).\nНапишите ваш вопрос одним сообщением:", talk.Title, talk.SpeakerName), &cancel)
	return nil
}

// HandleText — текст вопроса.
func (h *Handler) HandleText(ctx context.Context, u *bot.Update, s *dialog.Session) error {
	talkID, ok := s.Int64(keyTalkID)
	if !ok || s.State != dialog.StateQuestionInput {
		telegram.SendText(h.sender, u.ChatID, ui.MsgInternalError)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}

	text := strings.TrimSpace(u.Text)
	if text == "" {
		telegram.SendMarkup(h.sender, u.ChatID, msgEmpty, ui.CancelButton(ui.CbAskCancel))
		return nil
	}
	if len([]rune(text)) > maxQuestionLen {
		telegram.SendMarkup(h.sender, u.ChatID, msgTooLong, ui.CancelButton(ui.CbAskCancel))
		return nil
	}

	guest, err := h.members.Guest(ctx, u.User)
	if errors.Is(err, common.ErrNotFound) {
		telegram.SendText(h.sender, u.ChatID, ui.MsgStartOver)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}
	if err != nil {
		return err
	}

	talk, q, err := h.events.AskQuestion(ctx, talkID, guest.ID, text)
	switch {
	case errors.Is(err, common.ErrTalkClosed):
		log.WithFields(log.Fields{
			"user_id":         u.UserID,
			"speaker_talk_id": talkID,
		}).Info("Вопрос отклонён: доклад завершён")
		telegram.SendText(h.sender, u.ChatID, msgTalkClosed)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	case errors.Is(err, common.ErrNotFound):
		telegram.SendText(h.sender, u.ChatID, ui.MsgStartOver)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	case err != nil:
		return err
	}

	if err := h.dialogs.End(ctx, u.UserID, s.Kind); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id":     u.UserID,
		"question_id": q.ID,
		"speaker_id":  talk.SpeakerID,
	}).Info("Новый вопрос спикеру")

	telegram.SendText(h.sender, u.ChatID, fmt.Sprintf(
		"Спасибо за ваш вопрос к докладу «%s» (спикер: %s)!\nВопрос передан спикеру.", talk.Title, talk.SpeakerName))

	if talk.SpeakerUserTG != 0 {
		telegram.SendText(h.sender, talk.SpeakerUserTG, fmt.Sprintf(
			"Новый вопрос к докладу «%s» от %s:\n%s", talk.Title, guestLabel(guest), text))
	}
	return nil
}

func (h *Handler) Cancel(ctx context.Context, u *bot.Update) error {
	if err := h.dialogs.End(ctx, u.UserID, dialog.KindQuestion); err != nil {
		return err
	}
	telegram.Edit(h.sender, u.Request, msgCancelled, nil)
	return nil
}

func guestLabel(g *members.Guest) string {
	if g.Username != "" {
		return fmt.Sprintf("%s (@%s)", g.Name, g.Username)
	}
	return g.Name
}
