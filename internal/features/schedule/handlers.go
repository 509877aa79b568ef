package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const (
	msgEmpty = "К сожалению, программа мероприятия пока не загружена или возникла ошибка при её чтении. Попробуйте позже."
	msgNoArg = "Пожалуйста, напишите ваш вопрос после команды /ask.\nНапример: /ask Какой ваш любимый фреймворк?"
	msgNoTalk = "В данный момент нет активных докладов, которым можно было бы задать вопрос.\n" +
		"Пожалуйста, проверьте расписание (/schedule) и попробуйте позже."
	separator = "----------------------------------"
)

// maxQuestionLen совпадает с лимитом диалога вопросов.
const maxQuestionLen = 1000

type Handler struct {
	sender  telegram.Sender
	source  Source
	members *members.Service
	events  *events.Service
	loc     *time.Location
}

func NewHandler(sender telegram.Sender, source Source, memberService *members.Service, eventService *events.Service, loc *time.Location) *Handler {
	return &Handler{
		sender:  sender,
		source:  source,
		members: memberService,
		events:  eventService,
		loc:     loc,
	}
}

func (h *Handler) Register(r *bot.Router) {
	r.Command("schedule", h.Show)
	r.Button(ui.BtnSchedule, h.Show)
	r.Callback(ui.CbTimeline, h.Show)
	r.Command("ask", h.Ask)
}

// Show — программа мероприятия.
func (h *Handler) Show(ctx context.Context, u *bot.Update) error {
	list, err := h.source.All(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		telegram.SendText(h.sender, u.ChatID, msgEmpty)
		return nil
	}
	telegram.SendText(h.sender, u.ChatID, Format(list, h.loc))
	return nil
}

// Ask — /ask <вопрос>: вопрос текущему докладчику одной командой.
// Если доклад из БД и у пользователя есть профиль гостя, вопрос
// сохраняется и уходит спикеру.
func (h *Handler) Ask(ctx context.Context, u *bot.Update) error {
	text := strings.TrimSpace(u.ArgText())
	if text == "" {
		telegram.SendText(h.sender, u.ChatID, msgNoArg)
		return nil
	}
	if len([]rune(text)) > maxQuestionLen {
		telegram.SendText(h.sender, u.ChatID, "Слишком длинный вопрос. Пожалуйста, сформулируйте короче.")
		return nil
	}

	entry, err := h.source.Current(ctx)
	if errors.Is(err, common.ErrNotFound) {
		log.WithField("user_id", u.UserID).Info("Вопрос вне активного доклада")
		telegram.SendText(h.sender, u.ChatID, msgNoTalk)
		return nil
	}
	if err != nil {
		return err
	}

	if entry.SpeakerTalkID != 0 {
		if err := h.store(ctx, u, entry, text); err != nil {
			if errors.Is(err, common.ErrTalkClosed) {
				telegram.SendText(h.sender, u.ChatID, "К сожалению, доклад уже завершён, и вопрос не был отправлен.")
				return nil
			}
			return err
		}
	}

	log.WithFields(log.Fields{
		"user_id": u.UserID,
		"speaker": entry.SpeakerName,
		"talk":    entry.Title,
	}).Info("Новый вопрос через /ask")

	telegram.SendText(h.sender, u.ChatID, fmt.Sprintf(
		"Спасибо за ваш вопрос к докладу «%s» (спикер: %s)!\nВаш вопрос: «%s» был отправлен.",
		entry.Title, entry.SpeakerName, text))
	return nil
}

// store сохраняет вопрос к выступлению из БД. Без профиля гостя вопрос
// только подтверждается пользователю.
func (h *Handler) store(ctx context.Context, u *bot.Update, entry *Entry, text string) error {
	g, err := h.members.Guest(ctx, u.User)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	talk, _, err := h.events.AskQuestion(ctx, entry.SpeakerTalkID, g.ID, text)
	if err != nil {
		return err
	}
	if talk.SpeakerUserTG != 0 {
		from := g.Name
		if from == "" {
			from = u.DisplayName()
		}
		telegram.SendText(h.sender, talk.SpeakerUserTG,
			fmt.Sprintf("Новый вопрос к докладу «%s» от %s:\n%s", talk.Title, from, text))
	}
	return nil
}

// Format — текст программы. Записи из БД группируются по мероприятиям.
func Format(list []Entry, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("Программа мероприятия:\n")
	var lastEvent int64
	for _, e := range list {
		if e.EventID != 0 && e.EventID != lastEvent {
			fmt.Fprintf(&b, "\n%s, %s\n", e.EventName, common.FormatDate(e.Start, loc))
			lastEvent = e.EventID
		}
		fmt.Fprintf(&b, "\nВремя доклада : %s - %s\n", clock(e.Start, e.EventID, loc), clock(e.End, e.EventID, loc))
		fmt.Fprintf(&b, "Имя докладчика: %s\n", e.SpeakerName)
		fmt.Fprintf(&b, "Тема: %s", e.Title)
		if e.Finished {
			b.WriteString(" (завершён)")
		}
		b.WriteString("\n" + separator)
	}
	return b.String()
}

// clock печатает время дня. Время из файла не привязано к дате и поясу.
func clock(t time.Time, eventID int64, loc *time.Location) string {
	if eventID == 0 {
		return t.Format(clockLayout)
	}
	return common.FormatClock(t, loc)
}
