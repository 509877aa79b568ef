// Package registration — запись гостя на мероприятие:
// выбор мероприятия → имя → телефон → стек.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

// DeepLinkPrefix — параметр /start для записи на конкретное мероприятие.
const DeepLinkPrefix = "event_"

const (
	keyEventID = "event_id"
	keyName    = "name"
	keyPhone   = "phone"

	maxNameLen = 100
)

const (
	msgNoEvents      = "Пока нет предстоящих мероприятий. Загляните позже!"
	msgChooseEvent   = "Выберите мероприятие для регистрации:"
	msgAskName       = "Как вас зовут? Введите имя и фамилию:"
	msgEmptyName     = "Имя не может быть пустым. Пожалуйста, введите имя:"
	msgLongName      = "Слишком длинное имя. Пожалуйста, введите покороче:"
	msgAskPhone      = "Введите номер телефона (например, +7 900 123-45-67):"
	msgInvalidPhone  = "Некорректный номер телефона. Пожалуйста, попробуйте ещё раз (например, +7 900 123-45-67):"
	msgPhoneTaken    = "Этот номер телефона уже используется. Пожалуйста, введите другой номер:"
	msgAskStack      = "Выберите ваш стек:"
	msgUseStackKeys  = "Пожалуйста, выберите стек кнопкой ниже."
	msgAlready       = "Вы уже зарегистрированы на это мероприятие."
	msgEventNotFound = "Мероприятие не найдено. Пожалуйста, начните заново."
	msgEventEnded    = "Это мероприятие уже закончилось, регистрация закрыта."
	msgCancelled     = "Регистрация отменена."
)

// Handler ведёт диалог регистрации.
type Handler struct {
	sender  telegram.Sender
	members *members.Service
	events  *events.Service
	dialogs dialog.Store
	loc     *time.Location
}

func NewHandler(sender telegram.Sender, memberService *members.Service, eventService *events.Service, dialogs dialog.Store, loc *time.Location) *Handler {
	return &Handler{
		sender:  sender,
		members: memberService,
		events:  eventService,
		dialogs: dialogs,
		loc:     loc,
	}
}

func (h *Handler) Register(r *bot.Router) {
	r.Button(ui.BtnEvents, h.ShowEvents)
	r.CallbackPrefix(ui.CbRegEvent, h.ChooseEvent)
	r.CallbackPrefix(ui.CbRegStack, h.ChooseStack)
	r.Callback(ui.CbRegCancel, h.Cancel)
	r.Dialog(dialog.KindRegistration, h.HandleText)
}

// ShowEvents — список мероприятий, которые ещё не закончились.
func (h *Handler) ShowEvents(ctx context.Context, u *bot.Update) error {
	if _, err := h.members.Guest(ctx, u.User); errors.Is(err, common.ErrNotFound) {
		telegram.SendMarkup(h.sender, u.ChatID, ui.MsgNeedStart, ui.RoleChoice())
		return nil
	} else if err != nil {
		return err
	}

	list, err := h.events.UpcomingEvents(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		telegram.SendText(h.sender, u.ChatID, msgNoEvents)
		return nil
	}

	s := dialog.New(u.UserID, dialog.KindRegistration, dialog.StateChooseEvent)
	if err := h.dialogs.Save(ctx, s); err != nil {
		return err
	}
	telegram.SendMarkup(h.sender, u.ChatID, msgChooseEvent,
		ui.EventChoice(list, ui.CbRegEvent, ui.CbRegCancel, h.loc))
	return nil
}

// ChooseEvent — нажатие на мероприятие в списке.
func (h *Handler) ChooseEvent(ctx context.Context, u *bot.Update) error {
	eventID, err := u.CallbackInt64(ui.CbRegEvent)
	if err != nil {
		return err
	}
	guest, err := h.members.Guest(ctx, u.User)
	if errors.Is(err, common.ErrNotFound) {
		telegram.SendMarkup(h.sender, u.ChatID, ui.MsgNeedStart, ui.RoleChoice())
		return h.dialogs.End(ctx, u.UserID, dialog.KindRegistration)
	}
	if err != nil {
		return err
	}
	return h.startForEvent(ctx, u, guest, eventID)
}

// StartForEvent — вход по ссылке /start event_<id>. Профиль гостя создаётся сам.
func (h *Handler) StartForEvent(ctx context.Context, u *bot.Update, payload string) (bool, error) {
	eventID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || eventID <= 0 {
		log.WithField("payload", payload).Warn("Некорректная ссылка на мероприятие")
		return false, nil
	}
	guest, err := h.members.EnsureGuest(ctx, u.User)
	if err != nil {
		return true, err
	}
	return true, h.startForEvent(ctx, u, guest, eventID)
}

func (h *Handler) startForEvent(ctx context.Context, u *bot.Update, guest *members.Guest, eventID int64) error {
	ev, err := h.events.Event(ctx, eventID)
	if errors.Is(err, common.ErrNotFound) {
		telegram.Edit(h.sender, u.Request, msgEventNotFound, nil)
		return h.dialogs.End(ctx, u.UserID, dialog.KindRegistration)
	}
	if err != nil {
		return err
	}
	if h.ended(ev) {
		telegram.Edit(h.sender, u.Request, msgEventEnded, nil)
		return h.dialogs.End(ctx, u.UserID, dialog.KindRegistration)
	}

	// Анкета уже заполнена — просто записываем.
	if guest.Registered {
		if err := h.dialogs.End(ctx, u.UserID, dialog.KindRegistration); err != nil {
			return err
		}
		err := h.events.Register(ctx, guest.ID, ev.ID)
		if errors.Is(err, common.ErrAlreadyRegistered) {
			telegram.Edit(h.sender, u.Request, msgAlready, nil)
			return nil
		}
		if errors.Is(err, common.ErrNotFound) {
			telegram.Edit(h.sender, u.Request, msgEventNotFound, nil)
			return nil
		}
		if err != nil {
			return err
		}
		telegram.Edit(h.sender, u.Request, h.doneText(ev), nil)
		return nil
	}

	s := dialog.New(u.UserID, dialog.KindRegistration, dialog.StateName)
	s.SetInt64(keyEventID, ev.ID)
	if err := h.dialogs.Save(ctx, s); err != nil {
		return err
	}
	cancel := ui.CancelButton(ui.CbRegCancel)
	telegram.Edit(h.sender, u.Request,
		fmt.Sprintf("Регистрация на «%s».\n%s", ev.Name, msgAskName), &cancel)
	return nil
}

// HandleText — ввод имени и телефона.
func (h *Handler) HandleText(ctx context.Context, u *bot.Update, s *dialog.Session) error {
	text := strings.TrimSpace(u.Text)

	switch s.State {
	case dialog.StateName:
		if text == "" {
			telegram.SendText(h.sender, u.ChatID, msgEmptyName)
			return nil
		}
		if len([]rune(text)) > maxNameLen {
			telegram.SendText(h.sender, u.ChatID, msgLongName)
			return nil
		}
		s.Set(keyName, text)
		s.State = dialog.StatePhone
		if err := h.dialogs.Save(ctx, s); err != nil {
			return err
		}
		telegram.SendMarkup(h.sender, u.ChatID, msgAskPhone, ui.CancelButton(ui.CbRegCancel))

	case dialog.StatePhone:
		phone, err := NormalizePhone(text)
		if err != nil {
			telegram.SendMarkup(h.sender, u.ChatID, msgInvalidPhone, ui.CancelButton(ui.CbRegCancel))
			return nil
		}
		s.Set(keyPhone, phone)
		s.State = dialog.StateStack
		if err := h.dialogs.Save(ctx, s); err != nil {
			return err
		}
		telegram.SendMarkup(h.sender, u.ChatID, msgAskStack, ui.StackChoice())

	case dialog.StateStack:
		telegram.SendMarkup(h.sender, u.ChatID, msgUseStackKeys, ui.StackChoice())

	case dialog.StateChooseEvent:
		telegram.SendText(h.sender, u.ChatID, "Пожалуйста, выберите мероприятие кнопкой в списке выше.")

	default:
		log.WithFields(log.Fields{
			"user_id": u.UserID,
			"state":   s.State,
		}).Warn("Неизвестный шаг регистрации")
		telegram.SendText(h.sender, u.ChatID, ui.MsgInternalError)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}
	return nil
}

// ChooseStack — последний шаг: сохраняем анкету и запись одним вызовом.
func (h *Handler) ChooseStack(ctx context.Context, u *bot.Update) error {
	stack := u.CallbackArg(ui.CbRegStack)
	if !members.ValidStack(stack) {
		return fmt.Errorf("неизвестный стек %q", stack)
	}

	s, err := h.dialogs.Load(ctx, u.UserID, dialog.KindRegistration)
	if errors.Is(err, dialog.ErrNoSession) {
		telegram.Edit(h.sender, u.Request, ui.MsgInternalError, nil)
		return nil
	}
	if err != nil {
		return err
	}

	eventID, ok := s.Int64(keyEventID)
	name, phone := s.String(keyName), s.String(keyPhone)
	if !ok || name == "" || phone == "" || s.State != dialog.StateStack {
		log.WithField("user_id", u.UserID).Warn("Потерян контекст регистрации")
		telegram.Edit(h.sender, u.Request, ui.MsgInternalError, nil)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}

	ev, err := h.events.Event(ctx, eventID)
	if errors.Is(err, common.ErrNotFound) {
		telegram.Edit(h.sender, u.Request, ui.MsgStartOver, nil)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}
	if err != nil {
		return err
	}
	// мероприятие могло закончиться, пока гость заполнял анкету
	if h.ended(ev) {
		telegram.Edit(h.sender, u.Request, msgEventEnded, nil)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}

	guest, err := h.members.Guest(ctx, u.User)
	if err != nil {
		return err
	}

	err = h.events.RegisterWithProfile(ctx, guest.ID, eventID, events.Profile{
		Name:  name,
		Phone: phone,
		Stack: stack,
	})
	switch {
	case errors.Is(err, common.ErrPhoneTaken):
		s.State = dialog.StatePhone
		delete(s.Data, keyPhone)
		if err := h.dialogs.Save(ctx, s); err != nil {
			return err
		}
		telegram.Edit(h.sender, u.Request, msgPhoneTaken, nil)
		return nil
	case errors.Is(err, common.ErrAlreadyRegistered):
		telegram.Edit(h.sender, u.Request, msgAlready, nil)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	case errors.Is(err, common.ErrNotFound):
		telegram.Edit(h.sender, u.Request, ui.MsgStartOver, nil)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	case err != nil:
		return err
	}

	if err := h.dialogs.End(ctx, u.UserID, s.Kind); err != nil {
		return err
	}
	telegram.Edit(h.sender, u.Request, h.doneText(ev), nil)
	return nil
}

// Cancel отменяет регистрацию на любом шаге. Черновик анкеты не сохраняется.
func (h *Handler) Cancel(ctx context.Context, u *bot.Update) error {
	if err := h.dialogs.End(ctx, u.UserID, dialog.KindRegistration); err != nil {
		return err
	}
	telegram.Edit(h.sender, u.Request, msgCancelled, nil)
	return nil
}

func (h *Handler) ended(ev *events.Event) bool {
	return !ev.EndAt.After(h.events.Now())
}

func (h *Handler) doneText(ev *events.Event) string {
	return fmt.Sprintf("Готово! Вы зарегистрированы на «%s».\n\n%s", ev.Name, ui.EventCard(ev, h.loc))
}
