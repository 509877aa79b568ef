package organizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const (
	keyEventID   = "event_id"
	keySpeakerID = "speaker_id"
)

const (
	msgNoEvents       = "Пока нет запланированных мероприятий, для которых можно управлять спикерами."
	msgChooseEvent    = "Выберите мероприятие, на которое хотите записать спикера, или для которого хотите просмотреть/изменить состав спикеров:"
	msgChooseAgain    = "Выберите мероприятие снова:"
	msgEventGone      = "Выбранное мероприятие не найдено. Пожалуйста, начните заново."
	msgSpeakerGone    = "Выбранный спикер не найден. Пожалуйста, начните заново."
	msgNoSpeakers     = "В системе пока нет одобренных спикеров.\nСначала одобрите заявки спикеров, затем вы сможете записывать их на мероприятия."
	msgLostContext    = "Произошла внутренняя ошибка (потерян контекст). Пожалуйста, начните запись спикера заново."
	msgManageCanceled = "Управление спикерами отменено."
	msgUseButtons     = "Пожалуйста, воспользуйтесь кнопками в сообщении выше или отправьте /cancel."
)

const msgDetailsPrompt = "Теперь, пожалуйста, введите детали для его выступления.\n" +
	"Отправьте ОДНО сообщение, где каждая деталь на новой строке, в следующем формате:\n\n" +
	"Тема доклада: [Полное название темы]\n" +
	"Начало: [ДД.ММ.ГГГГ ЧЧ:ММ]\n" +
	"Окончание: [ДД.ММ.ГГГГ ЧЧ:ММ]\n\n" +
	"Пример:\n" +
	"Тема доклада: Введение в асинхронный Python\n" +
	"Начало: 25.12.2024 10:00\n" +
	"Окончание: 25.12.2024 10:45"

// StartManage — «Управление спикерами»: шаг 1, выбор мероприятия.
func (h *Handler) StartManage(ctx context.Context, u *bot.Update) error {
	list, err := h.events.Events(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		telegram.SendText(h.sender, u.ChatID, msgNoEvents)
		return nil
	}

	s := dialog.New(u.UserID, dialog.KindManageSpeaker, dialog.StateChooseEvent)
	if err := h.dialogs.Save(ctx, s); err != nil {
		return err
	}
	telegram.SendMarkup(h.sender, u.ChatID, msgChooseEvent,
		ui.EventChoice(list, ui.CbManageEvent, ui.CbManageCancel, h.loc))
	return nil
}

// loadManage возвращает сессию управления спикерами. nil — сессии нет,
// пользователю уже отправлено сообщение.
func (h *Handler) loadManage(ctx context.Context, u *bot.Update) (*dialog.Session, error) {
	s, err := h.dialogs.Load(ctx, u.UserID, dialog.KindManageSpeaker)
	if errors.Is(err, dialog.ErrNoSession) {
		telegram.Edit(h.sender, u.Request, msgLostContext, nil)
		return nil, nil
	}
	return s, err
}

// ChooseEvent — шаг 2: выбор спикера для мероприятия.
func (h *Handler) ChooseEvent(ctx context.Context, u *bot.Update) error {
	eventID, err := u.CallbackInt64(ui.CbManageEvent)
	if err != nil {
		return err
	}
	s, err := h.loadManage(ctx, u)
	if err != nil || s == nil {
		return err
	}

	ev, err := h.events.Event(ctx, eventID)
	if errors.Is(err, common.ErrNotFound) {
		telegram.Edit(h.sender, u.Request, msgEventGone, nil)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}
	if err != nil {
		return err
	}

	list, err := h.members.Speakers(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		telegram.Edit(h.sender, u.Request, fmt.Sprintf("Выбрано мероприятие: %s.\n\n%s", ev.Name, msgNoSpeakers), nil)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}

	s.SetInt64(keyEventID, ev.ID)
	s.State = dialog.StateChooseSpeaker
	if err := h.dialogs.Save(ctx, s); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"organizer_id": u.UserID,
		"event_id":     ev.ID,
	}).Debug("Организатор выбрал мероприятие")

	markup := ui.SpeakerChoice(list)
	telegram.Edit(h.sender, u.Request,
		fmt.Sprintf("Выбрано мероприятие: %s.\nТеперь выберите спикера из списка:", ev.Name), &markup)
	return nil
}

// BackToEvents — «<< Назад к выбору мероприятия».
func (h *Handler) BackToEvents(ctx context.Context, u *bot.Update) error {
	s, err := h.loadManage(ctx, u)
	if err != nil || s == nil {
		return err
	}

	list, err := h.events.Events(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		telegram.Edit(h.sender, u.Request, "Нет мероприятий для выбора.", nil)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}

	delete(s.Data, keyEventID)
	s.State = dialog.StateChooseEvent
	if err := h.dialogs.Save(ctx, s); err != nil {
		return err
	}
	markup := ui.EventChoice(list, ui.CbManageEvent, ui.CbManageCancel, h.loc)
	telegram.Edit(h.sender, u.Request, msgChooseAgain, &markup)
	return nil
}

// ChooseSpeaker — шаг 3: просим детали выступления.
func (h *Handler) ChooseSpeaker(ctx context.Context, u *bot.Update) error {
	speakerID, err := u.CallbackInt64(ui.CbManageSpeaker)
	if err != nil {
		return err
	}
	s, err := h.loadManage(ctx, u)
	if err != nil || s == nil {
		return err
	}

	eventID, ok := s.Int64(keyEventID)
	if !ok {
		telegram.Edit(h.sender, u.Request, "Произошла ошибка: не найдено выбранное мероприятие. Начните заново.", nil)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}

	sp, err := h.members.Speaker(ctx, speakerID)
	if errors.Is(err, common.ErrNotFound) {
		telegram.Edit(h.sender, u.Request, msgSpeakerGone, nil)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}
	if err != nil {
		return err
	}
	ev, err := h.events.Event(ctx, eventID)
	if errors.Is(err, common.ErrNotFound) {
		telegram.Edit(h.sender, u.Request, msgEventGone, nil)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}
	if err != nil {
		return err
	}

	s.SetInt64(keySpeakerID, sp.ID)
	s.State = dialog.StateTalkDetails
	if err := h.dialogs.Save(ctx, s); err != nil {
		return err
	}
	telegram.Edit(h.sender, u.Request, fmt.Sprintf("Выбран спикер: %s\nДля мероприятия: %s\n\n%s",
		sp.DisplayName(), ev.Name, msgDetailsPrompt), nil)
	return nil
}

// HandleDetails — шаг 4: разбор деталей и запись выступления.
func (h *Handler) HandleDetails(ctx context.Context, u *bot.Update, s *dialog.Session) error {
	if s.State != dialog.StateTalkDetails {
		telegram.SendText(h.sender, u.ChatID, msgUseButtons)
		return nil
	}

	details, err := ParseTalkDetails(strings.TrimSpace(u.Text), h.loc)
	if err != nil {
		telegram.SendText(h.sender, u.ChatID, fmt.Sprintf(
			"Ошибка в данных: %v\n\nПожалуйста, попробуйте ввести детали снова, соблюдая формат.", err))
		return nil
	}

	eventID, okEvent := s.Int64(keyEventID)
	speakerID, okSpeaker := s.Int64(keySpeakerID)
	if !okEvent || !okSpeaker {
		log.WithField("user_id", u.UserID).Warn("Потерян контекст записи спикера")
		telegram.SendText(h.sender, u.ChatID, msgLostContext)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}

	st, err := h.events.AddTalk(ctx, eventID, speakerID, details.Title, details.Start, details.End)
	if errors.Is(err, common.ErrNotFound) {
		telegram.SendText(h.sender, u.ChatID, "Ошибка: выбранные ранее мероприятие или спикер не найдены. Начните заново.")
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"organizer_id":    u.UserID,
		"speaker_talk_id": st.ID,
		"event_id":        eventID,
	}).Info("Спикер записан на мероприятие")

	when := fmt.Sprintf("с %s по %s",
		common.FormatDateTime(st.StartAt, h.loc), common.FormatDateTime(st.EndAt, h.loc))
	telegram.SendText(h.sender, u.ChatID, fmt.Sprintf(
		"Успешно! Спикер '%s' записан на мероприятие '%s'.\nДоклад: '%s'\nВремя: %s",
		st.SpeakerName, st.EventName, st.Title, when))
	if st.SpeakerUserTG != 0 {
		telegram.SendText(h.sender, st.SpeakerUserTG, fmt.Sprintf(
			"Вас записали на мероприятие «%s».\nДоклад: «%s»\nВремя: %s", st.EventName, st.Title, when))
	}
	return h.backToMenu(ctx, u, s.Kind)
}

func (h *Handler) CancelManage(ctx context.Context, u *bot.Update) error {
	if err := h.dialogs.End(ctx, u.UserID, dialog.KindManageSpeaker); err != nil {
		return err
	}
	telegram.Edit(h.sender, u.Request, msgManageCanceled, nil)
	return nil
}
