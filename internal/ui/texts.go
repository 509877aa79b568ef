package ui

import (
	"fmt"
	"strings"
	"time"

	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
)

// Общие ответы.
const (
	MsgRetryLater    = "Произошла ошибка. Пожалуйста, попробуйте позже."
	MsgInternalError = "Произошла внутренняя ошибка. Пожалуйста, начните заново с /start."
	MsgStartOver     = "Данные не найдены. Пожалуйста, начните заново."
	MsgConfigError   = "Произошла системная ошибка конфигурации. Пожалуйста, сообщите администратору."
	MsgOrganizerOnly = "Эта функция доступна только для организаторов."
	MsgNeedStart     = "Сначала выберите роль: отправьте /start."
	MsgUnknown       = "Не понимаю. Воспользуйтесь кнопками меню или /help."
	MsgCancelled     = "Действие отменено."
	MsgNothingToStop = "Нечего отменять."
	MsgTooManyCalls  = "Слишком много запросов. Подождите немного."
)

// Help — текст /help.
const Help = "Справка по боту PythonMeetup\n\n" +
	"Я помогу вам на нашем мероприятии! Вот что я умею:\n\n" +
	"Основные команды:\n" +
	"- /start : Показать приветственное сообщение и основные кнопки.\n" +
	"- /schedule : Показать программу мероприятия.\n" +
	"- /ask <ваш вопрос> : Задать вопрос текущему докладчику.\n" +
	"  (Пример: /ask Какой ваш любимый цвет?)\n" +
	"- /donate : Поддержать наше мероприятие.\n" +
	"- /cancel : Прервать текущий диалог.\n" +
	"- /help : Показать это справочное сообщение.\n\n" +
	"Вы также можете использовать кнопки под полем ввода для быстрого доступа к основным функциям.\n\n" +
	"Если у вас возникли проблемы или есть предложения, пожалуйста, обратитесь к организаторам."

// Greeting — приветствие при показе меню роли.
func Greeting(firstName string, role members.Role) string {
	return fmt.Sprintf("С возвращением, %s! Ваша роль: %s.", firstName, role)
}

// EventCard — описание мероприятия.
func EventCard(ev *events.Event, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(ev.Name)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Когда: %s – %s\n",
		common.FormatDateTime(ev.StartAt, loc), common.FormatDateTime(ev.EndAt, loc))
	if ev.Address != "" {
		fmt.Fprintf(&b, "Где: %s\n", ev.Address)
	}
	if ev.Description != "" {
		b.WriteString("\n")
		b.WriteString(ev.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// QuestionList — вопросы к выступлению для спикера.
func QuestionList(t *events.SpeakerTalk, qs []*events.Question, loc *time.Location) string {
	if len(qs) == 0 {
		return fmt.Sprintf("К докладу «%s» пока нет вопросов.", t.Title)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "К докладу «%s» %s:\n", t.Title, common.FormatQuestionsCount(len(qs)))
	for i, q := range qs {
		from := q.GuestName
		if q.GuestUsername != "" {
			from += " (@" + q.GuestUsername + ")"
		}
		fmt.Fprintf(&b, "\n%d. [%s] %s\n%s\n", i+1, common.FormatClock(q.CreatedAt, loc), from, q.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Partners — список гостей для знакомства.
func Partners(list []*members.Guest) string {
	if len(list) == 0 {
		return "Пока никто не рассказал о себе. Загляните позже!"
	}
	var b strings.Builder
	b.WriteString("С кем можно познакомиться:\n")
	for _, g := range list {
		contact := g.Name
		if g.Username != "" {
			contact += " (@" + g.Username + ")"
		}
		fmt.Fprintf(&b, "\n%s\n%s\n", contact, common.Truncate(g.Bio, 300))
	}
	return strings.TrimRight(b.String(), "\n")
}

// SpeakerRequest — уведомление организатору о новой заявке.
func SpeakerRequest(sp *members.Speaker) string {
	return fmt.Sprintf("Новая заявка спикера: %s (Telegram ID %d).\nОдобрить?", sp.DisplayName(), sp.TelegramID)
}
