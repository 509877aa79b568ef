// Package ui собирает клавиатуры и тексты ответов бота.
package ui

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
)

// Подписи кнопок главного меню. Роутер сравнивает их без учёта регистра.
const (
	BtnEvents   = "Мероприятия"
	BtnActual   = "Актуалочка"
	BtnSchedule = "Расписание"
	BtnDonate   = "Поддержать"

	BtnStartTalk   = "Начать доклад"
	BtnMyQuestions = "Мои вопросы"
	BtnFinishTalk  = "Завершить доклад"

	BtnManageSpeakers  = "Управление спикерами"
	BtnReserve         = "Добавить в резерв"
	BtnSpeakerRequests = "Заявки спикеров"
	BtnBroadcast       = "Рассылка"
)

// Callback data inline-кнопок. Префиксы с ":" на конце — роуты с параметром.
const (
	CbRoleGuest     = "role:guest"
	CbRoleSpeaker   = "role:speaker"
	CbRoleOrganizer = "role:organizer"

	CbRegEvent  = "reg:event:"
	CbRegStack  = "reg:stack:"
	CbRegCancel = "reg:cancel"

	CbAsk       = "q:start"
	CbAskCancel = "q:cancel"

	CbTimeline = "sched:full"
	CbNetwork  = "network:start"

	CbSpeakerApprove = "speaker:approve:"
	CbSpeakerReject  = "speaker:reject:"

	CbManageEvent   = "mng:event:"
	CbManageSpeaker = "mng:speaker:"
	CbManageBack    = "mng:back"
	CbManageCancel  = "mng:cancel"
)

// MainKeyboard — постоянное меню под полем ввода для роли.
func MainKeyboard(role members.Role) tgbotapi.ReplyKeyboardMarkup {
	var kb tgbotapi.ReplyKeyboardMarkup
	switch role {
	case members.RoleOrganizer:
		kb = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnManageSpeakers),
				tgbotapi.NewKeyboardButton(BtnReserve),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnSpeakerRequests),
				tgbotapi.NewKeyboardButton(BtnBroadcast),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnSchedule),
			),
		)
	case members.RoleSpeaker:
		kb = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnStartTalk),
				tgbotapi.NewKeyboardButton(BtnMyQuestions),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnFinishTalk),
				tgbotapi.NewKeyboardButton(BtnSchedule),
			),
		)
	default:
		kb = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnEvents),
				tgbotapi.NewKeyboardButton(BtnActual),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnSchedule),
				tgbotapi.NewKeyboardButton(BtnDonate),
			),
		)
	}
	kb.ResizeKeyboard = true
	return kb
}

// RoleChoice — выбор роли при первом /start.
func RoleChoice() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Я Гость", CbRoleGuest)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Я Спикер", CbRoleSpeaker)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Я Организатор", CbRoleOrganizer)),
	)
}

// ActualMenu — раздел «Актуалочка» для гостя.
func ActualMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Задать вопрос", CbAsk)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Хронология", CbTimeline)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Найти собеседника", CbNetwork)),
	)
}

// EventChoice — список мероприятий кнопками «Название (дата)».
// cancelData пустой — без кнопки отмены.
func EventChoice(list []*events.Event, prefix, cancelData string, loc *time.Location) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list)+1)
	for _, ev := range list {
		label := fmt.Sprintf("%s (%s)", ev.Name, common.FormatDate(ev.StartAt, loc))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", prefix, ev.ID)),
		))
	}
	if cancelData != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Отмена", cancelData),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// SpeakerChoice — список одобренных спикеров с кнопками «Назад» и «Отмена».
func SpeakerChoice(list []*members.Speaker) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list)+2)
	for _, sp := range list {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(sp.DisplayName(), fmt.Sprintf("%s%d", CbManageSpeaker, sp.ID)),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("<< Назад к выбору мероприятия", CbManageBack)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Отмена", CbManageCancel)),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// StackChoice — выбор стека на последнем шаге регистрации.
func StackChoice() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(members.StackLabel(members.StackBackend), CbRegStack+members.StackBackend),
			tgbotapi.NewInlineKeyboardButtonData(members.StackLabel(members.StackFrontend), CbRegStack+members.StackFrontend),
			tgbotapi.NewInlineKeyboardButtonData(members.StackLabel(members.StackFullStack), CbRegStack+members.StackFullStack),
		),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Отмена", CbRegCancel)),
	)
}

// CancelButton — одна кнопка отмены для шагов с текстовым вводом.
func CancelButton(data string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Отмена", data)),
	)
}

// SpeakerDecision — кнопки организатора для заявки спикера.
func SpeakerDecision(speakerID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Одобрить", fmt.Sprintf("%s%d", CbSpeakerApprove, speakerID)),
			tgbotapi.NewInlineKeyboardButtonData("Отклонить", fmt.Sprintf("%s%d", CbSpeakerReject, speakerID)),
		),
	)
}
