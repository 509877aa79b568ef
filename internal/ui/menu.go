package ui

import (
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
)

// Фразы возврата в меню после завершения диалога.
const (
	BackToOrganizerMenu = "Вы вернулись в меню организатора."
	BackToMenu          = "Вы вернулись в главное меню."
)

// ShowMenu отправляет text вместе с клавиатурой роли.
func ShowMenu(s telegram.Sender, chatID int64, text string, role members.Role) {
	telegram.SendMarkup(s, chatID, text, MainKeyboard(role))
}
