package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
)

// Update — входящий апдейт вместе с пользователем из БД.
type Update struct {
	telegram.Request
	User *members.User
}

// HandlerFunc обрабатывает команду, кнопку меню, callback или платёж.
// Возвращённая ошибка логируется, пользователь получает «попробуйте позже».
type HandlerFunc func(ctx context.Context, u *Update) error

// DialogFunc обрабатывает свободный текст в активном диалоге.
type DialogFunc func(ctx context.Context, u *Update, s *dialog.Session) error

// CallbackArg возвращает часть callback data после prefix.
func (u *Update) CallbackArg(prefix string) string {
	return strings.TrimPrefix(u.CallbackData, prefix)
}

// CallbackInt64 разбирает числовой параметр callback data ("reg:event:12" → 12).
func (u *Update) CallbackInt64(prefix string) (int64, error) {
	raw := u.CallbackArg(prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректный callback %q: %w", u.CallbackData, err)
	}
	return id, nil
}

// ArgText — аргументы команды одной строкой.
func (u *Update) ArgText() string {
	return strings.Join(u.Args, " ")
}
