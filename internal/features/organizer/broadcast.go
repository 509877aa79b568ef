package organizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const (
	// maxBroadcastLen — лимит Telegram на длину текста сообщения.
	maxBroadcastLen = 4096
	// broadcastPace — пауза между сообщениями рассылки: Telegram пускает
	// не больше ~30 сообщений в секунду от одного бота.
	broadcastPace = 40 * time.Millisecond
)

// StartBroadcast — «Рассылка»: запрашивает текст.
func (h *Handler) StartBroadcast(ctx context.Context, u *bot.Update) error {
	s := dialog.New(u.UserID, dialog.KindBroadcast, dialog.StateBroadcastText)
	if err := h.dialogs.Save(ctx, s); err != nil {
		return err
	}
	telegram.SendText(h.sender, u.ChatID,
		"Введите текст рассылки одним сообщением. Его получат все пользователи бота.\n\nЧтобы отменить, отправьте /cancel")
	return nil
}

// HandleBroadcast отправляет текст всем пользователям, кроме автора.
func (h *Handler) HandleBroadcast(ctx context.Context, u *bot.Update, s *dialog.Session) error {
	if u.User == nil || !u.User.IsOrganizer {
		telegram.SendText(h.sender, u.ChatID, ui.MsgOrganizerOnly)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}

	text := strings.TrimSpace(u.Text)
	if text == "" {
		telegram.SendText(h.sender, u.ChatID, "Текст рассылки не может быть пустым.")
		return nil
	}
	if len([]rune(text)) > maxBroadcastLen {
		telegram.SendText(h.sender, u.ChatID,
			fmt.Sprintf("Слишком длинный текст (максимум %d символов). Сократите его и отправьте снова.", maxBroadcastLen))
		return nil
	}

	// сессию закрываем до отправки: повторный текст не должен уйти второй раз
	if err := h.dialogs.End(ctx, u.UserID, s.Kind); err != nil {
		return err
	}

	users, err := h.members.Users(ctx)
	if err != nil {
		return err
	}

	var total, delivered int
	var interrupted bool
	for _, user := range users {
		if user.TelegramID == u.UserID {
			continue
		}
		if total > 0 {
			if err := h.waitPace(ctx); err != nil {
				interrupted = true
				break
			}
		}
		total++
		if _, err := h.sender.Send(tgbotapi.NewMessage(user.TelegramID, text)); err != nil {
			log.WithError(err).WithField("user_id", user.TelegramID).Warn("Рассылка: сообщение не доставлено")
			continue
		}
		delivered++
	}

	if interrupted {
		log.WithFields(log.Fields{
			"organizer_id": u.UserID,
			"delivered":    delivered,
		}).Warn("Рассылка прервана")
		ui.ShowMenu(h.sender, u.ChatID,
			fmt.Sprintf("Рассылка прервана: доставлено %d.", delivered), members.RoleOrganizer)
		return nil
	}

	log.WithFields(log.Fields{
		"organizer_id": u.UserID,
		"delivered":    delivered,
		"total":        total,
	}).Info("Рассылка завершена")

	ui.ShowMenu(h.sender, u.ChatID,
		fmt.Sprintf("Рассылка завершена: доставлено %d из %d.", delivered, total), members.RoleOrganizer)
	return nil
}

// waitPace выдерживает паузу перед следующим сообщением рассылки.
func (h *Handler) waitPace(ctx context.Context) error {
	if h.pace <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(h.pace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
