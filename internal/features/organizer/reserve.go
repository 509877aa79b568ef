package organizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const (
	keyProspectName    = "name"
	keyProspectContact = "contact"
)

const (
	msgReserveStart = "Вы собираетесь добавить нового потенциального спикера в резерв.\n" +
		"Пожалуйста, введите Имя (или ФИО) спикера.\n\n" +
		"Чтобы отменить, введите /cancel_add_speaker"
	msgReserveEmptyName    = "Имя не может быть пустым. Пожалуйста, введите имя или /cancel_add_speaker."
	msgReserveEmptyContact = "Контактная информация не может быть пустой. Введите контакты или /cancel_add_speaker."
	msgReserveCanceled     = "Добавление нового потенциального спикера отменено."
	msgReserveLost         = "Произошла внутренняя ошибка. Пожалуйста, начните заново."
)

// StartReserve — «Добавить в резерв»: запрашивает имя.
func (h *Handler) StartReserve(ctx context.Context, u *bot.Update) error {
	s := dialog.New(u.UserID, dialog.KindReserve, dialog.StateReserveName)
	if err := h.dialogs.Save(ctx, s); err != nil {
		return err
	}
	telegram.SendText(h.sender, u.ChatID, msgReserveStart)
	return nil
}

// HandleReserve ведёт шаги имя → контакты → заметки.
func (h *Handler) HandleReserve(ctx context.Context, u *bot.Update, s *dialog.Session) error {
	text := strings.TrimSpace(u.Text)

	switch s.State {
	case dialog.StateReserveName:
		if text == "" {
			telegram.SendText(h.sender, u.ChatID, msgReserveEmptyName)
			return nil
		}
		s.Set(keyProspectName, text)
		s.State = dialog.StateReserveContact
		if err := h.dialogs.Save(ctx, s); err != nil {
			return err
		}
		telegram.SendText(h.sender, u.ChatID, fmt.Sprintf("Отлично, имя: %s.\n"+
			"Теперь введите контактную информацию (например, email, ссылка на Telegram/LinkedIn, или телефон).\n\n"+
			"Чтобы отменить, введите /cancel_add_speaker", text))
		return nil

	case dialog.StateReserveContact:
		if text == "" {
			telegram.SendText(h.sender, u.ChatID, msgReserveEmptyContact)
			return nil
		}
		s.Set(keyProspectContact, text)
		s.State = dialog.StateReserveNotes
		if err := h.dialogs.Save(ctx, s); err != nil {
			return err
		}
		telegram.SendText(h.sender, u.ChatID, fmt.Sprintf("Контактная информация сохранена: %s.\n"+
			"Теперь, пожалуйста, введите любые заметки о спикере или темы, которые он мог бы осветить (можно оставить пустым, нажав /skip_notes).\n\n"+
			"Чтобы отменить весь процесс, введите /cancel_add_speaker", text))
		return nil

	case dialog.StateReserveNotes:
		if text == "" {
			telegram.SendText(h.sender, u.ChatID,
				"Заметки не могут быть пустым сообщением. Введите текст или /skip_notes для пропуска, или /cancel_add_speaker для отмены.")
			return nil
		}
		return h.saveProspect(ctx, u, s, text)
	}

	log.WithFields(log.Fields{
		"user_id": u.UserID,
		"state":   s.State,
	}).Warn("Неизвестный шаг добавления в резерв")
	telegram.SendText(h.sender, u.ChatID, msgReserveLost)
	return h.dialogs.End(ctx, u.UserID, s.Kind)
}

// SkipNotes — /skip_notes: сохраняет спикера без заметок.
func (h *Handler) SkipNotes(ctx context.Context, u *bot.Update) error {
	s, err := h.dialogs.Load(ctx, u.UserID, dialog.KindReserve)
	if errors.Is(err, dialog.ErrNoSession) || (err == nil && s.State != dialog.StateReserveNotes) {
		telegram.SendText(h.sender, u.ChatID, ui.MsgUnknown)
		return nil
	}
	if err != nil {
		return err
	}
	return h.saveProspect(ctx, u, s, "")
}

// CancelReserve — /cancel_add_speaker.
func (h *Handler) CancelReserve(ctx context.Context, u *bot.Update) error {
	if _, err := h.dialogs.Load(ctx, u.UserID, dialog.KindReserve); err != nil {
		if errors.Is(err, dialog.ErrNoSession) {
			telegram.SendText(h.sender, u.ChatID, ui.MsgNothingToStop)
			return nil
		}
		return err
	}
	log.WithField("user_id", u.UserID).Info("Организатор отменил добавление в резерв")
	telegram.SendText(h.sender, u.ChatID, msgReserveCanceled)
	return h.backToMenu(ctx, u, dialog.KindReserve)
}

func (h *Handler) saveProspect(ctx context.Context, u *bot.Update, s *dialog.Session, notes string) error {
	name, contact := s.String(keyProspectName), s.String(keyProspectContact)
	if name == "" || contact == "" {
		log.WithField("user_id", u.UserID).Error("Потеряны имя или контакты потенциального спикера")
		telegram.SendText(h.sender, u.ChatID, msgReserveLost)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}

	p := &members.Prospect{
		Name:    name,
		Contact: contact,
		Notes:   notes,
	}
	if u.User != nil {
		p.AddedBy = u.User.ID
	}
	if err := h.members.AddProspect(ctx, p); err != nil {
		telegram.SendText(h.sender, u.ChatID, "Произошла ошибка при сохранении данных. Попробуйте снова.")
		if endErr := h.dialogs.End(ctx, u.UserID, s.Kind); endErr != nil {
			log.WithError(endErr).Warn("Не удалось завершить диалог резерва")
		}
		return err
	}

	if notes == "" {
		telegram.SendText(h.sender, u.ChatID, fmt.Sprintf(
			"Успешно! Потенциальный спикер '%s' добавлен в резерв (без дополнительных заметок).\nКонтакты: %s", name, contact))
	} else {
		telegram.SendText(h.sender, u.ChatID, fmt.Sprintf(
			"Успешно! Потенциальный спикер '%s' добавлен в резерв.\nКонтакты: %s\nЗаметки: %s", name, contact, notes))
	}
	return h.backToMenu(ctx, u, s.Kind)
}
