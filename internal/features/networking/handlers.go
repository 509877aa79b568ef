// Package networking — «Найти собеседника»: гость один раз рассказывает о себе
// и получает список других гостей, заполнивших анкету.
package networking

import (
	"context"
	"errors"
	"strings"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const maxBioLen = 1000

const (
	msgAskBio   = "Расскажите немного о себе: чем занимаетесь и о чём хотели бы поговорить. Этот текст увидят другие гости.\n\nЧтобы отменить, отправьте /cancel"
	msgEmptyBio = "Рассказ о себе не может быть пустым. Пожалуйста, напишите пару предложений:"
	msgLongBio  = "Слишком длинный текст. Пожалуйста, уложитесь в 1000 символов."
	msgBioSaved = "Спасибо! Теперь другие гости смогут вас найти."
)

type Handler struct {
	sender  telegram.Sender
	members *members.Service
	dialogs dialog.Store
}

func NewHandler(sender telegram.Sender, memberService *members.Service, dialogs dialog.Store) *Handler {
	return &Handler{
		sender:  sender,
		members: memberService,
		dialogs: dialogs,
	}
}

func (h *Handler) Register(r *bot.Router) {
	r.Callback(ui.CbNetwork, h.Start)
	r.Dialog(dialog.KindNetworking, h.HandleBio)
}

// Start спрашивает био, если его ещё нет, иначе сразу показывает собеседников.
func (h *Handler) Start(ctx context.Context, u *bot.Update) error {
	guest, err := h.members.Guest(ctx, u.User)
	if errors.Is(err, common.ErrNotFound) {
		telegram.SendMarkup(h.sender, u.ChatID, ui.MsgNeedStart, ui.RoleChoice())
		return nil
	}
	if err != nil {
		return err
	}

	if guest.Bio != "" {
		return h.showPartners(ctx, u, guest)
	}

	s := dialog.New(u.UserID, dialog.KindNetworking, dialog.StateBio)
	if err := h.dialogs.Save(ctx, s); err != nil {
		return err
	}
	telegram.Edit(h.sender, u.Request, msgAskBio, nil)
	return nil
}

func (h *Handler) HandleBio(ctx context.Context, u *bot.Update, s *dialog.Session) error {
	bio := strings.TrimSpace(u.Text)
	if bio == "" {
		telegram.SendText(h.sender, u.ChatID, msgEmptyBio)
		return nil
	}
	if len([]rune(bio)) > maxBioLen {
		telegram.SendText(h.sender, u.ChatID, msgLongBio)
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
	if err := h.members.SaveBio(ctx, guest, bio); err != nil {
		return err
	}
	if err := h.dialogs.End(ctx, u.UserID, s.Kind); err != nil {
		return err
	}

	telegram.SendText(h.sender, u.ChatID, msgBioSaved)
	return h.showPartners(ctx, u, guest)
}

func (h *Handler) showPartners(ctx context.Context, u *bot.Update, guest *members.Guest) error {
	list, err := h.members.Partners(ctx, guest)
	if err != nil {
		return err
	}
	telegram.SendText(h.sender, u.ChatID, ui.Partners(list))
	return nil
}
