// Package roles — выбор роли при /start: гость, спикер (заявка организаторам)
// или организатор (по паролю ORGANIZER_PASSWORD).
package roles

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const (
	msgChooseRole      = "Добро пожаловать! Пожалуйста, выберите вашу роль:"
	msgGuestChosen     = "Вы выбрали: Я Гость. Добро пожаловать!"
	msgSpeakerChosen   = "Вы подтвердили роль: Спикер. Добро пожаловать!"
	msgSpeakerSent     = "Заявка спикера отправлена организаторам. Мы сообщим, когда её рассмотрят."
	msgSpeakerPending  = "Ваша заявка спикера уже на рассмотрении у организаторов. Пожалуйста, дождитесь решения."
	msgAskPassword     = "Вы выбрали: Я Организатор.\nДля подтверждения вашей роли, пожалуйста, введите пароль организатора:"
	msgWrongPassword   = "Неверный пароль. Пожалуйста, попробуйте ввести пароль еще раз."
	msgPasswordCorrect = "Пароль верный! Вы вошли как Организатор."
)

// DeepLinkFunc обрабатывает параметр /start <payload>. handled=false —
// показываем обычное приветствие.
type DeepLinkFunc func(ctx context.Context, u *bot.Update, payload string) (handled bool, err error)

type deepLink struct {
	prefix  string
	handler DeepLinkFunc
}

// Handler — /start, /help и диалог выбора роли.
type Handler struct {
	sender   telegram.Sender
	members  *members.Service
	dialogs  dialog.Store
	password string

	deepLinks []deepLink
}

func NewHandler(sender telegram.Sender, memberService *members.Service, dialogs dialog.Store, password string) *Handler {
	return &Handler{
		sender:   sender,
		members:  memberService,
		dialogs:  dialogs,
		password: strings.TrimSpace(password),
	}
}

// OnDeepLink регистрирует обработчик ссылок вида t.me/<bot>?start=<prefix><payload>.
func (h *Handler) OnDeepLink(prefix string, fn DeepLinkFunc) {
	h.deepLinks = append(h.deepLinks, deepLink{prefix: prefix, handler: fn})
}

func (h *Handler) Register(r *bot.Router) {
	r.Command("start", h.Start)
	r.Command("help", h.Help)
	r.Callback(ui.CbRoleGuest, h.ChooseGuest)
	r.Callback(ui.CbRoleSpeaker, h.ChooseSpeaker)
	r.Callback(ui.CbRoleOrganizer, h.ChooseOrganizer)
	r.Dialog(dialog.KindOrganizerAuth, h.HandlePassword)
}

// Start — /start. Если роль уже известна, сразу показываем её меню.
func (h *Handler) Start(ctx context.Context, u *bot.Update) error {
	// повторный /start начинает выбор роли заново
	if err := h.endAuth(ctx, u); err != nil {
		return err
	}
	if len(u.Args) > 0 {
		for _, dl := range h.deepLinks {
			if !strings.HasPrefix(u.Args[0], dl.prefix) {
				continue
			}
			handled, err := dl.handler(ctx, u, strings.TrimPrefix(u.Args[0], dl.prefix))
			if err != nil || handled {
				return err
			}
		}
	}

	role, err := h.members.ResolveRole(ctx, u.User)
	if err != nil {
		return err
	}
	if role != members.RoleNone {
		log.WithFields(log.Fields{
			"user_id": u.UserID,
			"role":    role.String(),
		}).Debug("Роль определена из БД")
		ui.ShowMenu(h.sender, u.ChatID, ui.Greeting(u.FirstName, role), role)
		return nil
	}

	telegram.SendMarkup(h.sender, u.ChatID, msgChooseRole, ui.RoleChoice())
	return nil
}

func (h *Handler) Help(_ context.Context, u *bot.Update) error {
	telegram.SendText(h.sender, u.ChatID, ui.Help)
	return nil
}

// ChooseGuest создаёт профиль гостя (get-or-create).
func (h *Handler) ChooseGuest(ctx context.Context, u *bot.Update) error {
	if err := h.endAuth(ctx, u); err != nil {
		return err
	}
	if _, err := h.members.EnsureGuest(ctx, u.User); err != nil {
		return err
	}
	telegram.Edit(h.sender, u.Request, msgGuestChosen, nil)
	ui.ShowMenu(h.sender, u.ChatID,
		fmt.Sprintf("Добро пожаловать, %s! Вы вошли как Гость.", u.FirstName), members.RoleGuest)
	return nil
}

// ChooseSpeaker создаёт заявку спикера и уведомляет организаторов.
func (h *Handler) ChooseSpeaker(ctx context.Context, u *bot.Update) error {
	if err := h.endAuth(ctx, u); err != nil {
		return err
	}
	sp, status, err := h.members.RequestSpeaker(ctx, u.User)
	if err != nil {
		return err
	}

	switch status {
	case members.SpeakerRequestApproved:
		name := u.FirstName
		if sp != nil && sp.Name != "" {
			name = sp.Name
		}
		telegram.Edit(h.sender, u.Request, msgSpeakerChosen, nil)
		ui.ShowMenu(h.sender, u.ChatID,
			fmt.Sprintf("Добро пожаловать, %s! Вы вошли как Спикер.", name), members.RoleSpeaker)
	case members.SpeakerRequestPending:
		telegram.Edit(h.sender, u.Request, msgSpeakerPending, nil)
	default:
		telegram.Edit(h.sender, u.Request, msgSpeakerSent, nil)
		return h.notifyOrganizers(ctx, sp)
	}
	return nil
}

// endAuth закрывает незавершённый ввод пароля организатора.
func (h *Handler) endAuth(ctx context.Context, u *bot.Update) error {
	if err := h.dialogs.End(ctx, u.UserID, dialog.KindOrganizerAuth); err != nil {
		return fmt.Errorf("ошибка завершения диалога пароля: %w", err)
	}
	return nil
}

func (h *Handler) notifyOrganizers(ctx context.Context, sp *members.Speaker) error {
	orgs, err := h.members.Organizers(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения организаторов: %w", err)
	}
	if len(orgs) == 0 {
		log.WithField("speaker_id", sp.ID).Warn("Нет организаторов для рассмотрения заявки спикера")
		return nil
	}
	for _, org := range orgs {
		telegram.SendMarkup(h.sender, org.TelegramID, ui.SpeakerRequest(sp), ui.SpeakerDecision(sp.ID))
	}
	return nil
}

// ChooseOrganizer переводит в ожидание пароля.
func (h *Handler) ChooseOrganizer(ctx context.Context, u *bot.Update) error {
	s := dialog.New(u.UserID, dialog.KindOrganizerAuth, dialog.StatePassword)
	if err := h.dialogs.Save(ctx, s); err != nil {
		return err
	}
	telegram.Edit(h.sender, u.Request, msgAskPassword, nil)
	return nil
}

// HandlePassword проверяет пароль. Попыток сколько угодно.
func (h *Handler) HandlePassword(ctx context.Context, u *bot.Update, s *dialog.Session) error {
	if h.password == "" {
		log.WithField("user_id", u.UserID).Error("ORGANIZER_PASSWORD не задан")
		telegram.SendText(h.sender, u.ChatID, ui.MsgConfigError)
		return h.dialogs.End(ctx, u.UserID, s.Kind)
	}

	h.deleteMessage(u)

	if !CheckPassword(strings.TrimSpace(u.Text), h.password) {
		log.WithField("user_id", u.UserID).Warn("Неверный пароль организатора")
		telegram.SendText(h.sender, u.ChatID, msgWrongPassword)
		return nil
	}

	changed, err := h.members.PromoteOrganizer(ctx, u.User)
	if err != nil {
		return err
	}
	if err := h.dialogs.End(ctx, u.UserID, s.Kind); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id": u.UserID,
		"changed": changed,
	}).Info("Пароль организатора принят")

	telegram.SendText(h.sender, u.ChatID, msgPasswordCorrect)
	ui.ShowMenu(h.sender, u.ChatID, ui.Greeting(u.FirstName, members.RoleOrganizer), members.RoleOrganizer)
	return nil
}

// deleteMessage убирает сообщение с паролем из истории чата.
func (h *Handler) deleteMessage(u *bot.Update) {
	if u.MessageID == 0 {
		return
	}
	if _, err := h.sender.Request(tgbotapi.NewDeleteMessage(u.ChatID, u.MessageID)); err != nil {
		log.WithError(err).WithField("user_id", u.UserID).Debug("Не удалось удалить сообщение с паролем")
	}
}
