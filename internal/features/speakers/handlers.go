// Package speakers — решения организаторов по заявкам спикеров
// и меню спикера: начать доклад, вопросы, завершить доклад.
package speakers

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const (
	msgSpeakerOnly      = "Эта функция доступна только спикерам."
	msgRequestGone      = "Заявка не найдена: возможно, её уже рассмотрел другой организатор."
	msgNoTalks          = "У вас нет запланированных докладов."
	msgNoRunningTalk    = "Сейчас у вас нет идущего доклада."
	msgApplicantApprove = "Ваша заявка спикера одобрена! Вы вошли как Спикер."
	msgApplicantReject  = "К сожалению, организаторы отклонили вашу заявку спикера."
)

type Handler struct {
	sender  telegram.Sender
	members *members.Service
	events  *events.Service
	loc     *time.Location
}

func NewHandler(sender telegram.Sender, memberService *members.Service, eventService *events.Service, loc *time.Location) *Handler {
	return &Handler{
		sender:  sender,
		members: memberService,
		events:  eventService,
		loc:     loc,
	}
}

func (h *Handler) Register(r *bot.Router) {
	r.CallbackPrefix(ui.CbSpeakerApprove, h.Approve)
	r.CallbackPrefix(ui.CbSpeakerReject, h.Reject)
	r.Button(ui.BtnStartTalk, h.StartTalk)
	r.Button(ui.BtnMyQuestions, h.MyQuestions)
	r.Button(ui.BtnFinishTalk, h.FinishTalk)
}

// --- решения организаторов ---

func (h *Handler) Approve(ctx context.Context, u *bot.Update) error {
	if !u.User.IsOrganizer {
		telegram.SendText(h.sender, u.ChatID, ui.MsgOrganizerOnly)
		return nil
	}
	id, err := u.CallbackInt64(ui.CbSpeakerApprove)
	if err != nil {
		return err
	}

	before, err := h.members.Speaker(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		telegram.Edit(h.sender, u.Request, msgRequestGone, nil)
		return nil
	}
	if err != nil {
		return err
	}
	if before.Approved {
		telegram.Edit(h.sender, u.Request, fmt.Sprintf("Спикер %s уже одобрен.", before.DisplayName()), nil)
		return nil
	}

	sp, err := h.members.ApproveSpeaker(ctx, id)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"organizer_id": u.UserID,
		"speaker_id":   sp.ID,
	}).Info("Заявка спикера одобрена")

	telegram.Edit(h.sender, u.Request, fmt.Sprintf("Спикер %s одобрен.", sp.DisplayName()), nil)
	ui.ShowMenu(h.sender, sp.TelegramID, msgApplicantApprove, members.RoleSpeaker)
	return nil
}

// Reject удаляет заявку. Уже одобренного спикера не трогаем.
func (h *Handler) Reject(ctx context.Context, u *bot.Update) error {
	if !u.User.IsOrganizer {
		telegram.SendText(h.sender, u.ChatID, ui.MsgOrganizerOnly)
		return nil
	}
	id, err := u.CallbackInt64(ui.CbSpeakerReject)
	if err != nil {
		return err
	}

	sp, approved, err := h.members.RejectSpeaker(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		telegram.Edit(h.sender, u.Request, msgRequestGone, nil)
		return nil
	}
	if err != nil {
		return err
	}
	if approved {
		telegram.Edit(h.sender, u.Request,
			fmt.Sprintf("Спикер %s уже одобрен, отклонить заявку нельзя.", sp.DisplayName()), nil)
		return nil
	}

	log.WithFields(log.Fields{
		"organizer_id": u.UserID,
		"speaker_id":   sp.ID,
	}).Info("Заявка спикера отклонена")
	telegram.Edit(h.sender, u.Request, fmt.Sprintf("Заявка %s отклонена.", sp.DisplayName()), nil)
	telegram.SendText(h.sender, sp.TelegramID, msgApplicantReject)
	return nil
}

// --- меню спикера ---

func (h *Handler) speaker(ctx context.Context, u *bot.Update) (*members.Speaker, error) {
	if !u.User.IsSpeaker {
		return nil, nil
	}
	sp, err := h.members.SpeakerByUser(ctx, u.User)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return sp, err
}

// StartTalk — «Начать доклад».
func (h *Handler) StartTalk(ctx context.Context, u *bot.Update) error {
	sp, err := h.speaker(ctx, u)
	if err != nil {
		return err
	}
	if sp == nil {
		telegram.SendText(h.sender, u.ChatID, msgSpeakerOnly)
		return nil
	}

	t, err := h.events.StartTalk(ctx, sp.ID)
	if errors.Is(err, common.ErrNoTalks) {
		telegram.SendText(h.sender, u.ChatID, msgNoTalks)
		return nil
	}
	if c, ok := events.IsConflict(err); ok {
		b := c.Blocking
		telegram.SendText(h.sender, u.ChatID, fmt.Sprintf(
			"Нельзя начать доклад: ещё не завершён доклад «%s» (спикер: %s, %s–%s).\nДождитесь его завершения или обратитесь к организаторам.",
			b.Title, b.SpeakerName, common.FormatClock(b.StartAt, h.loc), common.FormatClock(b.EndAt, h.loc)))
		return nil
	}
	if err != nil {
		return err
	}

	telegram.SendText(h.sender, u.ChatID, fmt.Sprintf(
		"Доклад «%s» начат! Гости могут задавать вопросы до %s.", t.Title, common.FormatClock(t.EndAt, h.loc)))
	return nil
}

// MyQuestions — вопросы к идущему (или ближайшему) докладу.
func (h *Handler) MyQuestions(ctx context.Context, u *bot.Update) error {
	sp, err := h.speaker(ctx, u)
	if err != nil {
		return err
	}
	if sp == nil {
		telegram.SendText(h.sender, u.ChatID, msgSpeakerOnly)
		return nil
	}

	t, err := h.events.ActiveTalk(ctx, sp.ID)
	if errors.Is(err, common.ErrNoTalks) {
		telegram.SendText(h.sender, u.ChatID, msgNoTalks)
		return nil
	}
	if err != nil {
		return err
	}
	qs, err := h.events.Questions(ctx, t.ID)
	if err != nil {
		return err
	}
	telegram.SendText(h.sender, u.ChatID, ui.QuestionList(t, qs, h.loc))
	return nil
}

// FinishTalk — «Завершить доклад». После этого вопросы не принимаются.
func (h *Handler) FinishTalk(ctx context.Context, u *bot.Update) error {
	sp, err := h.speaker(ctx, u)
	if err != nil {
		return err
	}
	if sp == nil {
		telegram.SendText(h.sender, u.ChatID, msgSpeakerOnly)
		return nil
	}

	t, err := h.events.FinishTalk(ctx, sp.ID)
	if errors.Is(err, common.ErrNoTalks) {
		telegram.SendText(h.sender, u.ChatID, msgNoRunningTalk)
		return nil
	}
	if err != nil {
		return err
	}
	qs, err := h.events.Questions(ctx, t.ID)
	if err != nil {
		return err
	}
	telegram.SendText(h.sender, u.ChatID, fmt.Sprintf(
		"Доклад «%s» завершён. Спасибо за выступление!\nВсего %s.", t.Title, common.FormatQuestionsCount(len(qs))))
	return nil
}
