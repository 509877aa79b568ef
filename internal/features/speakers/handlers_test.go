package speakers_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymeetup.ru/meetup-bot/internal/bot/bottest"
	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/features/speakers"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const (
	orgTG     = 1
	speakerTG = 500
)

func setup(t *testing.T) *bottest.Harness {
	h := bottest.New(t)
	speakers.NewHandler(h.Sender, h.Members, h.Events, bottest.Loc).Register(h.Router)
	h.Organizer(orgTG)
	return h
}

func request(t *testing.T, h *bottest.Harness, tgID int64) *members.Speaker {
	ctx := context.Background()
	u, err := h.Members.EnsureUser(ctx, tgID, "", "Анна")
	require.NoError(t, err)
	sp, status, err := h.Members.RequestSpeaker(ctx, u)
	require.NoError(t, err)
	require.Equal(t, members.SpeakerRequestCreated, status)
	return sp
}

func TestApproveSpeaker(t *testing.T) {
	h := setup(t)
	sp := request(t, h, speakerTG)

	h.Click(orgTG, fmt.Sprintf("%s%d", ui.CbSpeakerApprove, sp.ID))

	assert.True(t, h.User(speakerTG).IsSpeaker)
	assert.Equal(t, []string{"Ваша заявка спикера одобрена! Вы вошли как Спикер."}, h.Sender.TextsTo(speakerTG))

	h.Sender.Reset()
	h.Click(orgTG, fmt.Sprintf("%s%d", ui.CbSpeakerApprove, sp.ID))
	assert.Contains(t, h.Sender.LastText(), "уже одобрен")
	assert.Empty(t, h.Sender.TextsTo(speakerTG))
}

func TestRejectSpeaker(t *testing.T) {
	h := setup(t)
	sp := request(t, h, speakerTG)

	h.Click(orgTG, fmt.Sprintf("%s%d", ui.CbSpeakerReject, sp.ID))

	_, err := h.Members.Speaker(context.Background(), sp.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.False(t, h.User(speakerTG).IsSpeaker)
	assert.Equal(t, []string{"К сожалению, организаторы отклонили вашу заявку спикера."}, h.Sender.TextsTo(speakerTG))

	h.Click(orgTG, fmt.Sprintf("%s%d", ui.CbSpeakerReject, sp.ID))
	assert.Contains(t, h.Sender.LastText(), "Заявка не найдена")
}

func TestRejectApprovedSpeakerRefused(t *testing.T) {
	h := setup(t)
	sp := h.Speaker(speakerTG, "Анна")

	h.Click(orgTG, fmt.Sprintf("%s%d", ui.CbSpeakerReject, sp.ID))

	assert.Contains(t, h.Sender.LastText(), "отклонить заявку нельзя")
	_, err := h.Members.Speaker(context.Background(), sp.ID)
	assert.NoError(t, err)
}

func TestDecisionsOrganizerOnly(t *testing.T) {
	h := setup(t)
	sp := request(t, h, speakerTG)

	h.Click(200, fmt.Sprintf("%s%d", ui.CbSpeakerApprove, sp.ID))

	assert.Equal(t, ui.MsgOrganizerOnly, h.Sender.LastText())
	assert.False(t, h.User(speakerTG).IsSpeaker)
}

func TestTalkLifecycle(t *testing.T) {
	h := setup(t)
	sp := h.Speaker(speakerTG, "Анна")
	ev := h.Store.AddEvent("PythonMeetup", h.At(9, 0), h.At(18, 0))
	h.Talk(ev.ID, sp.ID, "Асинхронный Python", h.At(10, 0), h.At(10, 45))

	h.Now = h.At(9, 50)
	h.Text(speakerTG, ui.BtnStartTalk)
	assert.Equal(t, "Доклад «Асинхронный Python» начат! Гости могут задавать вопросы до 10:35.", h.Sender.LastText())

	h.Text(speakerTG, ui.BtnMyQuestions)
	assert.Equal(t, "К докладу «Асинхронный Python» пока нет вопросов.", h.Sender.LastText())

	h.Text(speakerTG, ui.BtnFinishTalk)
	assert.Contains(t, h.Sender.LastText(), "Доклад «Асинхронный Python» завершён")

	h.Text(speakerTG, ui.BtnFinishTalk)
	assert.Equal(t, "Сейчас у вас нет идущего доклада.", h.Sender.LastText())

	h.Text(speakerTG, ui.BtnStartTalk)
	assert.Equal(t, "У вас нет запланированных докладов.", h.Sender.LastText())
}

func TestStartTalkConflict(t *testing.T) {
	h := setup(t)
	first := h.Speaker(400, "Борис")
	second := h.Speaker(speakerTG, "Анна")
	ev := h.Store.AddEvent("PythonMeetup", h.At(9, 0), h.At(18, 0))
	h.Talk(ev.ID, first.ID, "Типизация", h.At(10, 0), h.At(10, 30))
	h.Talk(ev.ID, second.ID, "Асинхронный Python", h.At(10, 30), h.At(11, 0))

	h.Now = h.At(10, 20)
	h.Text(speakerTG, ui.BtnStartTalk)

	assert.Contains(t, h.Sender.LastText(), "ещё не завершён доклад «Типизация» (спикер: Борис, 10:00–10:30)")

	h.Text(400, ui.BtnStartTalk)
	h.Text(400, ui.BtnFinishTalk)
	h.Text(speakerTG, ui.BtnStartTalk)
	assert.Contains(t, h.Sender.LastText(), "Доклад «Асинхронный Python» начат!")
}

func TestSpeakerMenuRequiresSpeaker(t *testing.T) {
	h := setup(t)

	h.Text(200, ui.BtnStartTalk)

	assert.Equal(t, "Эта функция доступна только спикерам.", h.Sender.LastText())
}
