package questions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymeetup.ru/meetup-bot/internal/bot/bottest"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/questions"
	"pymeetup.ru/meetup-bot/internal/testutil"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const (
	guestTG   = 100
	speakerTG = 500
)

func setup(t *testing.T) (*bottest.Harness, *events.SpeakerTalk) {
	h := bottest.New(t)
	questions.NewHandler(h.Sender, h.Members, h.Events, h.Dialogs).Register(h.Router)

	ev := h.Store.AddEvent("PythonMeetup", h.At(9, 0), h.At(18, 0))
	sp := h.Speaker(speakerTG, "Анна")
	st := h.Talk(ev.ID, sp.ID, "Асинхронный Python", h.At(10, 0), h.At(10, 45))
	h.Guest(guestTG, "Иван")
	h.Now = h.At(10, 15)
	return h, st
}

func TestActualMenu(t *testing.T) {
	h, _ := setup(t)

	h.Text(guestTG, ui.BtnActual)

	assert.Equal(t, []string{ui.CbAsk, ui.CbTimeline, ui.CbNetwork}, testutil.InlineData(h.Sender.LastMarkup()))
}

func TestAskQuestion(t *testing.T) {
	h, st := setup(t)

	h.Click(guestTG, ui.CbAsk)
	assert.Contains(t, h.Sender.LastText(), "Доклад «Асинхронный Python» (спикер: Анна)")

	h.Text(guestTG, "Когда стоит брать asyncio?")

	qs := h.Store.Questions()
	require.Len(t, qs, 1)
	assert.Equal(t, st.ID, qs[0].SpeakerTalkID)
	assert.Equal(t, st.SpeakerID, qs[0].SpeakerID)
	assert.Equal(t, "Когда стоит брать asyncio?", qs[0].Text)

	assert.Nil(t, h.Session(guestTG, dialog.KindQuestion))
	assert.Contains(t, h.Sender.TextsTo(guestTG)[len(h.Sender.TextsTo(guestTG))-1], "Спасибо за ваш вопрос")
	require.Len(t, h.Sender.TextsTo(speakerTG), 1)
	assert.Contains(t, h.Sender.TextsTo(speakerTG)[0], "Когда стоит брать asyncio?")
}

func TestAskWithoutCurrentTalk(t *testing.T) {
	h, _ := setup(t)
	h.Now = h.At(12, 0)

	h.Click(guestTG, ui.CbAsk)

	assert.Contains(t, h.Sender.LastText(), "нет активных докладов")
	assert.Nil(t, h.Session(guestTG, dialog.KindQuestion))
}

func TestQuestionRejectedAfterTalkFinished(t *testing.T) {
	h, st := setup(t)

	h.Click(guestTG, ui.CbAsk)
	h.Store.SetTalkFinished(st.ID, true)
	h.Text(guestTG, "Успею?")

	assert.Equal(t, "К сожалению, доклад уже завершён, и вопрос не был отправлен.", h.Sender.LastText())
	assert.Empty(t, h.Store.Questions())
	assert.Empty(t, h.Sender.TextsTo(speakerTG))
	assert.Nil(t, h.Session(guestTG, dialog.KindQuestion))
}

func TestQuestionRejectedAfterWindowClosed(t *testing.T) {
	h, _ := setup(t)

	h.Click(guestTG, ui.CbAsk)
	h.Now = h.At(10, 46)
	h.Text(guestTG, "Успею?")

	assert.Contains(t, h.Sender.LastText(), "доклад уже завершён")
	assert.Empty(t, h.Store.Questions())
}

func TestCommandIsNotAQuestion(t *testing.T) {
	h, _ := setup(t)

	h.Click(guestTG, ui.CbAsk)
	h.Text(guestTG, "/unknown")

	assert.Empty(t, h.Store.Questions())
	assert.NotNil(t, h.Session(guestTG, dialog.KindQuestion))
}

func TestCancelQuestion(t *testing.T) {
	h, _ := setup(t)

	h.Click(guestTG, ui.CbAsk)
	h.Click(guestTG, ui.CbAskCancel)
	h.Text(guestTG, "это уже не вопрос")

	assert.Empty(t, h.Store.Questions())
	assert.Nil(t, h.Session(guestTG, dialog.KindQuestion))
	assert.Equal(t, ui.MsgUnknown, h.Sender.LastText())
}
