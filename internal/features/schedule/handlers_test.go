package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymeetup.ru/meetup-bot/internal/bot/bottest"
	"pymeetup.ru/meetup-bot/internal/features/schedule"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const (
	guestTG   = 700
	speakerTG = 500
)

func setup(t *testing.T) *bottest.Harness {
	h := bottest.New(t)
	src := schedule.NewDBSource(h.Events)
	schedule.NewHandler(h.Sender, src, h.Members, h.Events, bottest.Loc).Register(h.Router)
	return h
}

func TestShowEmptySchedule(t *testing.T) {
	h := setup(t)

	h.Text(guestTG, "/schedule")

	assert.Contains(t, h.Sender.LastText(), "программа мероприятия пока не загружена")
}

func TestShowScheduleFromDB(t *testing.T) {
	h := setup(t)
	ev := h.Store.AddEvent("Python Meetup", h.At(10, 0), h.At(18, 0))
	sp := h.Speaker(speakerTG, "Анна")
	h.Talk(ev.ID, sp.ID, "Asyncio", h.At(10, 0), h.At(10, 45))

	for _, trigger := range []func(){
		func() { h.Text(guestTG, "/schedule") },
		func() { h.Text(guestTG, ui.BtnSchedule) },
		func() { h.Click(guestTG, ui.CbTimeline) },
	} {
		h.Sender.Reset()
		trigger()
		text := h.Sender.LastText()
		assert.Contains(t, text, "Python Meetup, 01.06.2025")
		assert.Contains(t, text, "Время доклада : 10:00 - 10:45\nИмя докладчика: Анна\nТема: Asyncio")
	}
}

func TestAskWithoutText(t *testing.T) {
	h := setup(t)

	h.Text(guestTG, "/ask")

	assert.Contains(t, h.Sender.LastText(), "после команды /ask")
}

func TestAskWithoutCurrentTalk(t *testing.T) {
	h := setup(t)

	h.Text(guestTG, "/ask Что такое GIL?")

	assert.Contains(t, h.Sender.LastText(), "нет активных докладов")
}

func TestAskStoresQuestionForGuest(t *testing.T) {
	h := setup(t)
	ev := h.Store.AddEvent("Python Meetup", h.At(10, 0), h.At(18, 0))
	sp := h.Speaker(speakerTG, "Анна")
	h.Talk(ev.ID, sp.ID, "Asyncio", h.At(10, 0), h.At(10, 45))
	h.Guest(guestTG, "Иван")
	h.Now = h.At(10, 20)

	h.Text(guestTG, "/ask Что такое GIL?")

	assert.Equal(t, "Спасибо за ваш вопрос к докладу «Asyncio» (спикер: Анна)!\nВаш вопрос: «Что такое GIL?» был отправлен.",
		h.Sender.LastText())
	qs := h.Store.Questions()
	require.Len(t, qs, 1)
	assert.Equal(t, "Что такое GIL?", qs[0].Text)
	require.Len(t, h.Sender.TextsTo(speakerTG), 1)
	assert.Contains(t, h.Sender.TextsTo(speakerTG)[0], "Что такое GIL?")
}

func TestAskWithoutGuestProfileOnlyAcknowledges(t *testing.T) {
	h := setup(t)
	ev := h.Store.AddEvent("Python Meetup", h.At(10, 0), h.At(18, 0))
	sp := h.Speaker(speakerTG, "Анна")
	h.Talk(ev.ID, sp.ID, "Asyncio", h.At(10, 0), h.At(10, 45))
	h.Now = h.At(10, 20)

	h.Text(guestTG, "/ask Вопрос")

	assert.Contains(t, h.Sender.LastText(), "Спасибо за ваш вопрос")
	assert.Empty(t, h.Store.Questions())
}
