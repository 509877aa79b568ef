package networking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymeetup.ru/meetup-bot/internal/bot/bottest"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/networking"
	"pymeetup.ru/meetup-bot/internal/ui"
)

func setup(t *testing.T) *bottest.Harness {
	h := bottest.New(t)
	networking.NewHandler(h.Sender, h.Members, h.Dialogs).Register(h.Router)
	return h
}

func TestBioIntakeThenPartners(t *testing.T) {
	h := setup(t)
	other := h.Guest(200, "Мария")
	require.NoError(t, h.Members.SaveBio(context.Background(), other, "Пишу на Django"))
	h.Guest(100, "Иван")

	h.Click(100, ui.CbNetwork)
	require.NotNil(t, h.Session(100, dialog.KindNetworking))

	h.Text(100, "  Люблю FastAPI  ")

	assert.Nil(t, h.Session(100, dialog.KindNetworking))
	assert.True(t, h.Sender.AnyContains("Спасибо! Теперь другие гости смогут вас найти."))
	assert.Contains(t, h.Sender.LastText(), "Пишу на Django")
	assert.NotContains(t, h.Sender.LastText(), "Люблю FastAPI")

	g, err := h.Members.Guest(context.Background(), h.User(100))
	require.NoError(t, err)
	assert.Equal(t, "Люблю FastAPI", g.Bio)
}

func TestFilledBioSkipsIntake(t *testing.T) {
	h := setup(t)
	g := h.Guest(100, "Иван")
	require.NoError(t, h.Members.SaveBio(context.Background(), g, "Бэкенд"))

	h.Click(100, ui.CbNetwork)

	assert.Nil(t, h.Session(100, dialog.KindNetworking))
	assert.Equal(t, "Пока никто не рассказал о себе. Загляните позже!", h.Sender.LastText())
}

func TestEmptyBioReprompts(t *testing.T) {
	h := setup(t)
	h.Guest(100, "Иван")

	h.Click(100, ui.CbNetwork)
	h.Text(100, "   ")

	assert.Contains(t, h.Sender.LastText(), "не может быть пустым")
	assert.NotNil(t, h.Session(100, dialog.KindNetworking))
}

func TestNetworkingRequiresGuest(t *testing.T) {
	h := setup(t)

	h.Click(100, ui.CbNetwork)

	assert.Equal(t, ui.MsgNeedStart, h.Sender.LastText())
}
