// Package bottest собирает роутер поверх in-memory хранилищ
// для сквозных тестов диалогов.
package bottest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/testutil"
)

// Harness — роутер с фейковым Telegram и хранилищами в памяти.
type Harness struct {
	t *testing.T

	Store   *testutil.MemStore
	Sender  *testutil.FakeSender
	Dialogs *dialog.MemoryStore
	Members *members.Service
	Events  *events.Service
	Router  *bot.Router

	// Now — «текущее» время для Events. Тест двигает его сам.
	Now time.Time
}

// Loc — часовой пояс, в котором работают тесты фич.
var Loc = time.FixedZone("MSK", 3*60*60)

func New(t *testing.T) *Harness {
	t.Helper()
	store := testutil.NewMemStore()
	sender := testutil.NewFakeSender()
	dialogs := dialog.NewMemoryStore()
	h := &Harness{
		t:       t,
		Store:   store,
		Sender:  sender,
		Dialogs: dialogs,
		Members: members.NewService(store),
		Router:  bot.NewRouter(dialogs, sender),
		Now:     time.Date(2025, 6, 1, 10, 0, 0, 0, Loc),
	}
	h.Events = events.NewService(store).WithClock(func() time.Time { return h.Now })
	return h
}

// At возвращает момент дня h.Now в часовом поясе Loc.
func (h *Harness) At(hour, minute int) time.Time {
	y, m, d := h.Now.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, Loc)
}

// Dispatch прогоняет запрос через роутер так же, как это делает Bot.
func (h *Harness) Dispatch(req telegram.Request) error {
	h.t.Helper()
	if req.ChatID == 0 {
		req.ChatID = req.UserID
	}
	if req.FirstName == "" {
		req.FirstName = "Тест"
	}
	req.Private = true

	ctx := context.Background()
	u, err := h.Members.EnsureUser(ctx, req.UserID, req.Username, req.FirstName)
	require.NoError(h.t, err)

	_, err = h.Router.Dispatch(ctx, &bot.Update{Request: req, User: u})
	return err
}

// Text отправляет текстовое сообщение и требует отсутствия ошибки.
func (h *Harness) Text(userID int64, text string) {
	h.t.Helper()
	require.NoError(h.t, h.Dispatch(telegram.Request{Kind: telegram.KindMessage, UserID: userID, Text: text}))
}

// Click нажимает inline-кнопку.
func (h *Harness) Click(userID int64, data string) {
	h.t.Helper()
	require.NoError(h.t, h.Dispatch(telegram.Request{
		Kind:         telegram.KindCallback,
		UserID:       userID,
		MessageID:    1,
		CallbackID:   "cb",
		CallbackData: data,
	}))
}

// User перечитывает пользователя из хранилища.
func (h *Harness) User(tgID int64) *members.User {
	h.t.Helper()
	u, err := h.Members.User(context.Background(), tgID)
	require.NoError(h.t, err)
	return u
}

// Session возвращает сессию диалога или nil.
func (h *Harness) Session(userID int64, kind dialog.Kind) *dialog.Session {
	s, err := h.Dialogs.Load(context.Background(), userID, kind)
	if err != nil {
		return nil
	}
	return s
}

// Guest создаёт пользователя с профилем гостя.
func (h *Harness) Guest(tgID int64, firstName string) *members.Guest {
	h.t.Helper()
	ctx := context.Background()
	u, err := h.Members.EnsureUser(ctx, tgID, "", firstName)
	require.NoError(h.t, err)
	g, err := h.Members.EnsureGuest(ctx, u)
	require.NoError(h.t, err)
	return g
}

// Organizer создаёт пользователя с флагом организатора.
func (h *Harness) Organizer(tgID int64) *members.User {
	h.t.Helper()
	ctx := context.Background()
	u, err := h.Members.EnsureUser(ctx, tgID, "", "Организатор")
	require.NoError(h.t, err)
	_, err = h.Members.PromoteOrganizer(ctx, u)
	require.NoError(h.t, err)
	return u
}

// Speaker создаёт одобренного спикера.
func (h *Harness) Speaker(tgID int64, name string) *members.Speaker {
	h.t.Helper()
	ctx := context.Background()
	u, err := h.Members.EnsureUser(ctx, tgID, "", name)
	require.NoError(h.t, err)
	sp, _, err := h.Members.RequestSpeaker(ctx, u)
	require.NoError(h.t, err)
	sp, err = h.Members.ApproveSpeaker(ctx, sp.ID)
	require.NoError(h.t, err)
	return sp
}

// Talk записывает спикера на мероприятие с докладом.
func (h *Harness) Talk(eventID, speakerID int64, title string, start, end time.Time) *events.SpeakerTalk {
	h.t.Helper()
	st, err := h.Events.AddTalk(context.Background(), eventID, speakerID, title, start, end)
	require.NoError(h.t, err)
	return st
}
