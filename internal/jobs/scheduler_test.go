package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/testutil"
)

var msk = time.FixedZone("MSK", 3*60*60)

// flakySender отказывает в отправке выбранным чатам.
type flakySender struct {
	*testutil.FakeSender
	fail map[int64]bool
}

func (f *flakySender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok && f.fail[m.ChatID] {
		return tgbotapi.Message{}, errors.New("bot was blocked by the user")
	}
	return f.FakeSender.Send(c)
}

func registerGuest(t *testing.T, store *testutil.MemStore, tgID, eventID int64) {
	t.Helper()
	ctx := context.Background()
	ms := members.NewService(store)
	u, err := ms.EnsureUser(ctx, tgID, "", "Гость")
	require.NoError(t, err)
	g, err := ms.EnsureGuest(ctx, u)
	require.NoError(t, err)
	require.NoError(t, events.NewService(store).Register(ctx, g.ID, eventID))
}

func TestSendReminders(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, msk)
	store := testutil.NewMemStore()
	soon := store.AddEvent("Python Meetup", now.Add(20*time.Hour), now.Add(28*time.Hour))
	later := store.AddEvent("Осенний митап", now.Add(72*time.Hour), now.Add(80*time.Hour))
	registerGuest(t, store, 700, soon.ID)
	registerGuest(t, store, 701, later.ID)

	sender := testutil.NewFakeSender()
	svc := events.NewService(store).WithClock(func() time.Time { return now })
	s := NewScheduler(svc, sender, msk, "0 * * * *", 24*time.Hour)

	sent, err := s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"Напоминаем: «Python Meetup» начнётся 02.06.2025 06:00.\nДо встречи!"}, sender.TextsTo(700))
	assert.Empty(t, sender.TextsTo(701))

	// повторный запуск не дублирует напоминание
	sent, err = s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, sender.TextsTo(700), 1)
}

func TestSendRemindersRetriesFailedDelivery(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, msk)
	store := testutil.NewMemStore()
	ev := store.AddEvent("Python Meetup", now.Add(2*time.Hour), now.Add(8*time.Hour))
	registerGuest(t, store, 700, ev.ID)

	sender := &flakySender{FakeSender: testutil.NewFakeSender(), fail: map[int64]bool{700: true}}
	svc := events.NewService(store).WithClock(func() time.Time { return now })
	s := NewScheduler(svc, sender, msk, "0 * * * *", 24*time.Hour)

	sent, err := s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	sender.fail = nil
	sent, err = s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(events.NewService(testutil.NewMemStore()), testutil.NewFakeSender(), msk, "каждый час", time.Hour)
	assert.Error(t, s.Start(context.Background()))
}

func TestReminderTextWithAddress(t *testing.T) {
	ev := &events.Event{Name: "Митап", Address: "Москва, ул. Льва Толстого, 16", StartAt: time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)}
	assert.Equal(t, "Напоминаем: «Митап» начнётся 02.06.2025 10:00.\nГде: Москва, ул. Льва Толстого, 16\nДо встречи!", ReminderText(ev, msk))
}
