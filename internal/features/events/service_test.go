package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/testutil"
)

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store   *testutil.MemStore
	members *members.Service
	events  *events.Service
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: testutil.NewMemStore(), clock: base}
	f.members = members.NewService(f.store)
	f.events = events.NewService(f.store).WithClock(func() time.Time { return f.clock })
	return f
}

func (f *fixture) speaker(t *testing.T, tgID int64, name string) *members.Speaker {
	t.Helper()
	ctx := context.Background()
	u, err := f.members.EnsureUser(ctx, tgID, "", name)
	require.NoError(t, err)
	sp, _, err := f.members.RequestSpeaker(ctx, u)
	require.NoError(t, err)
	sp, err = f.members.ApproveSpeaker(ctx, sp.ID)
	require.NoError(t, err)
	return sp
}

func (f *fixture) guest(t *testing.T, tgID int64) *members.Guest {
	t.Helper()
	ctx := context.Background()
	u, err := f.members.EnsureUser(ctx, tgID, "", "Гость")
	require.NoError(t, err)
	g, err := f.members.EnsureGuest(ctx, u)
	require.NoError(t, err)
	return g
}

func TestUpcomingEventsSkipsFinished(t *testing.T) {
	f := newFixture(t)
	f.store.AddEvent("Прошлый", base.Add(-48*time.Hour), base.Add(-47*time.Hour))
	next := f.store.AddEvent("Следующий", base.Add(24*time.Hour), base.Add(26*time.Hour))

	list, err := f.events.UpcomingEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, next.ID, list[0].ID)
}

func TestRegisterTwiceReportsAlreadyRegistered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.store.AddEvent("Митап", base.Add(time.Hour), base.Add(3*time.Hour))
	g := f.guest(t, 1)

	require.NoError(t, f.events.Register(ctx, g.ID, ev.ID))
	err := f.events.Register(ctx, g.ID, ev.ID)
	assert.ErrorIs(t, err, common.ErrAlreadyRegistered)
	assert.Len(t, f.store.Registrations(g.ID), 1)
}

func TestRegisterWithProfileIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.store.AddEvent("Митап", base.Add(time.Hour), base.Add(3*time.Hour))
	first := f.guest(t, 1)
	second := f.guest(t, 2)

	p := events.Profile{Name: "Анна", Phone: "+79161234567", Stack: members.StackBackend}
	require.NoError(t, f.events.RegisterWithProfile(ctx, first.ID, ev.ID, p))

	err := f.events.RegisterWithProfile(ctx, second.ID, ev.ID, events.Profile{
		Name: "Борис", Phone: "+79161234567", Stack: members.StackFrontend,
	})
	assert.ErrorIs(t, err, common.ErrPhoneTaken)

	g, err := f.store.GetGuestByID(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, g.Registered)
	assert.Empty(t, g.Phone)
	assert.Empty(t, f.store.Registrations(second.ID))

	err = f.events.RegisterWithProfile(ctx, first.ID, 9999, p)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCurrentTalkUsesClosedWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.store.AddEvent("Митап", base, base.Add(4*time.Hour))
	sp := f.speaker(t, 10, "Спикер")

	talk, err := f.events.AddTalk(ctx, ev.ID, sp.ID, "Go", base, base.Add(45*time.Minute))
	require.NoError(t, err)

	f.clock = base.Add(45 * time.Minute)
	cur, err := f.events.CurrentTalk(ctx)
	require.NoError(t, err)
	assert.Equal(t, talk.ID, cur.ID)

	f.clock = base.Add(46 * time.Minute)
	_, err = f.events.CurrentTalk(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCurrentTalkFirstByStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.store.AddEvent("Митап", base, base.Add(4*time.Hour))
	a := f.speaker(t, 10, "Первый")
	b := f.speaker(t, 11, "Второй")

	first, err := f.events.AddTalk(ctx, ev.ID, a.ID, "Раньше", base, base.Add(45*time.Minute))
	require.NoError(t, err)
	_, err = f.events.AddTalk(ctx, ev.ID, b.ID, "Позже", base.Add(30*time.Minute), base.Add(time.Hour))
	require.NoError(t, err)

	f.clock = base.Add(35 * time.Minute)
	cur, err := f.events.CurrentTalk(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, cur.ID)
}

func TestAskQuestionRejectedAfterFinish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.store.AddEvent("Митап", base, base.Add(4*time.Hour))
	sp := f.speaker(t, 10, "Спикер")
	g := f.guest(t, 1)

	talk, err := f.events.AddTalk(ctx, ev.ID, sp.ID, "Go", base, base.Add(time.Hour))
	require.NoError(t, err)
	f.clock = base.Add(10 * time.Minute)

	_, q, err := f.events.AskQuestion(ctx, talk.ID, g.ID, "Как дела?")
	require.NoError(t, err)
	assert.Equal(t, ev.ID, q.EventID)

	f.store.SetTalkFinished(talk.ID, true)
	_, _, err = f.events.AskQuestion(ctx, talk.ID, g.ID, "Ещё вопрос")
	assert.ErrorIs(t, err, common.ErrTalkClosed)
	assert.Len(t, f.store.Questions(), 1)
}

func TestAddTalkRejectsInvertedWindow(t *testing.T) {
	f := newFixture(t)
	_, err := f.events.AddTalk(context.Background(), 1, 1, "x", base, base)
	assert.Error(t, err)
}

func TestStartTalkShiftsWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.store.AddEvent("Митап", base, base.Add(4*time.Hour))
	sp := f.speaker(t, 10, "Спикер")

	talk, err := f.events.AddTalk(ctx, ev.ID, sp.ID, "Go", base.Add(time.Hour), base.Add(90*time.Minute))
	require.NoError(t, err)

	f.clock = base.Add(50 * time.Minute)
	started, err := f.events.StartTalk(ctx, sp.ID)
	require.NoError(t, err)
	assert.Equal(t, talk.ID, started.ID)
	assert.True(t, started.StartAt.Equal(f.clock))
	assert.Equal(t, 30*time.Minute, started.Duration())

	cur, err := f.events.CurrentTalk(ctx)
	require.NoError(t, err)
	assert.Equal(t, talk.ID, cur.ID)

	// повторный старт возвращает то же выступление без сдвига
	f.clock = f.clock.Add(5 * time.Minute)
	again, err := f.events.StartTalk(ctx, sp.ID)
	require.NoError(t, err)
	assert.True(t, again.StartAt.Equal(base.Add(50*time.Minute)))
}

func TestStartTalkBlockedByUnfinishedPrevious(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.store.AddEvent("Митап", base, base.Add(4*time.Hour))
	a := f.speaker(t, 10, "Первый")
	b := f.speaker(t, 11, "Второй")

	prev, err := f.events.AddTalk(ctx, ev.ID, a.ID, "Первый доклад", base, base.Add(45*time.Minute))
	require.NoError(t, err)
	_, err = f.events.AddTalk(ctx, ev.ID, b.ID, "Второй доклад", base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)

	f.clock = base.Add(55 * time.Minute)
	_, err = f.events.StartTalk(ctx, b.ID)
	ce, ok := events.IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, prev.ID, ce.Blocking.ID)

	f.clock = base.Add(20 * time.Minute)
	_, err = f.events.FinishTalk(ctx, a.ID)
	require.NoError(t, err)

	f.clock = base.Add(55 * time.Minute)
	_, err = f.events.StartTalk(ctx, b.ID)
	assert.NoError(t, err)
}

func TestStartTalkSkipsForgottenPastTalks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	past := f.store.AddEvent("Прошлый", base.Add(-26*time.Hour), base.Add(-22*time.Hour))
	today := f.store.AddEvent("Митап", base, base.Add(4*time.Hour))
	sp := f.speaker(t, 10, "Спикер")

	_, err := f.events.AddTalk(ctx, past.ID, sp.ID, "Старый", base.Add(-25*time.Hour), base.Add(-24*time.Hour))
	require.NoError(t, err)
	running, err := f.events.AddTalk(ctx, today.ID, sp.ID, "Новый", base, base.Add(time.Hour))
	require.NoError(t, err)

	f.clock = base.Add(10 * time.Minute)
	started, err := f.events.StartTalk(ctx, sp.ID)
	require.NoError(t, err)
	assert.Equal(t, running.ID, started.ID)
	assert.True(t, started.StartAt.Equal(base))

	cur, err := f.events.CurrentTalk(ctx)
	require.NoError(t, err)
	assert.Equal(t, running.ID, cur.ID)

	inProgress := 0
	talks, err := f.store.ListSpeakerTalks(ctx, sp.ID)
	require.NoError(t, err)
	for _, st := range talks {
		if st.InProgress(f.clock) {
			inProgress++
		}
	}
	assert.Equal(t, 1, inProgress)
}

func TestStartTalkOnlyPastTalks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	past := f.store.AddEvent("Прошлый", base.Add(-26*time.Hour), base.Add(-22*time.Hour))
	sp := f.speaker(t, 10, "Спикер")

	_, err := f.events.AddTalk(ctx, past.ID, sp.ID, "Старый", base.Add(-25*time.Hour), base.Add(-24*time.Hour))
	require.NoError(t, err)

	_, err = f.events.StartTalk(ctx, sp.ID)
	assert.ErrorIs(t, err, common.ErrNoTalks)
}

func TestStartTalkWithoutTalks(t *testing.T) {
	f := newFixture(t)
	sp := f.speaker(t, 10, "Спикер")
	_, err := f.events.StartTalk(context.Background(), sp.ID)
	assert.ErrorIs(t, err, common.ErrNoTalks)
}

func TestFinishTalkRequiresRunningTalk(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.store.AddEvent("Митап", base, base.Add(4*time.Hour))
	sp := f.speaker(t, 10, "Спикер")

	_, err := f.events.AddTalk(ctx, ev.ID, sp.ID, "Go", base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)

	_, err = f.events.FinishTalk(ctx, sp.ID)
	assert.ErrorIs(t, err, common.ErrNoTalks)

	f.clock = base.Add(90 * time.Minute)
	done, err := f.events.FinishTalk(ctx, sp.ID)
	require.NoError(t, err)
	assert.True(t, done.Finished)

	_, err = f.events.CurrentTalk(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDueRemindersOncePerRegistration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	soon := f.store.AddEvent("Скоро", base.Add(2*time.Hour), base.Add(4*time.Hour))
	f.store.AddEvent("Нескоро", base.Add(72*time.Hour), base.Add(74*time.Hour))
	g := f.guest(t, 1)
	require.NoError(t, f.events.Register(ctx, g.ID, soon.ID))

	due, err := f.events.DueReminders(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int64(1), due[0].TelegramID)

	require.NoError(t, f.events.MarkReminded(ctx, due[0].RegistrationID))
	due, err = f.events.DueReminders(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, due)
}
