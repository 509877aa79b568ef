package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymeetup.ru/meetup-bot/internal/bot/filters"
	"pymeetup.ru/meetup-bot/internal/config"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/testutil"
	"pymeetup.ru/meetup-bot/internal/ui"
)

type fakeAPI struct {
	*testutil.FakeSender
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() { f.stopped = true }

type botFixture struct {
	bot     *Bot
	api     *fakeAPI
	router  *Router
	members *members.Service
}

func newBotFixture(rateLimit int) *botFixture {
	api := &fakeAPI{FakeSender: testutil.NewFakeSender(), updates: make(chan tgbotapi.Update, 8)}
	cfg := &config.Config{
		BotMaxInflight:          1,
		BotUpdateTimeoutSeconds: 60,
		RateLimitRequests:       rateLimit,
		RateLimitCallbacks:      0,
		RateLimitWindow:         time.Minute,
	}
	memberService := members.NewService(testutil.NewMemStore())
	router := NewRouter(dialog.NewMemoryStore(), api)
	return &botFixture{
		bot:     New(api, cfg, memberService, router, filters.NewChatFilter(api)),
		api:     api,
		router:  router,
		members: memberService,
	}
}

func privateMessage(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Анна", UserName: "anna"},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Text:      text,
	}}
}

func TestHandleUpdateCreatesUserAndRoutes(t *testing.T) {
	f := newBotFixture(0)
	var seen *members.User
	f.router.Command("start", func(_ context.Context, u *Update) error {
		seen = u.User
		return nil
	})

	f.bot.HandleUpdate(context.Background(), privateMessage(100, "/start"))

	require.NotNil(t, seen)
	assert.Equal(t, int64(100), seen.TelegramID)
	stored, err := f.members.User(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, "anna", stored.Username)
}

func TestHandleUpdateIgnoresGroups(t *testing.T) {
	f := newBotFixture(0)
	called := false
	f.router.Fallback(func(context.Context, *Update) error { called = true; return nil })

	upd := privateMessage(100, "привет")
	upd.Message.Chat = &tgbotapi.Chat{ID: -500, Type: "supergroup"}
	f.bot.HandleUpdate(context.Background(), upd)

	assert.False(t, called)
	assert.Empty(t, f.api.Sent())
}

func TestHandleUpdateReportsErrors(t *testing.T) {
	f := newBotFixture(0)
	f.router.Command("fail", func(context.Context, *Update) error { return errors.New("db down") })
	f.router.Command("panic", func(context.Context, *Update) error { panic("boom") })

	f.bot.HandleUpdate(context.Background(), privateMessage(100, "/fail"))
	assert.Equal(t, ui.MsgRetryLater, f.api.LastText())

	f.api.Reset()
	assert.NotPanics(t, func() {
		f.bot.HandleUpdate(context.Background(), privateMessage(100, "/panic"))
	})
	assert.Equal(t, ui.MsgRetryLater, f.api.LastText())
}

func TestHandleUpdateRateLimit(t *testing.T) {
	f := newBotFixture(2)
	defer f.bot.rateLimiter.Close()
	calls := 0
	f.router.Command("help", func(context.Context, *Update) error { calls++; return nil })

	for i := 0; i < 5; i++ {
		f.bot.HandleUpdate(context.Background(), privateMessage(100, "/help"))
	}
	assert.Equal(t, 2, calls)
	// предупреждение приходит один раз за окно
	assert.Equal(t, []string{ui.MsgTooManyCalls}, f.api.TextsTo(100))
}

func TestHandleUpdateCallbacksLimitedSeparately(t *testing.T) {
	f := newBotFixture(1)
	defer f.bot.rateLimiter.Close()
	texts, clicks := 0, 0
	f.router.Command("help", func(context.Context, *Update) error { texts++; return nil })
	f.router.Callback("more", func(context.Context, *Update) error { clicks++; return nil })

	f.bot.HandleUpdate(context.Background(), privateMessage(100, "/help"))
	for i := 0; i < 3; i++ {
		f.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb",
			From: &tgbotapi.User{ID: 100, FirstName: "Анна"},
			Message: &tgbotapi.Message{
				MessageID: 5,
				Chat:      &tgbotapi.Chat{ID: 100, Type: "private"},
			},
			Data: "more",
		}})
	}
	assert.Equal(t, 1, texts)
	assert.Equal(t, 3, clicks)
}

func TestStartStopsOnClosedChannel(t *testing.T) {
	f := newBotFixture(0)
	calls := 0
	f.router.Command("help", func(context.Context, *Update) error { calls++; return nil })

	f.api.updates <- privateMessage(100, "/help")
	f.api.updates <- privateMessage(101, "/help")
	close(f.api.updates)

	done := make(chan struct{})
	go func() {
		f.bot.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start не завершился после закрытия канала")
	}
	assert.Equal(t, 2, calls)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	f := newBotFixture(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.bot.Start(ctx)
	assert.True(t, f.api.stopped)
}
