package bot

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/testutil"
	"pymeetup.ru/meetup-bot/internal/ui"
)

const testUser = 42

func textUpdate(text string) *Update {
	return &Update{Request: telegram.Request{
		Kind: telegram.KindMessage, ChatID: testUser, UserID: testUser, Private: true, Text: text,
	}}
}

func callbackUpdate(data string) *Update {
	return &Update{Request: telegram.Request{
		Kind: telegram.KindCallback, ChatID: testUser, UserID: testUser, Private: true,
		MessageID: 7, CallbackID: "cb1", CallbackData: data,
	}}
}

func newTestRouter() (*Router, *dialog.MemoryStore, *testutil.FakeSender) {
	dialogs := dialog.NewMemoryStore()
	sender := testutil.NewFakeSender()
	return NewRouter(dialogs, sender), dialogs, sender
}

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	cmd, args, ok := p.ParseCommand("  /Start event_5 ")
	require.True(t, ok)
	assert.Equal(t, "start", cmd)
	assert.Equal(t, []string{"event_5"}, args)

	cmd, args, ok = p.ParseCommand("/ask@meetup_bot что такое GIL?")
	require.True(t, ok)
	assert.Equal(t, "ask", cmd)
	assert.Equal(t, []string{"что", "такое", "GIL?"}, args)

	for _, text := range []string{"привет", "/", "/@bot", ""} {
		_, _, ok := p.ParseCommand(text)
		assert.False(t, ok, text)
	}
}

func TestDispatchOrder(t *testing.T) {
	r, dialogs, sender := newTestRouter()
	ctx := context.Background()

	var got []string
	r.Command("help", func(context.Context, *Update) error { got = append(got, "command"); return nil })
	r.Button("📅 Программа", func(context.Context, *Update) error { got = append(got, "button"); return nil })
	r.Dialog(dialog.KindQuestion, func(_ context.Context, u *Update, s *dialog.Session) error {
		got = append(got, "dialog:"+u.Text+":"+string(s.State))
		return nil
	})

	require.NoError(t, dialogs.Save(ctx, dialog.New(testUser, dialog.KindQuestion, dialog.StateQuestionInput)))

	route, err := r.Dispatch(ctx, textUpdate("/help"))
	require.NoError(t, err)
	assert.Equal(t, "command:help", route)

	// кнопка сравнивается без учёта регистра и лишних пробелов
	_, err = r.Dispatch(ctx, textUpdate("  📅   программа "))
	require.NoError(t, err)

	route, err = r.Dispatch(ctx, textUpdate("мой вопрос"))
	require.NoError(t, err)
	assert.Equal(t, "dialog:question", route)

	assert.Equal(t, []string{"command", "button", "dialog:мой вопрос:question_input"}, got)
	assert.Empty(t, sender.Sent())
}

func TestDispatchFallback(t *testing.T) {
	r, dialogs, sender := newTestRouter()
	ctx := context.Background()

	route, err := r.Dispatch(ctx, textUpdate("просто текст"))
	require.NoError(t, err)
	assert.Equal(t, "fallback", route)
	assert.Equal(t, ui.MsgUnknown, sender.LastText())

	// неизвестная команда не уходит в диалог как ввод
	require.NoError(t, dialogs.Save(ctx, dialog.New(testUser, dialog.KindBroadcast, dialog.StateBroadcastText)))
	sender.Reset()
	route, err = r.Dispatch(ctx, textUpdate("/nope"))
	require.NoError(t, err)
	assert.Equal(t, "command:nope", route)
	assert.Equal(t, ui.MsgUnknown, sender.LastText())

	// диалог без обработчика завершается
	sender.Reset()
	_, err = r.Dispatch(ctx, textUpdate("текст рассылки"))
	require.NoError(t, err)
	assert.Equal(t, ui.MsgUnknown, sender.LastText())
	_, err = dialogs.Active(ctx, testUser)
	assert.ErrorIs(t, err, dialog.ErrNoSession)
}

func TestCancelEndsAllDialogs(t *testing.T) {
	r, dialogs, sender := newTestRouter()
	ctx := context.Background()

	_, err := r.Dispatch(ctx, textUpdate("/cancel"))
	require.NoError(t, err)
	assert.Equal(t, ui.MsgNothingToStop, sender.LastText())

	require.NoError(t, dialogs.Save(ctx, dialog.New(testUser, dialog.KindRegistration, dialog.StateName)))
	require.NoError(t, dialogs.Save(ctx, dialog.New(testUser, dialog.KindNetworking, dialog.StateBio)))

	_, err = r.Dispatch(ctx, textUpdate("/cancel"))
	require.NoError(t, err)
	assert.Equal(t, ui.MsgCancelled, sender.LastText())
	_, err = dialogs.Active(ctx, testUser)
	assert.ErrorIs(t, err, dialog.ErrNoSession)
}

func TestDispatchCallbacks(t *testing.T) {
	r, _, sender := newTestRouter()
	ctx := context.Background()

	var got []string
	r.Callback("reg:cancel", func(context.Context, *Update) error { got = append(got, "exact"); return nil })
	r.CallbackPrefix("reg:", func(context.Context, *Update) error { got = append(got, "short"); return nil })
	r.CallbackPrefix("reg:event:", func(_ context.Context, u *Update) error {
		id, err := u.CallbackInt64("reg:event:")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(12), id)
		got = append(got, "long")
		return nil
	})

	route, err := r.Dispatch(ctx, callbackUpdate("reg:cancel"))
	require.NoError(t, err)
	assert.Equal(t, "callback:reg:cancel", route)

	route, err = r.Dispatch(ctx, callbackUpdate("reg:event:12"))
	require.NoError(t, err)
	assert.Equal(t, "callback:reg:event:", route)

	_, err = r.Dispatch(ctx, callbackUpdate("reg:other"))
	require.NoError(t, err)

	route, err = r.Dispatch(ctx, callbackUpdate("zzz"))
	require.NoError(t, err)
	assert.Equal(t, "callback:unknown", route)

	_, err = r.Dispatch(ctx, callbackUpdate("reg:event:abc"))
	require.Error(t, err)

	assert.Equal(t, []string{"exact", "long", "short"}, got)
	// каждый callback получает ответ
	answers := 0
	for _, c := range sender.Requests() {
		if _, ok := c.(tgbotapi.CallbackConfig); ok {
			answers++
		}
	}
	assert.Equal(t, 5, answers)
}

func TestDispatchPayments(t *testing.T) {
	r, _, _ := newTestRouter()
	ctx := context.Background()

	route, err := r.Dispatch(ctx, &Update{Request: telegram.Request{Kind: telegram.KindPreCheckout, UserID: testUser}})
	require.NoError(t, err)
	assert.Equal(t, "pre_checkout", route)

	boom := errors.New("boom")
	r.Payment(func(context.Context, *Update) error { return boom })
	route, err = r.Dispatch(ctx, &Update{Request: telegram.Request{Kind: telegram.KindPayment, UserID: testUser}})
	assert.Equal(t, "payment", route)
	assert.ErrorIs(t, err, boom)
}

func TestUpdateArgs(t *testing.T) {
	u := &Update{Request: telegram.Request{Args: []string{"когда", "обед?"}, CallbackData: "qa:talk:x"}}
	assert.Equal(t, "когда обед?", u.ArgText())
	assert.Equal(t, "x", u.CallbackArg("qa:talk:"))
	_, err := u.CallbackInt64("qa:talk:")
	assert.Error(t, err)
}
