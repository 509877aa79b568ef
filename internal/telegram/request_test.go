package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromUpdateMessage(t *testing.T) {
	upd := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: 42, UserName: "anna", FirstName: "Анна"},
		Chat:      &tgbotapi.Chat{ID: 42, Type: "private"},
		Text:      "/start",
	}}

	req, ok := FromUpdate(upd)
	require.True(t, ok)
	assert.Equal(t, KindMessage, req.Kind)
	assert.Equal(t, int64(42), req.UserID)
	assert.True(t, req.Private)
	assert.Equal(t, "@anna", req.DisplayName())
}

func TestFromUpdateCallback(t *testing.T) {
	upd := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 5, FirstName: "Иван"},
		Data:    "role:guest",
		Message: &tgbotapi.Message{MessageID: 11, Chat: &tgbotapi.Chat{ID: 5, Type: "private"}},
	}}

	req, ok := FromUpdate(upd)
	require.True(t, ok)
	assert.Equal(t, KindCallback, req.Kind)
	assert.Equal(t, "role:guest", req.CallbackData)
	assert.Equal(t, 11, req.MessageID)
	assert.Equal(t, "Иван", req.DisplayName())
}

func TestFromUpdatePayments(t *testing.T) {
	pre := tgbotapi.Update{PreCheckoutQuery: &tgbotapi.PreCheckoutQuery{
		ID:             "q1",
		From:           &tgbotapi.User{ID: 9},
		InvoicePayload: "meetup_donation_9_100",
		Currency:       "RUB",
		TotalAmount:    10000,
	}}
	req, ok := FromUpdate(pre)
	require.True(t, ok)
	assert.Equal(t, KindPreCheckout, req.Kind)
	assert.Equal(t, "q1", req.QueryID)

	paid := tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 9},
		Chat: &tgbotapi.Chat{ID: 9, Type: "private"},
		SuccessfulPayment: &tgbotapi.SuccessfulPayment{
			Currency: "RUB", TotalAmount: 10000, InvoicePayload: "meetup_donation_9_100",
		},
	}}
	req, ok = FromUpdate(paid)
	require.True(t, ok)
	assert.Equal(t, KindPayment, req.Kind)
	assert.Equal(t, 10000, req.TotalAmount)
}

func TestFromUpdateSkipsServiceMessages(t *testing.T) {
	_, ok := FromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1},
		Chat: &tgbotapi.Chat{ID: 1, Type: "private"},
	}})
	assert.False(t, ok)

	_, ok = FromUpdate(tgbotapi.Update{})
	assert.False(t, ok)
}
