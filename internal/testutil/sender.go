package testutil

import (
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sent — одно исходящее сообщение, записанное FakeSender.
type Sent struct {
	ChatID int64
	Text   string
	Markup interface{}
	Raw    tgbotapi.Chattable
}

// FakeSender записывает всё, что бот отправил бы в Telegram.
type FakeSender struct {
	mu       sync.Mutex
	sent     []Sent
	requests []tgbotapi.Chattable
	nextID   int
}

func NewFakeSender() *FakeSender {
	return &FakeSender{}
}

func (f *FakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	s := Sent{Raw: c}
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		s.ChatID, s.Text, s.Markup = v.ChatID, v.Text, v.ReplyMarkup
	case tgbotapi.EditMessageTextConfig:
		s.ChatID, s.Text = v.ChatID, v.Text
		if v.ReplyMarkup != nil {
			s.Markup = *v.ReplyMarkup
		}
	case tgbotapi.InvoiceConfig:
		s.ChatID, s.Text = v.ChatID, v.Title
	case tgbotapi.PhotoConfig:
		s.ChatID, s.Text = v.ChatID, v.Caption
	}
	f.sent = append(f.sent, s)
	return tgbotapi.Message{MessageID: f.nextID, Chat: &tgbotapi.Chat{ID: s.ChatID}}, nil
}

func (f *FakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// Sent — копия всех отправленных сообщений.
func (f *FakeSender) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Sent(nil), f.sent...)
}

// Texts — тексты всех сообщений (включая правки) в порядке отправки.
func (f *FakeSender) Texts() []string {
	var out []string
	for _, s := range f.Sent() {
		if s.Text != "" {
			out = append(out, s.Text)
		}
	}
	return out
}

// TextsTo — тексты сообщений в конкретный чат.
func (f *FakeSender) TextsTo(chatID int64) []string {
	var out []string
	for _, s := range f.Sent() {
		if s.ChatID == chatID && s.Text != "" {
			out = append(out, s.Text)
		}
	}
	return out
}

// LastText — текст последнего сообщения или "".
func (f *FakeSender) LastText() string {
	texts := f.Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// LastMarkup — клавиатура последнего сообщения.
func (f *FakeSender) LastMarkup() interface{} {
	sent := f.Sent()
	if len(sent) == 0 {
		return nil
	}
	return sent[len(sent)-1].Markup
}

// AnyContains сообщает, есть ли среди отправленных текстов подстрока sub.
func (f *FakeSender) AnyContains(sub string) bool {
	for _, t := range f.Texts() {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}

// Invoices — отправленные счета.
func (f *FakeSender) Invoices() []tgbotapi.InvoiceConfig {
	var out []tgbotapi.InvoiceConfig
	for _, s := range f.Sent() {
		if inv, ok := s.Raw.(tgbotapi.InvoiceConfig); ok {
			out = append(out, inv)
		}
	}
	return out
}

// Photos — отправленные фото.
func (f *FakeSender) Photos() []tgbotapi.PhotoConfig {
	var out []tgbotapi.PhotoConfig
	for _, s := range f.Sent() {
		if p, ok := s.Raw.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

// Requests — всё, что ушло через Request (ответы на callback, удаления и т.п.).
func (f *FakeSender) Requests() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]tgbotapi.Chattable(nil), f.requests...)
}

// PreCheckoutAnswers — ответы на pre-checkout запросы.
func (f *FakeSender) PreCheckoutAnswers() []tgbotapi.PreCheckoutConfig {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []tgbotapi.PreCheckoutConfig
	for _, c := range f.requests {
		if p, ok := c.(tgbotapi.PreCheckoutConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

// InlineData — callback_data всех кнопок inline-клавиатуры.
func InlineData(markup interface{}) []string {
	kb, ok := markup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				out = append(out, *b.CallbackData)
			}
		}
	}
	return out
}

// ReplyLabels — подписи кнопок reply-клавиатуры.
func ReplyLabels(markup interface{}) []string {
	kb, ok := markup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range kb.Keyboard {
		for _, b := range row {
			out = append(out, b.Text)
		}
	}
	return out
}

// Reset очищает записанные сообщения.
func (f *FakeSender) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = nil
	f.requests = nil
}
