package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

type callbackRoute struct {
	prefix  string
	handler HandlerFunc
}

// Router — таблица маршрутов: команды, кнопки меню, callback-кнопки,
// обработчики текста в диалогах и платежей.
//
// Порядок для текстового сообщения: команда → кнопка меню → активный диалог → fallback.
// Команды никогда не попадают в диалог как ввод.
type Router struct {
	parser  *CommandParser
	dialogs dialog.Store
	sender  telegram.Sender

	commands    map[string]HandlerFunc
	buttons     map[string]HandlerFunc
	exact       map[string]HandlerFunc
	prefixes    []callbackRoute
	dialogTexts map[dialog.Kind]DialogFunc

	preCheckout HandlerFunc
	payment     HandlerFunc
	fallback    HandlerFunc
}

func NewRouter(dialogs dialog.Store, sender telegram.Sender) *Router {
	r := &Router{
		parser:      NewCommandParser(),
		dialogs:     dialogs,
		sender:      sender,
		commands:    make(map[string]HandlerFunc),
		buttons:     make(map[string]HandlerFunc),
		exact:       make(map[string]HandlerFunc),
		dialogTexts: make(map[dialog.Kind]DialogFunc),
	}
	r.fallback = func(_ context.Context, u *Update) error {
		telegram.SendText(r.sender, u.ChatID, ui.MsgUnknown)
		return nil
	}
	r.commands["cancel"] = r.cancelAll
	return r
}

// Command регистрирует команду без "/".
func (r *Router) Command(name string, h HandlerFunc) {
	r.commands[strings.ToLower(name)] = h
}

// Button регистрирует кнопку reply-клавиатуры (сравнение без учёта регистра и лишних пробелов).
func (r *Router) Button(label string, h HandlerFunc) {
	r.buttons[normalizeButton(label)] = h
}

// Callback регистрирует inline-кнопку с точным значением data.
func (r *Router) Callback(data string, h HandlerFunc) {
	r.exact[data] = h
}

// CallbackPrefix регистрирует inline-кнопки вида prefix+параметр.
func (r *Router) CallbackPrefix(prefix string, h HandlerFunc) {
	r.prefixes = append(r.prefixes, callbackRoute{prefix: prefix, handler: h})
	// длинные префиксы проверяются первыми
	sort.SliceStable(r.prefixes, func(i, j int) bool {
		return len(r.prefixes[i].prefix) > len(r.prefixes[j].prefix)
	})
}

// Dialog регистрирует обработчик свободного текста для вида диалога.
func (r *Router) Dialog(kind dialog.Kind, h DialogFunc) {
	r.dialogTexts[kind] = h
}

func (r *Router) PreCheckout(h HandlerFunc) { r.preCheckout = h }
func (r *Router) Payment(h HandlerFunc)     { r.payment = h }

// Fallback — ответ на текст, который никто не обработал.
func (r *Router) Fallback(h HandlerFunc) { r.fallback = h }

// Dispatch находит обработчик апдейта и вызывает его.
// route возвращается для логирования ("command:start", "callback:reg:event:", ...).
func (r *Router) Dispatch(ctx context.Context, u *Update) (route string, err error) {
	switch u.Kind {
	case telegram.KindPreCheckout:
		if r.preCheckout == nil {
			return "pre_checkout", nil
		}
		return "pre_checkout", r.preCheckout(ctx, u)

	case telegram.KindPayment:
		if r.payment == nil {
			return "payment", nil
		}
		return "payment", r.payment(ctx, u)

	case telegram.KindCallback:
		return r.dispatchCallback(ctx, u)
	}

	if cmd, args, ok := r.parser.ParseCommand(u.Text); ok {
		u.Command, u.Args = cmd, args
		route = "command:" + cmd
		h, found := r.commands[cmd]
		if !found {
			return route, r.fallback(ctx, u)
		}
		return route, h(ctx, u)
	}

	if h, ok := r.buttons[normalizeButton(u.Text)]; ok {
		return "button:" + u.Text, h(ctx, u)
	}

	s, err := r.dialogs.Active(ctx, u.UserID)
	if errors.Is(err, dialog.ErrNoSession) {
		return "fallback", r.fallback(ctx, u)
	}
	if err != nil {
		return "dialog", fmt.Errorf("ошибка загрузки диалога: %w", err)
	}

	route = "dialog:" + string(s.Kind)
	h, ok := r.dialogTexts[s.Kind]
	if !ok {
		log.WithFields(log.Fields{
			"user_id": u.UserID,
			"kind":    s.Kind,
		}).Warn("Нет обработчика для диалога, диалог завершён")
		if err := r.dialogs.End(ctx, u.UserID, s.Kind); err != nil {
			return route, err
		}
		return route, r.fallback(ctx, u)
	}
	return route, h(ctx, u, s)
}

func (r *Router) dispatchCallback(ctx context.Context, u *Update) (string, error) {
	// снимаем «часики» сразу: обработчик может отвечать долго
	telegram.AnswerCallback(r.sender, u.Request, "")

	if h, ok := r.exact[u.CallbackData]; ok {
		return "callback:" + u.CallbackData, h(ctx, u)
	}
	for _, route := range r.prefixes {
		if strings.HasPrefix(u.CallbackData, route.prefix) {
			return "callback:" + route.prefix, route.handler(ctx, u)
		}
	}

	log.WithFields(log.Fields{
		"user_id": u.UserID,
		"data":    u.CallbackData,
	}).Warn("Неизвестный callback")
	return "callback:unknown", nil
}

// cancelAll — /cancel: завершает все диалоги пользователя.
func (r *Router) cancelAll(ctx context.Context, u *Update) error {
	_, err := r.dialogs.Active(ctx, u.UserID)
	if errors.Is(err, dialog.ErrNoSession) {
		telegram.SendText(r.sender, u.ChatID, ui.MsgNothingToStop)
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.dialogs.EndAll(ctx, u.UserID); err != nil {
		return err
	}
	telegram.SendText(r.sender, u.ChatID, ui.MsgCancelled)
	return nil
}
