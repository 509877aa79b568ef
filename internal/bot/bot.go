// Package bot содержит главный модуль бота: polling, маршрутизацию
// апдейтов и границу обработки ошибок.
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/bot/filters"
	"pymeetup.ru/meetup-bot/internal/bot/middleware"
	"pymeetup.ru/meetup-bot/internal/config"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/telegram"
	"pymeetup.ru/meetup-bot/internal/ui"
)

// API — то, что бот использует от Telegram. *tgbotapi.BotAPI реализует его.
type API interface {
	telegram.Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api API
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	memberService *members.Service
	router        *Router

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api API,
	cfg *config.Config,
	memberService *members.Service,
	router *Router,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 1
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitWindow, map[telegram.Kind]int{
		telegram.KindMessage:  cfg.RateLimitRequests,
		telegram.KindCallback: cfg.RateLimitCallbacks,
	})

	return &Bot{
		api:           api,
		cfg:           cfg,
		chatFilter:    chatFilter,
		rateLimiter:   limiter,
		memberService: memberService,
		router:        router,
		inflight:      make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
// С BOT_MAX_INFLIGHT=1 каждый апдейт обрабатывается до конца, прежде чем взят следующий.
func (b *Bot) Start(ctx context.Context) {
	defer b.rateLimiter.Close()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.drain()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				b.drain()
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.HandleUpdate(ctx, upd)
			}(update)
		}
	}
}

// drain ждёт завершения обработчиков, которые уже выполняются.
func (b *Bot) drain() {
	for i := 0; i < cap(b.inflight); i++ {
		b.inflight <- struct{}{}
	}
}

// HandleUpdate обрабатывает одно обновление от Telegram.
// Ошибки и паники обработчиков не выходят за его пределы.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	req, ok := telegram.FromUpdate(update)
	if !ok {
		return
	}

	fields := log.Fields{
		"user_id": req.UserID,
		"chat_id": req.ChatID,
		"kind":    req.Kind.String(),
	}
	defer middleware.RecoverFromPanic(fields, func() {
		telegram.SendText(b.api, req.ChatID, ui.MsgRetryLater)
	})

	middleware.LogRequest(req)

	if !b.chatFilter.CheckAccess(req) {
		return
	}

	// платежи не ограничиваем: Telegram ждёт ответа на pre-checkout
	switch b.rateLimiter.Check(req.UserID, req.Kind) {
	case middleware.Warn:
		log.WithField("user_id", req.UserID).Debug("rate limited")
		if req.Kind == telegram.KindCallback {
			telegram.AnswerCallback(b.api, req, ui.MsgTooManyCalls)
		} else {
			telegram.SendText(b.api, req.ChatID, ui.MsgTooManyCalls)
		}
		return
	case middleware.Drop:
		if req.Kind == telegram.KindCallback {
			telegram.AnswerCallback(b.api, req, "")
		}
		return
	}

	user, err := b.memberService.EnsureUser(ctx, req.UserID, req.Username, req.FirstName)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("EnsureUser failed")
		b.replyError(req)
		return
	}

	route, err := b.router.Dispatch(ctx, &Update{Request: req, User: user})
	if err != nil {
		fields["route"] = route
		log.WithError(err).WithFields(fields).Error("Ошибка обработки апдейта")
		b.replyError(req)
	}
}

// replyError — последний рубеж: пользователь узнаёт, что нужно повторить позже.
func (b *Bot) replyError(req telegram.Request) {
	if req.Kind == telegram.KindPreCheckout {
		if err := telegram.AnswerPreCheckout(b.api, req.QueryID, false, ui.MsgRetryLater); err != nil {
			log.WithError(err).WithField("user_id", req.UserID).Warn("Не удалось отклонить pre-checkout")
		}
		return
	}
	telegram.SendText(b.api, req.ChatID, ui.MsgRetryLater)
}
