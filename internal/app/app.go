// Package app собирает приложение: пул БД, хранилище диалогов, сервисы,
// обработчики фич, роутер и планировщик.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/bot"
	"pymeetup.ru/meetup-bot/internal/bot/filters"
	"pymeetup.ru/meetup-bot/internal/config"
	"pymeetup.ru/meetup-bot/internal/db/postgres"
	"pymeetup.ru/meetup-bot/internal/dialog"
	"pymeetup.ru/meetup-bot/internal/features/donate"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
	"pymeetup.ru/meetup-bot/internal/features/networking"
	"pymeetup.ru/meetup-bot/internal/features/organizer"
	"pymeetup.ru/meetup-bot/internal/features/questions"
	"pymeetup.ru/meetup-bot/internal/features/registration"
	"pymeetup.ru/meetup-bot/internal/features/roles"
	"pymeetup.ru/meetup-bot/internal/features/schedule"
	"pymeetup.ru/meetup-bot/internal/features/speakers"
	"pymeetup.ru/meetup-bot/internal/jobs"
	"pymeetup.ru/meetup-bot/internal/telegram"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	Redis     *redis.Client // nil при DIALOG_STORE=memory
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	migrations, err := loadMigrations(migrationFiles)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка чтения миграций: %w", err)
	}
	if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	botUsername := cfg.BotUsername
	if botUsername == "" {
		botUsername = botAPI.Self.UserName
	}

	// === 3. Хранилище диалогов ===
	dialogs, redisClient, err := newDialogStore(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	// === 4. Сервисы ===
	loc := cfg.Location()
	memberService := members.NewService(members.NewRepository(pool))
	eventService := events.NewService(events.NewRepository(pool))

	var source schedule.Source
	switch cfg.ScheduleSource {
	case config.ScheduleSourceFile:
		source = schedule.NewFileSource(cfg.ScheduleFile, loc)
	default:
		source = schedule.NewDBSource(eventService)
	}

	// === 5. Роутер и фичи ===
	router := registerFeatures(botAPI, cfg, botUsername, memberService, eventService, dialogs, source)

	if !cfg.DonationsEnabled() {
		log.Warn("TELEGRAM_PROVIDER_TOKEN не задан, донаты отключены")
	}
	if cfg.OrganizerPassword == "" {
		log.Warn("ORGANIZER_PASSWORD не задан, вход организатора недоступен")
	}

	// === 6. Собираем бота ===
	b := bot.New(botAPI, cfg, memberService, router, filters.NewChatFilter(botAPI))

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(eventService, botAPI, loc, cfg.ReminderCron, cfg.ReminderLead)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		Redis:     redisClient,
		BotAPI:    botAPI,
	}, nil
}

// Close освобождает соединения с внешними хранилищами.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия Redis")
		}
	}
	a.DB.Close()
}

// registerFeatures регистрирует обработчики всех фич в одном роутере.
func registerFeatures(
	sender telegram.Sender,
	cfg *config.Config,
	botUsername string,
	memberService *members.Service,
	eventService *events.Service,
	dialogs dialog.Store,
	source schedule.Source,
) *bot.Router {
	loc := cfg.Location()
	router := bot.NewRouter(dialogs, sender)

	reg := registration.NewHandler(sender, memberService, eventService, dialogs, loc)
	rolesHandler := roles.NewHandler(sender, memberService, dialogs, cfg.OrganizerPassword)
	rolesHandler.OnDeepLink(registration.DeepLinkPrefix, reg.StartForEvent)

	rolesHandler.Register(router)
	reg.Register(router)
	questions.NewHandler(sender, memberService, eventService, dialogs).Register(router)
	networking.NewHandler(sender, memberService, dialogs).Register(router)
	speakers.NewHandler(sender, memberService, eventService, loc).Register(router)
	organizer.NewHandler(sender, memberService, eventService, dialogs, loc, botUsername).Register(router)
	schedule.NewHandler(sender, source, memberService, eventService, loc).Register(router)
	donate.NewHandler(sender, cfg.TelegramProviderToken, cfg.DonateAmount, cfg.DonateCurrency).Register(router)

	return router
}

// newDialogStore выбирает хранилище диалогов по DIALOG_STORE.
func newDialogStore(ctx context.Context, cfg *config.Config) (dialog.Store, *redis.Client, error) {
	if cfg.DialogStore != config.DialogStoreRedis {
		log.Info("Диалоги хранятся в памяти процесса")
		return dialog.NewMemoryStore(), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis недоступен (%s): %w", cfg.RedisAddr, err)
	}
	log.WithField("addr", cfg.RedisAddr).Info("Диалоги хранятся в Redis")
	return dialog.NewRedisStore(client, cfg.RedisKeyPrefix, cfg.RedisDialogTTL), client, nil
}
