// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Допустимые значения DIALOG_STORE и SCHEDULE_SOURCE.
const (
	DialogStoreMemory = "memory"
	DialogStoreRedis  = "redis"

	ScheduleSourceDB   = "db"
	ScheduleSourceFile = "file"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Токен платёжного провайдера. Пустой — донаты отключены, бот работает дальше.
	TelegramProviderToken string `envconfig:"TELEGRAM_PROVIDER_TOKEN"`
	// Имя бота для deep-link ссылок (QR-коды). Если пусто — берём из getMe.
	BotUsername string `envconfig:"BOT_USERNAME"`

	// --- Organizer ---
	// Открытый пароль или хеш в формате $argon2id$... (см. scripts/generate_hash.go).
	// Пустой — диалог ввода пароля отвечает ошибкой конфигурации.
	OrganizerPassword string `envconfig:"ORGANIZER_PASSWORD"`

	// --- Database ---
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"meetup"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"meetup_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Bot runtime ---
	// 1 = апдейты обрабатываются строго по очереди.
	BotMaxInflight          int `envconfig:"BOT_MAX_INFLIGHT" default:"1"`
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Dialogs ---
	DialogStore    string `envconfig:"DIALOG_STORE" default:"memory"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"meetup:dialog"`
	// 0 — сессии в Redis не истекают.
	RedisDialogTTL time.Duration `envconfig:"REDIS_DIALOG_TTL" default:"0"`

	// --- Schedule ---
	ScheduleSource string `envconfig:"SCHEDULE_SOURCE" default:"db"`
	ScheduleFile   string `envconfig:"SCHEDULE_FILE" default:"schedule.json"`

	// --- Donations ---
	DonateAmount   int    `envconfig:"DONATE_AMOUNT" default:"10000"`
	DonateCurrency string `envconfig:"DONATE_CURRENCY" default:"RUB"`

	// --- Jobs ---
	ReminderCron string        `envconfig:"REMINDER_CRON" default:"0 * * * *"`
	ReminderLead time.Duration `envconfig:"REMINDER_LEAD" default:"24h"`

	// --- Rate Limiting ---
	// Сообщения и нажатия inline-кнопок считаются раздельно. 0 — без лимита.
	RateLimitRequests  int           `envconfig:"RATE_LIMIT_REQUESTS" default:"20"`
	RateLimitCallbacks int           `envconfig:"RATE_LIMIT_CALLBACKS" default:"40"`
	RateLimitWindow    time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// DonationsEnabled сообщает, задан ли токен платёжного провайдера.
func (c *Config) DonationsEnabled() bool {
	return c.TelegramProviderToken != ""
}

// Location возвращает часовой пояс мероприятия.
// Если зона не загрузилась (нет tzdata) — UTC+3, как в расписаниях митапа.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN не задан")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	switch c.DialogStore {
	case DialogStoreMemory, DialogStoreRedis:
	default:
		return fmt.Errorf("DIALOG_STORE: неизвестное хранилище %q", c.DialogStore)
	}
	switch c.ScheduleSource {
	case ScheduleSourceDB, ScheduleSourceFile:
	default:
		return fmt.Errorf("SCHEDULE_SOURCE: неизвестный источник %q", c.ScheduleSource)
	}
	if c.DonateAmount <= 0 {
		return fmt.Errorf("DONATE_AMOUNT должен быть > 0")
	}
	if c.RedisDialogTTL < 0 {
		return fmt.Errorf("REDIS_DIALOG_TTL не может быть отрицательным")
	}
	if c.ReminderLead <= 0 {
		return fmt.Errorf("REMINDER_LEAD должен быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
