// Package members управляет участниками митапа: пользователями Telegram,
// профилями гостей и спикеров, резервом потенциальных спикеров.
// models.go описывает структуры данных для таблиц users, guests, speakers.
package members

import "time"

// Role — роль пользователя в боте.
type Role int

const (
	RoleNone Role = iota
	RoleGuest
	RoleSpeaker
	RoleOrganizer
)

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "Гость"
	case RoleSpeaker:
		return "Спикер"
	case RoleOrganizer:
		return "Организатор"
	}
	return "Не определена"
}

// Допустимые значения стека гостя.
const (
	StackBackend   = "backend"
	StackFrontend  = "frontend"
	StackFullStack = "full_stack"
)

// StackLabel возвращает подпись стека для кнопок и сообщений.
func StackLabel(stack string) string {
	switch stack {
	case StackBackend:
		return "BACKEND"
	case StackFrontend:
		return "FRONTEND"
	case StackFullStack:
		return "FULL STACK"
	}
	return ""
}

// ValidStack проверяет значение стека из callback-кнопки.
func ValidStack(stack string) bool {
	return StackLabel(stack) != ""
}

// User — пользователь Telegram, написавший боту.
// Создаётся при первом /start, никогда не удаляется.
type User struct {
	ID          int64     `db:"id"`           // ID записи в БД
	TelegramID  int64     `db:"tg_id"`        // Telegram user ID (уникальный)
	Username    string    `db:"username"`     // @username (может быть пустым)
	FirstName   string    `db:"first_name"`   // Имя в Telegram
	IsOrganizer bool      `db:"is_organizer"` // Подтвердил пароль организатора
	IsSpeaker   bool      `db:"is_speaker"`   // Заявка спикера одобрена
	CreatedAt   time.Time `db:"created_at"`
}

// DisplayName возвращает @username или имя.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}

// Guest — профиль гостя (слушателя).
type Guest struct {
	ID         int64  `db:"id"`
	UserID     int64  `db:"user_id"`
	Name       string `db:"name"`
	Phone      string `db:"phone"` // E.164, пустой до регистрации
	Stack      string `db:"stack"`
	Registered bool   `db:"registered"`
	Bio        string `db:"bio"` // Рассказ о себе для поиска собеседника

	// Из users, для связи с гостем.
	TelegramID int64  `db:"tg_id"`
	Username   string `db:"username"`
}

// Speaker — профиль спикера. Пока владелец не одобрен организатором
// (users.is_speaker = false), профиль считается заявкой.
type Speaker struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Name      string    `db:"name"`
	Phone     string    `db:"phone"`
	Bio       string    `db:"bio"`
	CreatedAt time.Time `db:"created_at"`

	TelegramID int64  `db:"tg_id"`
	Username   string `db:"username"`
	Approved   bool   `db:"is_speaker"`
}

// DisplayName: имя из профиля, иначе @username, иначе Telegram ID.
func (s *Speaker) DisplayName() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Username != "":
		return "@" + s.Username
	}
	return "ID " + formatID(s.TelegramID)
}

// Prospect — потенциальный спикер в резерве организаторов.
type Prospect struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Contact   string    `db:"contact_info"`
	Notes     string    `db:"notes"`
	AddedBy   int64     `db:"added_by"` // users.id организатора
	CreatedAt time.Time `db:"created_at"`
}

// SpeakerRequest — результат запроса роли спикера.
type SpeakerRequest int

const (
	SpeakerRequestCreated  SpeakerRequest = iota // новая заявка, организаторы уведомлены
	SpeakerRequestPending                        // заявка уже ждёт решения
	SpeakerRequestApproved                       // пользователь уже спикер
)
