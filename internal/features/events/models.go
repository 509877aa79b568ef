// Package events — мероприятия, доклады, регистрации гостей и вопросы спикерам.
package events

import "time"

// Event — мероприятие. Создаётся организаторами заранее.
type Event struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Address     string    `db:"address"`
	StartAt     time.Time `db:"start_at"`
	EndAt       time.Time `db:"end_at"`
}

// Talk — доклад в программе мероприятия.
type Talk struct {
	ID      int64  `db:"id"`
	EventID int64  `db:"event_id"`
	Title   string `db:"title"`
}

// SpeakerTalk — выступление спикера с докладом: окно времени и флаг завершения.
type SpeakerTalk struct {
	ID        int64     `db:"id"`
	TalkID    int64     `db:"talk_id"`
	SpeakerID int64     `db:"speaker_id"`
	StartAt   time.Time `db:"start_at"`
	EndAt     time.Time `db:"end_at"`
	Finished  bool      `db:"finished"`

	// Денормализованные поля из talks/events/speakers/users.
	EventID       int64  `db:"event_id"`
	EventName     string `db:"event_name"`
	Title         string `db:"title"`
	SpeakerName   string `db:"speaker_name"`
	SpeakerUserTG int64  `db:"speaker_tg_id"`
}

// InProgress: не завершён и now внутри закрытого окна [StartAt, EndAt].
func (t *SpeakerTalk) InProgress(now time.Time) bool {
	if t.Finished {
		return false
	}
	return !now.Before(t.StartAt) && !now.After(t.EndAt)
}

// Duration — длительность окна выступления.
func (t *SpeakerTalk) Duration() time.Duration {
	return t.EndAt.Sub(t.StartAt)
}

// Registration — запись гостя на мероприятие. Пара (гость, мероприятие) уникальна.
type Registration struct {
	ID        int64     `db:"id"`
	GuestID   int64     `db:"guest_id"`
	EventID   int64     `db:"event_id"`
	Reminded  bool      `db:"reminded"`
	CreatedAt time.Time `db:"created_at"`
}

// Profile — данные гостя, собранные диалогом регистрации.
type Profile struct {
	Name  string
	Phone string // E.164
	Stack string
}

// Question — вопрос гостя спикеру во время выступления.
type Question struct {
	ID            int64     `db:"id"`
	SpeakerID     int64     `db:"speaker_id"`
	GuestID       int64     `db:"guest_id"`
	EventID       int64     `db:"event_id"`
	SpeakerTalkID int64     `db:"speaker_talk_id"`
	Text          string    `db:"text"`
	CreatedAt     time.Time `db:"created_at"`

	GuestName     string `db:"guest_name"`
	GuestUsername string `db:"guest_username"`
}

// Reminder — регистрация, по которой пора напомнить о мероприятии.
type Reminder struct {
	RegistrationID int64
	TelegramID     int64
	Event          Event
}

// ConflictError — начать доклад нельзя, пока предыдущий в этом мероприятии не завершён.
type ConflictError struct {
	Blocking *SpeakerTalk
}

func (e *ConflictError) Error() string {
	return "предыдущий доклад «" + e.Blocking.Title + "» ещё не завершён"
}
