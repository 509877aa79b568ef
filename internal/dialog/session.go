// Package dialog хранит состояние многошаговых диалогов пользователя
// (ввод пароля, регистрация, вопрос спикеру и т.д.).
package dialog

import (
	"context"
	"strconv"
	"time"

	"pymeetup.ru/meetup-bot/internal/common"
)

// ErrNoSession — у пользователя нет активного диалога данного вида.
var ErrNoSession = common.ErrNoSession

// Kind — вид диалога. У пользователя одновременно может быть
// несколько незавершённых диалогов разных видов.
type Kind string

const (
	KindOrganizerAuth Kind = "organizer_auth"
	KindRegistration  Kind = "registration"
	KindQuestion      Kind = "question"
	KindNetworking    Kind = "networking"
	KindManageSpeaker Kind = "manage_speakers"
	KindReserve       Kind = "reserve_speaker"
	KindBroadcast     Kind = "broadcast"
)

// State — шаг внутри диалога.
type State string

const (
	StatePassword State = "password"

	StateName    State = "name"
	StatePhone   State = "phone"
	StateStack   State = "stack"
	StateConfirm State = "confirm"

	StateQuestionInput State = "question_input"

	StateBio State = "bio"

	StateChooseEvent   State = "choose_event"
	StateChooseSpeaker State = "choose_speaker"
	StateTalkDetails   State = "talk_details"

	StateReserveName    State = "reserve_name"
	StateReserveContact State = "reserve_contact"
	StateReserveNotes   State = "reserve_notes"

	StateBroadcastText State = "broadcast_text"
)

// Session — состояние одного диалога. Data хранит накопленные ответы
// в виде строк, чтобы сессию можно было положить в Redis как есть.
type Session struct {
	UserID    int64             `json:"user_id"`
	Kind      Kind              `json:"kind"`
	State     State             `json:"state"`
	Data      map[string]string `json:"data,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// New создаёт сессию в начальном состоянии.
func New(userID int64, kind Kind, state State) *Session {
	return &Session{
		UserID: userID,
		Kind:   kind,
		State:  state,
		Data:   make(map[string]string),
	}
}

func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

func (s *Session) SetInt64(key string, v int64) {
	s.Set(key, strconv.FormatInt(v, 10))
}

func (s *Session) String(key string) string {
	return s.Data[key]
}

// Int64 возвращает число из Data. ok=false, если ключа нет или он не число.
func (s *Session) Int64(key string) (int64, bool) {
	raw, found := s.Data[key]
	if !found {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Store — хранилище диалогов.
type Store interface {
	// Load возвращает сессию или ErrNoSession.
	Load(ctx context.Context, userID int64, kind Kind) (*Session, error)
	// Save создаёт или перезаписывает сессию и обновляет UpdatedAt.
	Save(ctx context.Context, s *Session) error
	// End завершает диалог. Отсутствие сессии ошибкой не считается.
	End(ctx context.Context, userID int64, kind Kind) error
	// Active возвращает последнюю по времени изменения сессию пользователя или ErrNoSession.
	Active(ctx context.Context, userID int64) (*Session, error)
	// EndAll завершает все диалоги пользователя.
	EndAll(ctx context.Context, userID int64) error
}
