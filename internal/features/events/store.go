package events

import (
	"context"
	"time"
)

// Store — операции хранилища мероприятий.
// Отсутствие записи — common.ErrNotFound.
type Store interface {
	// ListUpcomingEvents — мероприятия, которые ещё не закончились (end_at > now), по времени начала.
	ListUpcomingEvents(ctx context.Context, now time.Time) ([]*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	GetEvent(ctx context.Context, id int64) (*Event, error)

	// Register — common.ErrAlreadyRegistered при повторной записи.
	Register(ctx context.Context, guestID, eventID int64) error
	// RegisterWithProfile атомарно сохраняет профиль гостя, выставляет флаг registered
	// и создаёт регистрацию. При любой ошибке профиль не меняется.
	// Ошибки: common.ErrNotFound, common.ErrPhoneTaken, common.ErrAlreadyRegistered.
	RegisterWithProfile(ctx context.Context, guestID, eventID int64, p Profile) error

	// CreateTalk создаёт доклад и выступление спикера одной транзакцией.
	CreateTalk(ctx context.Context, eventID, speakerID int64, title string, start, end time.Time) (*SpeakerTalk, error)
	GetSpeakerTalk(ctx context.Context, id int64) (*SpeakerTalk, error)
	// CurrentSpeakerTalks — незавершённые выступления, окно которых содержит now, по времени начала.
	CurrentSpeakerTalks(ctx context.Context, now time.Time) ([]*SpeakerTalk, error)
	// ListSpeakerTalks — незавершённые выступления спикера по времени начала.
	ListSpeakerTalks(ctx context.Context, speakerID int64) ([]*SpeakerTalk, error)
	// ListEventTalks — незавершённые выступления мероприятия по времени начала.
	ListEventTalks(ctx context.Context, eventID int64) ([]*SpeakerTalk, error)
	// ListScheduledTalks — программа мероприятий, которые ещё не закончились.
	ListScheduledTalks(ctx context.Context, now time.Time) ([]*SpeakerTalk, error)
	UpdateTalkWindow(ctx context.Context, id int64, start, end time.Time) error
	FinishTalk(ctx context.Context, id int64) error

	CreateQuestion(ctx context.Context, q *Question) error
	ListQuestions(ctx context.Context, speakerTalkID int64) ([]*Question, error)

	// DueReminders — регистрации без напоминания на мероприятия с началом в (from, to].
	DueReminders(ctx context.Context, from, to time.Time) ([]*Reminder, error)
	MarkReminded(ctx context.Context, registrationID int64) error
}

var _ Store = (*Repository)(nil)
