// Package events — service.go: регистрация на мероприятия, поиск текущего
// доклада, старт/завершение выступлений и вопросы спикерам.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/common"
)

// Service — бизнес-логика мероприятий.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock подменяет источник времени (для тестов и задач по расписанию).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Now — текущее время сервиса.
func (s *Service) Now() time.Time {
	return s.now()
}

// UpcomingEvents — мероприятия, которые ещё не закончились.
func (s *Service) UpcomingEvents(ctx context.Context) ([]*Event, error) {
	return s.store.ListUpcomingEvents(ctx, s.now())
}

func (s *Service) Events(ctx context.Context) ([]*Event, error) {
	return s.store.ListEvents(ctx)
}

func (s *Service) Event(ctx context.Context, id int64) (*Event, error) {
	return s.store.GetEvent(ctx, id)
}

// Register записывает уже зарегистрированного ранее гостя на ещё одно мероприятие.
func (s *Service) Register(ctx context.Context, guestID, eventID int64) error {
	if err := s.store.Register(ctx, guestID, eventID); err != nil {
		return err
	}
	log.WithFields(log.Fields{"guest_id": guestID, "event_id": eventID}).Info("Гость записан на мероприятие")
	return nil
}

// RegisterWithProfile сохраняет анкету гостя и записывает его на мероприятие.
func (s *Service) RegisterWithProfile(ctx context.Context, guestID, eventID int64, p Profile) error {
	if err := s.store.RegisterWithProfile(ctx, guestID, eventID, p); err != nil {
		return err
	}
	log.WithFields(log.Fields{"guest_id": guestID, "event_id": eventID}).Info("Гость зарегистрирован с анкетой")
	return nil
}

// CurrentTalk — первое (по времени начала) незавершённое выступление,
// окно которого содержит текущий момент. Нет такого — common.ErrNotFound.
func (s *Service) CurrentTalk(ctx context.Context) (*SpeakerTalk, error) {
	talks, err := s.store.CurrentSpeakerTalks(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if len(talks) == 0 {
		return nil, common.ErrNotFound
	}
	return talks[0], nil
}

// OpenTalk перечитывает выступление и проверяет, что оно всё ещё идёт.
// Завершён или окно закрылось — common.ErrTalkClosed.
func (s *Service) OpenTalk(ctx context.Context, id int64) (*SpeakerTalk, error) {
	t, err := s.store.GetSpeakerTalk(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.InProgress(s.now()) {
		return t, common.ErrTalkClosed
	}
	return t, nil
}

// AskQuestion сохраняет вопрос, если выступление ещё идёт.
func (s *Service) AskQuestion(ctx context.Context, talkID, guestID int64, text string) (*SpeakerTalk, *Question, error) {
	t, err := s.OpenTalk(ctx, talkID)
	if err != nil {
		return t, nil, err
	}
	q := &Question{
		SpeakerID:     t.SpeakerID,
		GuestID:       guestID,
		EventID:       t.EventID,
		SpeakerTalkID: t.ID,
		Text:          text,
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return t, nil, err
	}
	return t, q, nil
}

// AddTalk записывает спикера на мероприятие с новым докладом.
func (s *Service) AddTalk(ctx context.Context, eventID, speakerID int64, title string, start, end time.Time) (*SpeakerTalk, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("время начала должно быть раньше времени окончания")
	}
	return s.store.CreateTalk(ctx, eventID, speakerID, title, start, end)
}

// StartTalk начинает ближайшее незавершённое выступление спикера
// на мероприятии, которое ещё не закончилось.
//
// Уже идущее выступление возвращается как есть. Если в том же мероприятии
// есть незавершённое выступление, которое началось и должно было закончиться
// раньше начала этого, возвращается *ConflictError. Иначе окно сдвигается
// так, чтобы выступление начиналось сейчас, длительность сохраняется.
func (s *Service) StartTalk(ctx context.Context, speakerID int64) (*SpeakerTalk, error) {
	talks, err := s.store.ListSpeakerTalks(ctx, speakerID)
	if err != nil {
		return nil, err
	}
	if len(talks) == 0 {
		return nil, common.ErrNoTalks
	}

	now := s.now()
	for _, t := range talks {
		if t.InProgress(now) {
			return t, nil
		}
	}
	t, err := s.nextStartable(ctx, talks, now)
	if err != nil {
		return nil, err
	}

	eventTalks, err := s.store.ListEventTalks(ctx, t.EventID)
	if err != nil {
		return nil, err
	}
	for _, p := range eventTalks {
		if p.ID == t.ID {
			continue
		}
		if p.StartAt.Before(t.StartAt) && !p.EndAt.After(t.StartAt) {
			return nil, &ConflictError{Blocking: p}
		}
	}

	dur := t.Duration()
	t.StartAt = now
	t.EndAt = now.Add(dur)
	if err := s.store.UpdateTalkWindow(ctx, t.ID, t.StartAt, t.EndAt); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"speaker_id":      speakerID,
		"speaker_talk_id": t.ID,
	}).Info("Спикер начал доклад")
	return t, nil
}

// nextStartable — первое по времени выступление, мероприятие которого ещё не
// закончилось. Забытые незавершённые выступления прошлых мероприятий пропускаются.
func (s *Service) nextStartable(ctx context.Context, talks []*SpeakerTalk, now time.Time) (*SpeakerTalk, error) {
	ended := make(map[int64]bool)
	for _, t := range talks {
		done, seen := ended[t.EventID]
		if !seen {
			ev, err := s.store.GetEvent(ctx, t.EventID)
			if err != nil {
				return nil, err
			}
			done = !ev.EndAt.After(now)
			ended[t.EventID] = done
		}
		if !done {
			return t, nil
		}
	}
	return nil, common.ErrNoTalks
}

// ActiveTalk — идущее выступление спикера, а если такого нет — ближайшее
// незавершённое. Нет ни одного — common.ErrNoTalks.
func (s *Service) ActiveTalk(ctx context.Context, speakerID int64) (*SpeakerTalk, error) {
	talks, err := s.store.ListSpeakerTalks(ctx, speakerID)
	if err != nil {
		return nil, err
	}
	if len(talks) == 0 {
		return nil, common.ErrNoTalks
	}
	now := s.now()
	for _, t := range talks {
		if t.InProgress(now) {
			return t, nil
		}
	}
	return talks[0], nil
}

// FinishTalk завершает идущее выступление спикера.
// Если ни одно не идёт — common.ErrNoTalks.
func (s *Service) FinishTalk(ctx context.Context, speakerID int64) (*SpeakerTalk, error) {
	t, err := s.ActiveTalk(ctx, speakerID)
	if err != nil {
		return nil, err
	}
	if !t.InProgress(s.now()) {
		return nil, common.ErrNoTalks
	}
	if err := s.store.FinishTalk(ctx, t.ID); err != nil {
		return nil, err
	}
	t.Finished = true
	log.WithFields(log.Fields{
		"speaker_id":      speakerID,
		"speaker_talk_id": t.ID,
	}).Info("Спикер завершил доклад")
	return t, nil
}

// Questions — вопросы к выступлению в порядке поступления.
func (s *Service) Questions(ctx context.Context, speakerTalkID int64) ([]*Question, error) {
	return s.store.ListQuestions(ctx, speakerTalkID)
}

// Program — выступления мероприятий, которые ещё не закончились.
func (s *Service) Program(ctx context.Context) ([]*SpeakerTalk, error) {
	return s.store.ListScheduledTalks(ctx, s.now())
}

// SpeakerTalks — незавершённые выступления спикера.
func (s *Service) SpeakerTalks(ctx context.Context, speakerID int64) ([]*SpeakerTalk, error) {
	return s.store.ListSpeakerTalks(ctx, speakerID)
}

// DueReminders — регистрации на мероприятия, начинающиеся в ближайшие lead.
func (s *Service) DueReminders(ctx context.Context, lead time.Duration) ([]*Reminder, error) {
	now := s.now()
	return s.store.DueReminders(ctx, now, now.Add(lead))
}

func (s *Service) MarkReminded(ctx context.Context, registrationID int64) error {
	return s.store.MarkReminded(ctx, registrationID)
}

// IsConflict извлекает ConflictError из цепочки ошибок.
func IsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
