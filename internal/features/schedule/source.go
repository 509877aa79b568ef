// Package schedule — программа митапа и «текущий доклад».
//
// Источников два: JSON-файл со временем «ЧЧ:ММ» (лёгкий режим без БД)
// и выступления спикеров из PostgreSQL.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/features/events"
)

// Entry — строка программы.
type Entry struct {
	SpeakerName string
	Title       string
	Start       time.Time
	End         time.Time

	// Заполнены только для выступлений из БД.
	SpeakerTalkID int64
	SpeakerTG     int64
	EventID       int64
	EventName     string
	Finished      bool
}

// Source отдаёт программу и доклад, идущий сейчас.
type Source interface {
	// All — вся программа в порядке источника.
	All(ctx context.Context) ([]Entry, error)
	// Current — доклад, окно которого содержит текущий момент, или common.ErrNotFound.
	Current(ctx context.Context) (*Entry, error)
}

// clockLayout — формат времени в файле расписания.
const clockLayout = "15:04"

// maxOvernight — самое длинное окно через полночь ("23:30"-"00:30").
// Более длинное «переходящее» окно считаем перепутанными началом и концом.
const maxOvernight = 6 * time.Hour

type fileEntry struct {
	SpeakerName string `json:"speaker_name"`
	TalkTitle   string `json:"talk_title"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// FileSource читает расписание из JSON-файла при каждом запросе,
// поэтому правка файла подхватывается без перезапуска.
type FileSource struct {
	path string
	loc  *time.Location
	now  func() time.Time
}

func NewFileSource(path string, loc *time.Location) *FileSource {
	return &FileSource{path: path, loc: loc, now: time.Now}
}

// WithClock подменяет часы (для тестов).
func (s *FileSource) WithClock(now func() time.Time) *FileSource {
	s.now = now
	return s
}

// All возвращает корректные записи файла. Нет файла или битый JSON —
// пустой список, битые записи пропускаются.
func (s *FileSource) All(_ context.Context) ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("path", s.path).Warn("Файл расписания не найден")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения расписания %s: %w", s.path, err)
	}

	var raw []fileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		log.WithError(err).WithField("path", s.path).Warn("Некорректный JSON в файле расписания")
		return nil, nil
	}

	out := make([]Entry, 0, len(raw))
	for i, r := range raw {
		e, err := r.parse()
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"path":  s.path,
				"index": i,
			}).Warn("Пропущена запись расписания")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Current — первая по порядку в файле запись с окном [начало, конец),
// содержащим текущее время дня. Окно может переходить через полночь.
func (s *FileSource) Current(ctx context.Context) (*Entry, error) {
	list, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().In(s.loc)
	clock := time.Date(0, 1, 1, now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
	for i := range list {
		e := &list[i]
		if e.covers(clock) || e.covers(clock.Add(24*time.Hour)) {
			return e, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r fileEntry) parse() (Entry, error) {
	if r.SpeakerName == "" || r.TalkTitle == "" {
		return Entry{}, fmt.Errorf("не указан спикер или тема")
	}
	start, err := time.Parse(clockLayout, r.StartTime)
	if err != nil {
		return Entry{}, fmt.Errorf("start_time %q: %w", r.StartTime, err)
	}
	end, err := time.Parse(clockLayout, r.EndTime)
	if err != nil {
		return Entry{}, fmt.Errorf("end_time %q: %w", r.EndTime, err)
	}
	if end.Before(start) {
		// доклад переходит через полночь: конец относится к следующим суткам
		end = end.Add(24 * time.Hour)
		if end.Sub(start) > maxOvernight {
			return Entry{}, fmt.Errorf("начало %s позже окончания %s", r.StartTime, r.EndTime)
		}
	}
	if !start.Before(end) {
		return Entry{}, fmt.Errorf("начало %s совпадает с окончанием", r.StartTime)
	}
	return Entry{
		SpeakerName: r.SpeakerName,
		Title:       r.TalkTitle,
		Start:       start,
		End:         end,
	}, nil
}

// covers — попадает ли время дня в полуоткрытое окно [Start, End).
func (e *Entry) covers(clock time.Time) bool {
	return !clock.Before(e.Start) && clock.Before(e.End)
}

// DBSource — программа из выступлений спикеров в БД.
type DBSource struct {
	events *events.Service
}

func NewDBSource(eventService *events.Service) *DBSource {
	return &DBSource{events: eventService}
}

func (s *DBSource) All(ctx context.Context) ([]Entry, error) {
	talks, err := s.events.Program(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(talks))
	for _, t := range talks {
		out = append(out, fromTalk(t))
	}
	return out, nil
}

// Current — незавершённое выступление, окно [начало, конец] которого содержит now.
func (s *DBSource) Current(ctx context.Context) (*Entry, error) {
	t, err := s.events.CurrentTalk(ctx)
	if err != nil {
		return nil, err
	}
	e := fromTalk(t)
	return &e, nil
}

func fromTalk(t *events.SpeakerTalk) Entry {
	return Entry{
		SpeakerName:   t.SpeakerName,
		Title:         t.Title,
		Start:         t.StartAt,
		End:           t.EndAt,
		SpeakerTalkID: t.ID,
		SpeakerTG:     t.SpeakerUserTG,
		EventID:       t.EventID,
		EventName:     t.EventName,
		Finished:      t.Finished,
	}
}

var (
	_ Source = (*FileSource)(nil)
	_ Source = (*DBSource)(nil)
)
