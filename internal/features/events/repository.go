// Package events — repository.go: SQL-запросы к таблицам events, talks,
// speaker_talks, registrations и questions.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/db/postgres"
)

// Имена уникальных ограничений из миграций.
const (
	constraintGuestPhone        = "guests_phone_key"
	constraintRegistrationGuest = "registrations_guest_event_key"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const eventColumns = `e.id, e.name, e.description, e.address, e.start_at, e.end_at`

const speakerTalkSelect = `
	SELECT st.id, st.talk_id, st.speaker_id, st.start_at, st.end_at, st.finished,
	       t.event_id, e.name, t.title,
	       COALESCE(NULLIF(s.name, ''), '@' || NULLIF(u.username, ''), u.first_name),
	       u.tg_id
	FROM speaker_talks st
	JOIN talks t ON t.id = st.talk_id
	JOIN events e ON e.id = t.event_id
	JOIN speakers s ON s.id = st.speaker_id
	JOIN users u ON u.id = s.user_id`

func (r *Repository) ListUpcomingEvents(ctx context.Context, now time.Time) ([]*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.end_at > $1 ORDER BY e.start_at, e.id`
	return r.queryEvents(ctx, query, now)
}

func (r *Repository) ListEvents(ctx context.Context) ([]*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e ORDER BY e.start_at, e.id`
	return r.queryEvents(ctx, query)
}

func (r *Repository) GetEvent(ctx context.Context, id int64) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1`
	ev, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения мероприятия (id=%d): %w", id, err)
	}
	return ev, nil
}

func (r *Repository) Register(ctx context.Context, guestID, eventID int64) error {
	query := `INSERT INTO registrations (guest_id, event_id) VALUES ($1, $2)`
	if _, err := r.db.Exec(ctx, query, guestID, eventID); err != nil {
		return mapRegistrationErr(err)
	}
	return nil
}

func (r *Repository) RegisterWithProfile(ctx context.Context, guestID, eventID int64, p Profile) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return fmt.Errorf("ошибка проверки мероприятия: %w", err)
	}
	if !exists {
		return common.ErrNotFound
	}

	tag, err := tx.Exec(ctx, `
		UPDATE guests
		SET name = $2, phone = $3, stack = $4, registered = TRUE, updated_at = NOW()
		WHERE id = $1`,
		guestID, p.Name, p.Phone, p.Stack,
	)
	if err != nil {
		if name, ok := postgres.UniqueViolation(err); ok && name == constraintGuestPhone {
			return common.ErrPhoneTaken
		}
		return fmt.Errorf("ошибка обновления профиля гостя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO registrations (guest_id, event_id) VALUES ($1, $2)`, guestID, eventID,
	); err != nil {
		return mapRegistrationErr(err)
	}

	return tx.Commit(ctx)
}

func (r *Repository) CreateTalk(ctx context.Context, eventID, speakerID int64, title string, start, end time.Time) (*SpeakerTalk, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var talkID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO talks (event_id, title) VALUES ($1, $2) RETURNING id`, eventID, title,
	).Scan(&talkID)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания доклада: %w", err)
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO speaker_talks (talk_id, speaker_id, start_at, end_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		talkID, speakerID, start, end,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи спикера на доклад: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return r.GetSpeakerTalk(ctx, id)
}

func (r *Repository) GetSpeakerTalk(ctx context.Context, id int64) (*SpeakerTalk, error) {
	t, err := scanSpeakerTalk(r.db.QueryRow(ctx, speakerTalkSelect+` WHERE st.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения выступления (id=%d): %w", id, err)
	}
	return t, nil
}

func (r *Repository) CurrentSpeakerTalks(ctx context.Context, now time.Time) ([]*SpeakerTalk, error) {
	query := speakerTalkSelect + `
		WHERE st.finished = FALSE AND st.start_at <= $1 AND st.end_at >= $1
		ORDER BY st.start_at, st.id`
	return r.querySpeakerTalks(ctx, query, now)
}

func (r *Repository) ListSpeakerTalks(ctx context.Context, speakerID int64) ([]*SpeakerTalk, error) {
	query := speakerTalkSelect + `
		WHERE st.speaker_id = $1 AND st.finished = FALSE
		ORDER BY st.start_at, st.id`
	return r.querySpeakerTalks(ctx, query, speakerID)
}

func (r *Repository) ListEventTalks(ctx context.Context, eventID int64) ([]*SpeakerTalk, error) {
	query := speakerTalkSelect + `
		WHERE t.event_id = $1 AND st.finished = FALSE
		ORDER BY st.start_at, st.id`
	return r.querySpeakerTalks(ctx, query, eventID)
}

func (r *Repository) ListScheduledTalks(ctx context.Context, now time.Time) ([]*SpeakerTalk, error) {
	query := speakerTalkSelect + `
		WHERE e.end_at > $1
		ORDER BY st.start_at, st.id`
	return r.querySpeakerTalks(ctx, query, now)
}

func (r *Repository) UpdateTalkWindow(ctx context.Context, id int64, start, end time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE speaker_talks SET start_at = $2, end_at = $3 WHERE id = $1`, id, start, end)
	if err != nil {
		return fmt.Errorf("ошибка переноса выступления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *Repository) FinishTalk(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE speaker_talks SET finished = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка завершения выступления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateQuestion(ctx context.Context, q *Question) error {
	query := `
		INSERT INTO questions (speaker_id, guest_id, event_id, speaker_talk_id, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		q.SpeakerID, q.GuestID, q.EventID, q.SpeakerTalkID, q.Text,
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения вопроса: %w", err)
	}
	return nil
}

func (r *Repository) ListQuestions(ctx context.Context, speakerTalkID int64) ([]*Question, error) {
	query := `
		SELECT q.id, q.speaker_id, q.guest_id, q.event_id, q.speaker_talk_id, q.text, q.created_at,
		       g.name, u.username
		FROM questions q
		JOIN guests g ON g.id = q.guest_id
		JOIN users u ON u.id = g.user_id
		WHERE q.speaker_talk_id = $1
		ORDER BY q.created_at, q.id`
	rows, err := r.db.Query(ctx, query, speakerTalkID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса вопросов: %w", err)
	}
	defer rows.Close()

	var out []*Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(
			&q.ID, &q.SpeakerID, &q.GuestID, &q.EventID, &q.SpeakerTalkID, &q.Text, &q.CreatedAt,
			&q.GuestName, &q.GuestUsername,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func (r *Repository) DueReminders(ctx context.Context, from, to time.Time) ([]*Reminder, error) {
	query := `
		SELECT r.id, u.tg_id, ` + eventColumns + `
		FROM registrations r
		JOIN guests g ON g.id = r.guest_id
		JOIN users u ON u.id = g.user_id
		JOIN events e ON e.id = r.event_id
		WHERE r.reminded = FALSE AND e.start_at > $1 AND e.start_at <= $2
		ORDER BY e.start_at, r.id`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса напоминаний: %w", err)
	}
	defer rows.Close()

	var out []*Reminder
	for rows.Next() {
		var rem Reminder
		ev := &rem.Event
		if err := rows.Scan(
			&rem.RegistrationID, &rem.TelegramID,
			&ev.ID, &ev.Name, &ev.Description, &ev.Address, &ev.StartAt, &ev.EndAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, &rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func (r *Repository) MarkReminded(ctx context.Context, registrationID int64) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE registrations SET reminded = TRUE WHERE id = $1`, registrationID,
	); err != nil {
		return fmt.Errorf("ошибка отметки напоминания: %w", err)
	}
	return nil
}

func (r *Repository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса мероприятий: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func (r *Repository) querySpeakerTalks(ctx context.Context, query string, args ...interface{}) ([]*SpeakerTalk, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса выступлений: %w", err)
	}
	defer rows.Close()

	var out []*SpeakerTalk
	for rows.Next() {
		t, err := scanSpeakerTalk(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	var ev Event
	if err := row.Scan(&ev.ID, &ev.Name, &ev.Description, &ev.Address, &ev.StartAt, &ev.EndAt); err != nil {
		return nil, err
	}
	return &ev, nil
}

func scanSpeakerTalk(row pgx.Row) (*SpeakerTalk, error) {
	var t SpeakerTalk
	err := row.Scan(
		&t.ID, &t.TalkID, &t.SpeakerID, &t.StartAt, &t.EndAt, &t.Finished,
		&t.EventID, &t.EventName, &t.Title, &t.SpeakerName, &t.SpeakerUserTG,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// mapRegistrationErr: дубль пары (гость, мероприятие) — ErrAlreadyRegistered,
// нарушение внешнего ключа — ErrNotFound.
func mapRegistrationErr(err error) error {
	if name, ok := postgres.UniqueViolation(err); ok && name == constraintRegistrationGuest {
		return common.ErrAlreadyRegistered
	}
	if postgres.ForeignKeyViolation(err) {
		return common.ErrNotFound
	}
	return fmt.Errorf("ошибка создания регистрации: %w", err)
}
