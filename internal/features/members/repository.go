// Package members — repository.go отвечает за операции с таблицами
// users, guests, speakers и prospective_speakers.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/db/postgres"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, tg_id, username, first_name, is_organizer, is_speaker, created_at`

const guestColumns = `
	g.id, g.user_id, g.name, COALESCE(g.phone, ''), g.stack, g.registered, g.bio,
	u.tg_id, u.username`

const speakerColumns = `
	s.id, s.user_id, s.name, COALESCE(s.phone, ''), s.bio, s.created_at,
	u.tg_id, u.username, u.is_speaker`

// UpsertUser создаёт пользователя или обновляет имя/username (флаги не трогает).
func (r *Repository) UpsertUser(ctx context.Context, tgID int64, username, firstName string) (*User, error) {
	query := `
		INSERT INTO users (tg_id, username, first_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (tg_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    updated_at = NOW()
		RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRow(ctx, query, tgID, username, firstName))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания/обновления пользователя (tg_id=%d): %w", tgID, err)
	}
	return u, nil
}

// GetUser: если не найден — common.ErrNotFound.
func (r *Repository) GetUser(ctx context.Context, tgID int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tg_id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, tgID))
	if err != nil {
		return nil, wrapNotFound(err, "ошибка чтения пользователя (tg_id=%d)", tgID)
	}
	return u, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapNotFound(err, "ошибка чтения пользователя (id=%d)", id)
	}
	return u, nil
}

func (r *Repository) SetOrganizer(ctx context.Context, userID int64, on bool) error {
	query := `UPDATE users SET is_organizer = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, userID, on)
	if err != nil {
		return fmt.Errorf("ошибка обновления флага организатора: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *Repository) SetSpeaker(ctx context.Context, userID int64, on bool) error {
	query := `UPDATE users SET is_speaker = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, userID, on)
	if err != nil {
		return fmt.Errorf("ошибка обновления флага спикера: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *Repository) ListOrganizers(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_organizer = TRUE ORDER BY id`
	return r.queryUsers(ctx, query)
}

func (r *Repository) ListUsers(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	return r.queryUsers(ctx, query)
}

func (r *Repository) GetGuest(ctx context.Context, userID int64) (*Guest, error) {
	query := `SELECT ` + guestColumns + `
		FROM guests g JOIN users u ON u.id = g.user_id
		WHERE g.user_id = $1`
	g, err := scanGuest(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, wrapNotFound(err, "ошибка чтения гостя (user_id=%d)", userID)
	}
	return g, nil
}

func (r *Repository) GetGuestByID(ctx context.Context, id int64) (*Guest, error) {
	query := `SELECT ` + guestColumns + `
		FROM guests g JOIN users u ON u.id = g.user_id
		WHERE g.id = $1`
	g, err := scanGuest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapNotFound(err, "ошибка чтения гостя (id=%d)", id)
	}
	return g, nil
}

// CreateGuest — get-or-create по user_id.
func (r *Repository) CreateGuest(ctx context.Context, userID int64, name string) (*Guest, bool, error) {
	query := `
		INSERT INTO guests (user_id, name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`
	tag, err := r.db.Exec(ctx, query, userID, name)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка создания гостя: %w", err)
	}
	g, err := r.GetGuest(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return g, tag.RowsAffected() == 1, nil
}

func (r *Repository) UpdateGuestBio(ctx context.Context, guestID int64, bio string) error {
	query := `UPDATE guests SET bio = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, guestID, bio)
	if err != nil {
		return fmt.Errorf("ошибка обновления рассказа о себе: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ListGuestsWithBio — гости с заполненным рассказом о себе, кроме exceptGuestID.
func (r *Repository) ListGuestsWithBio(ctx context.Context, exceptGuestID int64) ([]*Guest, error) {
	query := `SELECT ` + guestColumns + `
		FROM guests g JOIN users u ON u.id = g.user_id
		WHERE g.bio <> '' AND g.id <> $1
		ORDER BY g.updated_at DESC`
	rows, err := r.db.Query(ctx, query, exceptGuestID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса гостей: %w", err)
	}
	defer rows.Close()

	var out []*Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func (r *Repository) GetSpeaker(ctx context.Context, id int64) (*Speaker, error) {
	query := `SELECT ` + speakerColumns + `
		FROM speakers s JOIN users u ON u.id = s.user_id
		WHERE s.id = $1`
	s, err := scanSpeaker(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapNotFound(err, "ошибка чтения спикера (id=%d)", id)
	}
	return s, nil
}

func (r *Repository) GetSpeakerByUser(ctx context.Context, userID int64) (*Speaker, error) {
	query := `SELECT ` + speakerColumns + `
		FROM speakers s JOIN users u ON u.id = s.user_id
		WHERE s.user_id = $1`
	s, err := scanSpeaker(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, wrapNotFound(err, "ошибка чтения спикера (user_id=%d)", userID)
	}
	return s, nil
}

// CreateSpeaker создаёт заявку спикера. Уникальность user_id гарантирует БД,
// повторная заявка — common.ErrSpeakerExists.
func (r *Repository) CreateSpeaker(ctx context.Context, userID int64, name string) (*Speaker, error) {
	query := `INSERT INTO speakers (user_id, name) VALUES ($1, $2) RETURNING id`
	var id int64
	if err := r.db.QueryRow(ctx, query, userID, name).Scan(&id); err != nil {
		if _, ok := postgres.UniqueViolation(err); ok {
			return nil, common.ErrSpeakerExists
		}
		return nil, fmt.Errorf("ошибка создания спикера: %w", err)
	}
	return r.GetSpeaker(ctx, id)
}

func (r *Repository) DeleteSpeaker(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM speakers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления спикера: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ListSpeakers — одобренные спикеры.
func (r *Repository) ListSpeakers(ctx context.Context) ([]*Speaker, error) {
	query := `SELECT ` + speakerColumns + `
		FROM speakers s JOIN users u ON u.id = s.user_id
		WHERE u.is_speaker = TRUE
		ORDER BY s.name`
	return r.querySpeakers(ctx, query)
}

// ListPendingSpeakers — заявки, ожидающие решения организатора.
func (r *Repository) ListPendingSpeakers(ctx context.Context) ([]*Speaker, error) {
	query := `SELECT ` + speakerColumns + `
		FROM speakers s JOIN users u ON u.id = s.user_id
		WHERE u.is_speaker = FALSE
		ORDER BY s.created_at`
	return r.querySpeakers(ctx, query)
}

func (r *Repository) CreateProspect(ctx context.Context, p *Prospect) error {
	query := `
		INSERT INTO prospective_speakers (name, contact_info, notes, added_by)
		VALUES ($1, $2, $3, NULLIF($4, 0))
		RETURNING id, created_at`
	if err := r.db.QueryRow(ctx, query, p.Name, p.Contact, p.Notes, p.AddedBy).Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("ошибка добавления в резерв: %w", err)
	}
	return nil
}

func (r *Repository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса пользователей: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func (r *Repository) querySpeakers(ctx context.Context, query string, args ...interface{}) ([]*Speaker, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса спикеров: %w", err)
	}
	defer rows.Close()

	var out []*Speaker
	for rows.Next() {
		s, err := scanSpeaker(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.IsOrganizer, &u.IsSpeaker, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanGuest(row pgx.Row) (*Guest, error) {
	var g Guest
	err := row.Scan(
		&g.ID, &g.UserID, &g.Name, &g.Phone, &g.Stack, &g.Registered, &g.Bio,
		&g.TelegramID, &g.Username,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func scanSpeaker(row pgx.Row) (*Speaker, error) {
	var s Speaker
	err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.Phone, &s.Bio, &s.CreatedAt,
		&s.TelegramID, &s.Username, &s.Approved,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// wrapNotFound превращает pgx.ErrNoRows в common.ErrNotFound,
// остальные ошибки оборачивает с контекстом.
func wrapNotFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
