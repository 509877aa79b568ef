package members

import (
	"context"
	"strconv"
)

// Store — операции хранилища участников.
// Реализуется *Repository (PostgreSQL) и in-memory хранилищем в тестах.
// Отсутствие записи — common.ErrNotFound.
type Store interface {
	UpsertUser(ctx context.Context, tgID int64, username, firstName string) (*User, error)
	GetUser(ctx context.Context, tgID int64) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	SetOrganizer(ctx context.Context, userID int64, on bool) error
	SetSpeaker(ctx context.Context, userID int64, on bool) error
	ListOrganizers(ctx context.Context) ([]*User, error)
	ListUsers(ctx context.Context) ([]*User, error)

	GetGuest(ctx context.Context, userID int64) (*Guest, error)
	GetGuestByID(ctx context.Context, id int64) (*Guest, error)
	// CreateGuest возвращает существующий профиль, если он уже есть (created=false).
	CreateGuest(ctx context.Context, userID int64, name string) (g *Guest, created bool, err error)
	UpdateGuestBio(ctx context.Context, guestID int64, bio string) error
	ListGuestsWithBio(ctx context.Context, exceptGuestID int64) ([]*Guest, error)

	GetSpeaker(ctx context.Context, id int64) (*Speaker, error)
	GetSpeakerByUser(ctx context.Context, userID int64) (*Speaker, error)
	// CreateSpeaker — common.ErrSpeakerExists, если у пользователя уже есть профиль.
	CreateSpeaker(ctx context.Context, userID int64, name string) (*Speaker, error)
	DeleteSpeaker(ctx context.Context, id int64) error
	ListSpeakers(ctx context.Context) ([]*Speaker, error)
	ListPendingSpeakers(ctx context.Context) ([]*Speaker, error)

	CreateProspect(ctx context.Context, p *Prospect) error
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

var _ Store = (*Repository)(nil)
