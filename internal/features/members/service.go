// Package members — service.go содержит бизнес-логику ролей:
// определение роли по сохранённым флагам, профили гостей,
// заявки спикеров и их одобрение организатором.
package members

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/common"
)

// Service управляет участниками.
// Связывает обработчики Telegram-событий с хранилищем.
type Service struct {
	store Store
}

// NewService создаёт новый сервис участников.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// EnsureUser гарантирует, что пользователь есть в базе, и обновляет имя/username.
// Вызывается на каждый апдейт до маршрутизации.
func (s *Service) EnsureUser(ctx context.Context, tgID int64, username, firstName string) (*User, error) {
	u, err := s.store.UpsertUser(ctx, tgID, username, firstName)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// User возвращает пользователя по Telegram ID.
func (s *Service) User(ctx context.Context, tgID int64) (*User, error) {
	return s.store.GetUser(ctx, tgID)
}

// ResolveRole определяет роль по сохранённым данным.
// Приоритет: организатор > спикер > гость > не определена.
func (s *Service) ResolveRole(ctx context.Context, u *User) (Role, error) {
	if u.IsOrganizer {
		return RoleOrganizer, nil
	}
	if u.IsSpeaker {
		return RoleSpeaker, nil
	}
	_, err := s.store.GetGuest(ctx, u.ID)
	switch {
	case err == nil:
		return RoleGuest, nil
	case errors.Is(err, common.ErrNotFound):
		return RoleNone, nil
	}
	return RoleNone, err
}

// Guest возвращает профиль гостя или common.ErrNotFound.
func (s *Service) Guest(ctx context.Context, u *User) (*Guest, error) {
	return s.store.GetGuest(ctx, u.ID)
}

// EnsureGuest — get-or-create профиля гостя. Имя по умолчанию — имя в Telegram.
func (s *Service) EnsureGuest(ctx context.Context, u *User) (*Guest, error) {
	g, created, err := s.store.CreateGuest(ctx, u.ID, u.FirstName)
	if err != nil {
		return nil, err
	}
	if created {
		log.WithField("user_id", u.TelegramID).Info("Создан профиль гостя")
	}
	return g, nil
}

// SaveBio сохраняет рассказ гостя о себе.
func (s *Service) SaveBio(ctx context.Context, g *Guest, bio string) error {
	if err := s.store.UpdateGuestBio(ctx, g.ID, bio); err != nil {
		return err
	}
	g.Bio = bio
	return nil
}

// Partners — другие гости, заполнившие рассказ о себе.
func (s *Service) Partners(ctx context.Context, g *Guest) ([]*Guest, error) {
	return s.store.ListGuestsWithBio(ctx, g.ID)
}

// PromoteOrganizer выставляет флаг организатора. Повторный вызов ничего не меняет:
// changed=false, если флаг уже стоял.
func (s *Service) PromoteOrganizer(ctx context.Context, u *User) (bool, error) {
	if u.IsOrganizer {
		return false, nil
	}
	if err := s.store.SetOrganizer(ctx, u.ID, true); err != nil {
		return false, err
	}
	u.IsOrganizer = true
	log.WithField("user_id", u.TelegramID).Info("Пользователь подтвердил роль организатора")
	return true, nil
}

// RequestSpeaker создаёт заявку спикера, если её ещё нет.
// Гонку двух одновременных заявок разрешает уникальность speakers.user_id.
func (s *Service) RequestSpeaker(ctx context.Context, u *User) (*Speaker, SpeakerRequest, error) {
	if u.IsSpeaker {
		sp, err := s.store.GetSpeakerByUser(ctx, u.ID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, 0, err
		}
		return sp, SpeakerRequestApproved, nil
	}

	sp, err := s.store.GetSpeakerByUser(ctx, u.ID)
	if err == nil {
		return sp, SpeakerRequestPending, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, 0, err
	}

	sp, err = s.store.CreateSpeaker(ctx, u.ID, u.FirstName)
	if errors.Is(err, common.ErrSpeakerExists) {
		sp, err = s.store.GetSpeakerByUser(ctx, u.ID)
		if err != nil {
			return nil, 0, err
		}
		return sp, SpeakerRequestPending, nil
	}
	if err != nil {
		return nil, 0, err
	}

	log.WithFields(log.Fields{
		"user_id":    u.TelegramID,
		"speaker_id": sp.ID,
	}).Info("Новая заявка спикера")
	return sp, SpeakerRequestCreated, nil
}

// SpeakerByUser возвращает профиль спикера пользователя или common.ErrNotFound.
func (s *Service) SpeakerByUser(ctx context.Context, u *User) (*Speaker, error) {
	return s.store.GetSpeakerByUser(ctx, u.ID)
}

func (s *Service) Speaker(ctx context.Context, id int64) (*Speaker, error) {
	return s.store.GetSpeaker(ctx, id)
}

// ApproveSpeaker выставляет владельцу заявки флаг спикера.
func (s *Service) ApproveSpeaker(ctx context.Context, speakerID int64) (*Speaker, error) {
	sp, err := s.store.GetSpeaker(ctx, speakerID)
	if err != nil {
		return nil, err
	}
	if sp.Approved {
		return sp, nil
	}
	if err := s.store.SetSpeaker(ctx, sp.UserID, true); err != nil {
		return nil, fmt.Errorf("ошибка одобрения спикера %d: %w", speakerID, err)
	}
	sp.Approved = true
	return sp, nil
}

// RejectSpeaker удаляет заявку. Одобренного спикера отклонить нельзя:
// для него возвращается профиль и approved=true без изменений.
func (s *Service) RejectSpeaker(ctx context.Context, speakerID int64) (sp *Speaker, approved bool, err error) {
	sp, err = s.store.GetSpeaker(ctx, speakerID)
	if err != nil {
		return nil, false, err
	}
	if sp.Approved {
		return sp, true, nil
	}
	if err := s.store.DeleteSpeaker(ctx, speakerID); err != nil {
		return nil, false, err
	}
	return sp, false, nil
}

func (s *Service) Organizers(ctx context.Context) ([]*User, error) {
	return s.store.ListOrganizers(ctx)
}

func (s *Service) Users(ctx context.Context) ([]*User, error) {
	return s.store.ListUsers(ctx)
}

// Speakers — одобренные спикеры.
func (s *Service) Speakers(ctx context.Context) ([]*Speaker, error) {
	return s.store.ListSpeakers(ctx)
}

func (s *Service) PendingSpeakers(ctx context.Context) ([]*Speaker, error) {
	return s.store.ListPendingSpeakers(ctx)
}

// AddProspect добавляет потенциального спикера в резерв.
func (s *Service) AddProspect(ctx context.Context, p *Prospect) error {
	if err := s.store.CreateProspect(ctx, p); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"prospect_id": p.ID,
		"added_by":    p.AddedBy,
	}).Info("Потенциальный спикер добавлен в резерв")
	return nil
}
