// Package jobs — фоновые задачи по расписанию cron.
// Сейчас одна задача: напоминания гостям о мероприятиях, на которые они записаны.
package jobs

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/telegram"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron   *cron.Cron
	events *events.Service
	sender telegram.Sender
	loc    *time.Location

	reminderSpec string
	reminderLead time.Duration
}

// NewScheduler создаёт планировщик в часовом поясе мероприятия.
func NewScheduler(eventService *events.Service, sender telegram.Sender, loc *time.Location, reminderSpec string, reminderLead time.Duration) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		events:       eventService,
		sender:       sender,
		loc:          loc,
		reminderSpec: reminderSpec,
		reminderLead: reminderLead,
	}
}

// Start регистрирует задачи и запускает cron. Ошибка — только при неверном выражении.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.reminderSpec, func() {
		log.Debug("[CRON] Проверка напоминаний")
		sent, err := s.SendReminders(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка напоминаний")
			return
		}
		if sent > 0 {
			log.WithField("sent", sent).Info("[CRON] Напоминания отправлены")
		}
	})
	if err != nil {
		return fmt.Errorf("некорректное расписание напоминаний %q: %w", s.reminderSpec, err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"cron": s.reminderSpec,
		"lead": s.reminderLead,
		"tz":   s.loc.String(),
	}).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт завершения текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// SendReminders напоминает о мероприятиях, начинающихся в ближайшие reminderLead.
// Регистрация помечается только после успешной отправки: недоставленное
// напоминание повторится при следующем запуске.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	due, err := s.events.DueReminders(ctx, s.reminderLead)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if _, err := s.sender.Send(tgbotapi.NewMessage(r.TelegramID, ReminderText(&r.Event, s.loc))); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"user_id":         r.TelegramID,
				"registration_id": r.RegistrationID,
			}).Warn("Не удалось отправить напоминание")
			continue
		}
		if err := s.events.MarkReminded(ctx, r.RegistrationID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// ReminderText — текст напоминания о мероприятии.
func ReminderText(ev *events.Event, loc *time.Location) string {
	text := fmt.Sprintf("Напоминаем: «%s» начнётся %s.", ev.Name, common.FormatDateTime(ev.StartAt, loc))
	if ev.Address != "" {
		text += "\nГде: " + ev.Address
	}
	return text + "\nДо встречи!"
}
