// Package testutil — тестовые двойники внешних зависимостей:
// хранилище в памяти вместо PostgreSQL и записывающий Sender вместо Telegram.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"pymeetup.ru/meetup-bot/internal/common"
	"pymeetup.ru/meetup-bot/internal/features/events"
	"pymeetup.ru/meetup-bot/internal/features/members"
)

// MemStore реализует members.Store и events.Store в памяти.
// Уникальные ограничения схемы (tg_id, guests.user_id, guests.phone,
// speakers.user_id, (guest_id, event_id)) проверяются так же, как в БД.
type MemStore struct {
	mu sync.Mutex

	seq int64

	users         map[int64]*members.User // по users.id
	guests        map[int64]*members.Guest
	speakers      map[int64]*members.Speaker
	prospects     []*members.Prospect
	eventsByID    map[int64]*events.Event
	talks         map[int64]*events.Talk
	speakerTalks  map[int64]*events.SpeakerTalk
	registrations map[int64]*events.Registration
	questions     []*events.Question
}

var (
	_ members.Store = (*MemStore)(nil)
	_ events.Store  = (*MemStore)(nil)
)

func NewMemStore() *MemStore {
	return &MemStore{
		users:         make(map[int64]*members.User),
		guests:        make(map[int64]*members.Guest),
		speakers:      make(map[int64]*members.Speaker),
		eventsByID:    make(map[int64]*events.Event),
		talks:         make(map[int64]*events.Talk),
		speakerTalks:  make(map[int64]*events.SpeakerTalk),
		registrations: make(map[int64]*events.Registration),
	}
}

func (m *MemStore) nextID() int64 {
	m.seq++
	return m.seq
}

// --- members.Store ---

func (m *MemStore) UpsertUser(_ context.Context, tgID int64, username, firstName string) (*members.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u := m.userByTG(tgID); u != nil {
		u.Username = username
		u.FirstName = firstName
		cp := *u
		return &cp, nil
	}
	u := &members.User{
		ID:         m.nextID(),
		TelegramID: tgID,
		Username:   username,
		FirstName:  firstName,
		CreatedAt:  time.Now(),
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *MemStore) GetUser(_ context.Context, tgID int64) (*members.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.userByTG(tgID)
	if u == nil {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemStore) GetUserByID(_ context.Context, id int64) (*members.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemStore) SetOrganizer(_ context.Context, userID int64, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.IsOrganizer = on
	return nil
}

func (m *MemStore) SetSpeaker(_ context.Context, userID int64, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.IsSpeaker = on
	return nil
}

func (m *MemStore) ListOrganizers(_ context.Context) ([]*members.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*members.User
	for _, u := range m.sortedUsers() {
		if u.IsOrganizer {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemStore) ListUsers(_ context.Context) ([]*members.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*members.User
	for _, u := range m.sortedUsers() {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemStore) GetGuest(_ context.Context, userID int64) (*members.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.guestByUser(userID)
	if g == nil {
		return nil, common.ErrNotFound
	}
	return m.hydrateGuest(g), nil
}

func (m *MemStore) GetGuestByID(_ context.Context, id int64) (*members.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.guests[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return m.hydrateGuest(g), nil
}

func (m *MemStore) CreateGuest(_ context.Context, userID int64, name string) (*members.Guest, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return nil, false, common.ErrNotFound
	}
	if g := m.guestByUser(userID); g != nil {
		return m.hydrateGuest(g), false, nil
	}
	g := &members.Guest{ID: m.nextID(), UserID: userID, Name: name}
	m.guests[g.ID] = g
	return m.hydrateGuest(g), true, nil
}

func (m *MemStore) UpdateGuestBio(_ context.Context, guestID int64, bio string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.guests[guestID]
	if !ok {
		return common.ErrNotFound
	}
	g.Bio = bio
	return nil
}

func (m *MemStore) ListGuestsWithBio(_ context.Context, exceptGuestID int64) ([]*members.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*members.Guest
	for _, id := range sortedKeys(m.guests) {
		g := m.guests[id]
		if g.Bio != "" && g.ID != exceptGuestID {
			out = append(out, m.hydrateGuest(g))
		}
	}
	return out, nil
}

func (m *MemStore) GetSpeaker(_ context.Context, id int64) (*members.Speaker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.speakers[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return m.hydrateSpeaker(s), nil
}

func (m *MemStore) GetSpeakerByUser(_ context.Context, userID int64) (*members.Speaker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.speakers {
		if s.UserID == userID {
			return m.hydrateSpeaker(s), nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *MemStore) CreateSpeaker(_ context.Context, userID int64, name string) (*members.Speaker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return nil, common.ErrNotFound
	}
	for _, s := range m.speakers {
		if s.UserID == userID {
			return nil, common.ErrSpeakerExists
		}
	}
	s := &members.Speaker{ID: m.nextID(), UserID: userID, Name: name, CreatedAt: time.Now()}
	m.speakers[s.ID] = s
	return m.hydrateSpeaker(s), nil
}

func (m *MemStore) DeleteSpeaker(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.speakers[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.speakers, id)
	return nil
}

func (m *MemStore) ListSpeakers(_ context.Context) ([]*members.Speaker, error) {
	return m.listSpeakers(true), nil
}

func (m *MemStore) ListPendingSpeakers(_ context.Context) ([]*members.Speaker, error) {
	return m.listSpeakers(false), nil
}

func (m *MemStore) CreateProspect(_ context.Context, p *members.Prospect) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = m.nextID()
	p.CreatedAt = time.Now()
	cp := *p
	m.prospects = append(m.prospects, &cp)
	return nil
}

// --- events.Store ---

func (m *MemStore) ListUpcomingEvents(_ context.Context, now time.Time) ([]*events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*events.Event
	for _, ev := range m.sortedEvents() {
		if ev.EndAt.After(now) {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemStore) ListEvents(_ context.Context) ([]*events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*events.Event
	for _, ev := range m.sortedEvents() {
		cp := *ev
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemStore) GetEvent(_ context.Context, id int64) (*events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.eventsByID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *MemStore) Register(_ context.Context, guestID, eventID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.register(guestID, eventID)
}

func (m *MemStore) RegisterWithProfile(_ context.Context, guestID, eventID int64, p events.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.eventsByID[eventID]; !ok {
		return common.ErrNotFound
	}
	g, ok := m.guests[guestID]
	if !ok {
		return common.ErrNotFound
	}
	for _, other := range m.guests {
		if other.ID != guestID && p.Phone != "" && other.Phone == p.Phone {
			return common.ErrPhoneTaken
		}
	}
	if m.hasRegistration(guestID, eventID) {
		return common.ErrAlreadyRegistered
	}

	g.Name = p.Name
	g.Phone = p.Phone
	g.Stack = p.Stack
	g.Registered = true
	return m.register(guestID, eventID)
}

func (m *MemStore) CreateTalk(_ context.Context, eventID, speakerID int64, title string, start, end time.Time) (*events.SpeakerTalk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.eventsByID[eventID]; !ok {
		return nil, common.ErrNotFound
	}
	if _, ok := m.speakers[speakerID]; !ok {
		return nil, common.ErrNotFound
	}
	talk := &events.Talk{ID: m.nextID(), EventID: eventID, Title: title}
	m.talks[talk.ID] = talk
	st := &events.SpeakerTalk{
		ID:        m.nextID(),
		TalkID:    talk.ID,
		SpeakerID: speakerID,
		StartAt:   start,
		EndAt:     end,
	}
	m.speakerTalks[st.ID] = st
	return m.hydrateTalk(st), nil
}

func (m *MemStore) GetSpeakerTalk(_ context.Context, id int64) (*events.SpeakerTalk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.speakerTalks[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return m.hydrateTalk(st), nil
}

func (m *MemStore) CurrentSpeakerTalks(_ context.Context, now time.Time) ([]*events.SpeakerTalk, error) {
	return m.filterTalks(func(t *events.SpeakerTalk) bool { return t.InProgress(now) }), nil
}

func (m *MemStore) ListSpeakerTalks(_ context.Context, speakerID int64) ([]*events.SpeakerTalk, error) {
	return m.filterTalks(func(t *events.SpeakerTalk) bool {
		return t.SpeakerID == speakerID && !t.Finished
	}), nil
}

func (m *MemStore) ListEventTalks(_ context.Context, eventID int64) ([]*events.SpeakerTalk, error) {
	return m.filterTalks(func(t *events.SpeakerTalk) bool {
		return t.EventID == eventID && !t.Finished
	}), nil
}

func (m *MemStore) ListScheduledTalks(_ context.Context, now time.Time) ([]*events.SpeakerTalk, error) {
	m.mu.Lock()
	ended := make(map[int64]bool)
	for id, ev := range m.eventsByID {
		ended[id] = !ev.EndAt.After(now)
	}
	m.mu.Unlock()

	return m.filterTalks(func(t *events.SpeakerTalk) bool { return !ended[t.EventID] }), nil
}

func (m *MemStore) UpdateTalkWindow(_ context.Context, id int64, start, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.speakerTalks[id]
	if !ok {
		return common.ErrNotFound
	}
	st.StartAt = start
	st.EndAt = end
	return nil
}

func (m *MemStore) FinishTalk(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.speakerTalks[id]
	if !ok {
		return common.ErrNotFound
	}
	st.Finished = true
	return nil
}

func (m *MemStore) CreateQuestion(_ context.Context, q *events.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q.ID = m.nextID()
	q.CreatedAt = time.Now()
	cp := *q
	m.questions = append(m.questions, &cp)
	return nil
}

func (m *MemStore) ListQuestions(_ context.Context, speakerTalkID int64) ([]*events.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*events.Question
	for _, q := range m.questions {
		if q.SpeakerTalkID != speakerTalkID {
			continue
		}
		cp := *q
		if g, ok := m.guests[q.GuestID]; ok {
			cp.GuestName = g.Name
			if u, ok := m.users[g.UserID]; ok {
				cp.GuestUsername = u.Username
			}
		}
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemStore) DueReminders(_ context.Context, from, to time.Time) ([]*events.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*events.Reminder
	for _, id := range sortedKeys(m.registrations) {
		r := m.registrations[id]
		ev := m.eventsByID[r.EventID]
		if r.Reminded || ev == nil || !ev.StartAt.After(from) || ev.StartAt.After(to) {
			continue
		}
		g := m.guests[r.GuestID]
		u := m.users[g.UserID]
		out = append(out, &events.Reminder{RegistrationID: r.ID, TelegramID: u.TelegramID, Event: *ev})
	}
	return out, nil
}

func (m *MemStore) MarkReminded(_ context.Context, registrationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.registrations[registrationID]; ok {
		r.Reminded = true
	}
	return nil
}

// --- заполнение и проверки в тестах ---

// AddEvent добавляет мероприятие и возвращает его с присвоенным ID.
func (m *MemStore) AddEvent(name string, start, end time.Time) *events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev := &events.Event{ID: m.nextID(), Name: name, StartAt: start, EndAt: end}
	m.eventsByID[ev.ID] = ev
	cp := *ev
	return &cp
}

// SetTalkFinished меняет флаг завершения в обход сервиса.
func (m *MemStore) SetTalkFinished(id int64, finished bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.speakerTalks[id]; ok {
		st.Finished = finished
	}
}

// Questions — все сохранённые вопросы.
func (m *MemStore) Questions() []events.Question {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]events.Question, 0, len(m.questions))
	for _, q := range m.questions {
		out = append(out, *q)
	}
	return out
}

// Registrations — все регистрации гостя.
func (m *MemStore) Registrations(guestID int64) []events.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []events.Registration
	for _, id := range sortedKeys(m.registrations) {
		if r := m.registrations[id]; r.GuestID == guestID {
			out = append(out, *r)
		}
	}
	return out
}

// Prospects — резерв потенциальных спикеров.
func (m *MemStore) Prospects() []members.Prospect {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]members.Prospect, 0, len(m.prospects))
	for _, p := range m.prospects {
		out = append(out, *p)
	}
	return out
}

// --- внутреннее ---

func (m *MemStore) userByTG(tgID int64) *members.User {
	for _, u := range m.users {
		if u.TelegramID == tgID {
			return u
		}
	}
	return nil
}

func (m *MemStore) guestByUser(userID int64) *members.Guest {
	for _, g := range m.guests {
		if g.UserID == userID {
			return g
		}
	}
	return nil
}

func (m *MemStore) sortedUsers() []*members.User {
	out := make([]*members.User, 0, len(m.users))
	for _, id := range sortedKeys(m.users) {
		out = append(out, m.users[id])
	}
	return out
}

func (m *MemStore) sortedEvents() []*events.Event {
	out := make([]*events.Event, 0, len(m.eventsByID))
	for _, ev := range m.eventsByID {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartAt.Before(out[j].StartAt)
	})
	return out
}

func (m *MemStore) hydrateGuest(g *members.Guest) *members.Guest {
	cp := *g
	if u, ok := m.users[g.UserID]; ok {
		cp.TelegramID = u.TelegramID
		cp.Username = u.Username
	}
	return &cp
}

func (m *MemStore) hydrateSpeaker(s *members.Speaker) *members.Speaker {
	cp := *s
	if u, ok := m.users[s.UserID]; ok {
		cp.TelegramID = u.TelegramID
		cp.Username = u.Username
		cp.Approved = u.IsSpeaker
	}
	return &cp
}

func (m *MemStore) listSpeakers(approved bool) []*members.Speaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*members.Speaker
	for _, id := range sortedKeys(m.speakers) {
		s := m.hydrateSpeaker(m.speakers[id])
		if s.Approved == approved {
			out = append(out, s)
		}
	}
	return out
}

func (m *MemStore) hydrateTalk(st *events.SpeakerTalk) *events.SpeakerTalk {
	cp := *st
	if talk, ok := m.talks[st.TalkID]; ok {
		cp.Title = talk.Title
		cp.EventID = talk.EventID
		if ev, ok := m.eventsByID[talk.EventID]; ok {
			cp.EventName = ev.Name
		}
	}
	if s, ok := m.speakers[st.SpeakerID]; ok {
		h := m.hydrateSpeaker(s)
		cp.SpeakerName = h.DisplayName()
		cp.SpeakerUserTG = h.TelegramID
	}
	return &cp
}

func (m *MemStore) filterTalks(keep func(*events.SpeakerTalk) bool) []*events.SpeakerTalk {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*events.SpeakerTalk
	for _, st := range m.speakerTalks {
		t := m.hydrateTalk(st)
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartAt.Before(out[j].StartAt)
	})
	return out
}

func (m *MemStore) hasRegistration(guestID, eventID int64) bool {
	for _, r := range m.registrations {
		if r.GuestID == guestID && r.EventID == eventID {
			return true
		}
	}
	return false
}

func (m *MemStore) register(guestID, eventID int64) error {
	if _, ok := m.guests[guestID]; !ok {
		return common.ErrNotFound
	}
	if _, ok := m.eventsByID[eventID]; !ok {
		return common.ErrNotFound
	}
	if m.hasRegistration(guestID, eventID) {
		return common.ErrAlreadyRegistered
	}
	r := &events.Registration{ID: m.nextID(), GuestID: guestID, EventID: eventID, CreatedAt: time.Now()}
	m.registrations[r.ID] = r
	return nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
