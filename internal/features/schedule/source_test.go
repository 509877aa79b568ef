package schedule

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymeetup.ru/meetup-bot/internal/common"
)

var msk = time.FixedZone("MSK", 3*60*60)

func writeSchedule(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func at(hour, minute int) func() time.Time {
	return func() time.Time { return time.Date(2025, 6, 1, hour, minute, 0, 0, msk) }
}

const overlapping = `[
	{"speaker_name": "Анна", "talk_title": "Asyncio", "start_time": "10:00", "end_time": "10:45"},
	{"speaker_name": "Борис", "talk_title": "Typing", "start_time": "10:30", "end_time": "11:00"}
]`

func TestFileSourceFirstMatchWins(t *testing.T) {
	src := NewFileSource(writeSchedule(t, overlapping), msk).WithClock(at(10, 35))

	e, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Анна", e.SpeakerName)
	assert.Equal(t, "Asyncio", e.Title)
}

func TestFileSourceHalfOpenWindow(t *testing.T) {
	path := writeSchedule(t, overlapping)

	e, err := NewFileSource(path, msk).WithClock(at(10, 45)).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Борис", e.SpeakerName)

	_, err = NewFileSource(path, msk).WithClock(at(11, 0)).Current(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)

	e, err = NewFileSource(path, msk).WithClock(at(10, 0)).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Анна", e.SpeakerName)
}

func TestFileSourceUsesLocation(t *testing.T) {
	src := NewFileSource(writeSchedule(t, overlapping), msk).WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 7, 15, 0, 0, time.UTC)
	})

	e, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Анна", e.SpeakerName)
}

func TestFileSourceSkipsMalformedEntries(t *testing.T) {
	path := writeSchedule(t, `[
		{"speaker_name": "Анна", "talk_title": "Asyncio", "start_time": "10:00", "end_time": "10:45"},
		{"speaker_name": "Борис", "talk_title": "Typing", "start_time": "утро", "end_time": "11:00"},
		{"speaker_name": "", "talk_title": "Без спикера", "start_time": "11:00", "end_time": "11:30"},
		{"speaker_name": "Вера", "talk_title": "Наоборот", "start_time": "12:00", "end_time": "11:30"},
		{"speaker_name": "Дина", "talk_title": "Пустое окно", "start_time": "12:00", "end_time": "12:00"},
		{"speaker_name": "Глеб", "talk_title": "Django", "start_time": "12:00", "end_time": "12:40"}
	]`)

	list, err := NewFileSource(path, msk).All(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Анна", list[0].SpeakerName)
	assert.Equal(t, "Глеб", list[1].SpeakerName)
}

func TestFileSourceOvernightWindow(t *testing.T) {
	path := writeSchedule(t, `[
		{"speaker_name": "Анна", "talk_title": "Asyncio", "start_time": "10:00", "end_time": "10:45"},
		{"speaker_name": "Ночной", "talk_title": "Хакатон", "start_time": "23:30", "end_time": "00:30"}
	]`)

	list, err := NewFileSource(path, msk).All(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, time.Hour, list[1].End.Sub(list[1].Start))

	for _, now := range []func() time.Time{at(23, 30), at(23, 59), at(0, 0), at(0, 29)} {
		e, err := NewFileSource(path, msk).WithClock(now).Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Ночной", e.SpeakerName)
	}

	_, err = NewFileSource(path, msk).WithClock(at(0, 30)).Current(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = NewFileSource(path, msk).WithClock(at(23, 29)).Current(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFileSourceMissingOrBrokenFile(t *testing.T) {
	list, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json"), msk).All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = NewFileSource(writeSchedule(t, `{"not": "a list"`), msk).All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = NewFileSource(writeSchedule(t, `[]`), msk).WithClock(at(10, 0)).Current(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFormatFileEntries(t *testing.T) {
	list, err := NewFileSource(writeSchedule(t, overlapping), msk).All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Программа мероприятия:\n"+
		"\nВремя доклада : 10:00 - 10:45\nИмя докладчика: Анна\nТема: Asyncio\n"+separator+
		"\nВремя доклада : 10:30 - 11:00\nИмя докладчика: Борис\nТема: Typing\n"+separator,
		Format(list, msk))
}
