package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKey(t *testing.T) {
	store := NewRedisStore(nil, "meetup:dialog", 0)
	assert.Equal(t, "meetup:dialog:42", store.key(42))
}

func TestSessionEncodingRoundTrip(t *testing.T) {
	s := New(5, KindReserve, StateReserveContact)
	s.Set("name", "Мария")
	s.UpdatedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	raw, err := encodeSession(s)
	require.NoError(t, err)

	got, err := decodeSession(raw)
	require.NoError(t, err)
	assert.Equal(t, s.Kind, got.Kind)
	assert.Equal(t, s.State, got.State)
	assert.Equal(t, "Мария", got.String("name"))
	assert.True(t, s.UpdatedAt.Equal(got.UpdatedAt))
}

func TestLatestOfSkipsBrokenValues(t *testing.T) {
	older := New(1, KindRegistration, StatePhone)
	older.UpdatedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := New(1, KindBroadcast, StateBroadcastText)
	newer.UpdatedAt = older.UpdatedAt.Add(time.Second)

	a, err := encodeSession(older)
	require.NoError(t, err)
	b, err := encodeSession(newer)
	require.NoError(t, err)

	got, err := latestOf(map[string]string{
		string(KindRegistration): a,
		string(KindBroadcast):    b,
		"garbage":                "{not json",
	})
	require.NoError(t, err)
	assert.Equal(t, KindBroadcast, got.Kind)

	_, err = latestOf(map[string]string{"x": "nope"})
	assert.ErrorIs(t, err, ErrNoSession)
}
