package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Load(ctx, 1, KindRegistration)
	require.ErrorIs(t, err, ErrNoSession)

	s := New(1, KindRegistration, StateName)
	s.SetInt64("event_id", 7)
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Load(ctx, 1, KindRegistration)
	require.NoError(t, err)
	assert.Equal(t, StateName, got.State)
	id, ok := got.Int64("event_id")
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	require.NoError(t, store.End(ctx, 1, KindRegistration))
	_, err = store.Load(ctx, 1, KindRegistration)
	assert.ErrorIs(t, err, ErrNoSession)

	// повторное завершение не ошибка
	assert.NoError(t, store.End(ctx, 1, KindRegistration))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := New(1, KindQuestion, StateQuestionInput)
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Load(ctx, 1, KindQuestion)
	require.NoError(t, err)
	got.Set("text", "изменено")

	again, err := store.Load(ctx, 1, KindQuestion)
	require.NoError(t, err)
	assert.Empty(t, again.String("text"))
}

func TestMemoryStoreActiveIsMostRecent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Save(ctx, New(1, KindRegistration, StateName)))
	clock = clock.Add(time.Minute)
	require.NoError(t, store.Save(ctx, New(1, KindQuestion, StateQuestionInput)))

	active, err := store.Active(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, KindQuestion, active.Kind)

	// после нового шага регистрация снова становится активной
	clock = clock.Add(time.Minute)
	reg, err := store.Load(ctx, 1, KindRegistration)
	require.NoError(t, err)
	reg.State = StatePhone
	require.NoError(t, store.Save(ctx, reg))

	active, err = store.Active(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, KindRegistration, active.Kind)

	require.NoError(t, store.EndAll(ctx, 1))
	_, err = store.Active(ctx, 1)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionInt64Invalid(t *testing.T) {
	s := New(1, KindReserve, StateReserveName)
	_, ok := s.Int64("missing")
	assert.False(t, ok)

	s.Set("n", "abc")
	_, ok = s.Int64("n")
	assert.False(t, ok)
}
