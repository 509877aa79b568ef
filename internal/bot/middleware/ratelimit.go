package middleware

import (
	"sync"
	"time"

	"pymeetup.ru/meetup-bot/internal/telegram"
)

// Verdict — решение лимитера по одному апдейту.
type Verdict int

const (
	// Allow — апдейт обрабатывается.
	Allow Verdict = iota
	// Warn — лимит превышен впервые в текущем окне, пользователя стоит предупредить.
	Warn
	// Drop — лимит превышен повторно, апдейт молча отбрасывается.
	Drop
)

type limitKey struct {
	userID int64
	kind   telegram.Kind
}

type bucket struct {
	hits   []time.Time
	warned bool
}

// RateLimiter — скользящее окно на пользователя, отдельно для каждого вида апдейта.
// Сообщения и нажатия inline-кнопок считаются раздельно: листание списков
// не должно блокировать ввод в диалоге. Виды без лимита (платежи) не ограничиваются.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[limitKey]*bucket
	limits  map[telegram.Kind]int
	window  time.Duration
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter создаёт лимитер. Лимит <= 0 или отсутствие вида в limits
// отключает ограничение для этого вида.
func NewRateLimiter(window time.Duration, limits map[telegram.Kind]int) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[limitKey]*bucket),
		limits:  limits,
		window:  window,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Close останавливает фоновую очистку. Вызывается на shutdown.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Check учитывает апдейт пользователя и решает, что с ним делать.
func (rl *RateLimiter) Check(userID int64, kind telegram.Kind) Verdict {
	limit := rl.limits[kind]
	if limit <= 0 {
		return Allow
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := limitKey{userID: userID, kind: kind}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{}
		rl.buckets[key] = b
	}

	now := rl.now()
	b.hits = recent(b.hits, now.Add(-rl.window))
	if len(b.hits) < limit {
		b.hits = append(b.hits, now)
		b.warned = false
		return Allow
	}
	if b.warned {
		return Drop
	}
	b.warned = true
	return Warn
}

func recent(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := rl.now().Add(-rl.window)
			for key, b := range rl.buckets {
				if b.hits = recent(b.hits, cutoff); len(b.hits) == 0 {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
