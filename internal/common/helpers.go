// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование дат, работа с текстом.
package common

import (
	"fmt"
	"math"
	"time"
)

// Форматы дат, в которых бот показывает и принимает время.
const (
	DateTimeLayout = "02.01.2006 15:04"
	DateLayout     = "02.01.2006"
	ClockLayout    = "15:04"
)

// PluralizeQuestions возвращает правильную форму слова «вопрос» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "вопрос" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "вопроса" (2, 3, 4, 22, ...)
//   - Остальные случаи → "вопросов" (0, 5-20, 25-30, 100, ...)
func PluralizeQuestions(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "вопрос"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "вопроса"
	}
	return "вопросов"
}

// FormatQuestionsCount создаёт строку вида "3 вопроса".
func FormatQuestionsCount(n int) string {
	return fmt.Sprintf("%d %s", n, PluralizeQuestions(n))
}

// FormatDateTime форматирует время как "02.01.2006 15:04" в часовом поясе loc.
func FormatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateTimeLayout)
}

// FormatDate форматирует только дату; нулевое время — "Дата не указана".
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "Дата не указана"
	}
	return t.In(loc).Format(DateLayout)
}

// FormatClock форматирует время суток "15:04".
func FormatClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(ClockLayout)
}

// Truncate обрезает строку до n рун, добавляя многоточие.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
