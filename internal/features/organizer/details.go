package organizer

import (
	"fmt"
	"strings"
	"time"

	"pymeetup.ru/meetup-bot/internal/common"
)

// Ключи сообщения с деталями выступления (сравниваются без учёта регистра).
const (
	keyTopic = "тема доклада"
	keyStart = "начало"
	keyEnd   = "окончание"
)

const detailsFormat = "Тема доклада: [Название]\n" +
	"Начало: [ДД.ММ.ГГГГ ЧЧ:ММ]\n" +
	"Окончание: [ДД.ММ.ГГГГ ЧЧ:ММ]"

// TalkDetails — разобранное сообщение организатора.
type TalkDetails struct {
	Title string
	Start time.Time
	End   time.Time
}

// ParseTalkDetails разбирает сообщение вида
//
//	Тема доклада: Введение в асинхронный Python
//	Начало: 25.12.2024 10:00
//	Окончание: 25.12.2024 10:45
//
// Время трактуется в часовом поясе loc. Строки без ":" пропускаются.
func ParseTalkDetails(text string, loc *time.Location) (TalkDetails, error) {
	fields := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	var missing []string
	for _, k := range []struct{ key, label string }{
		{keyTopic, "'Тема доклада'"},
		{keyStart, "'Начало'"},
		{keyEnd, "'Окончание'"},
	} {
		if fields[k.key] == "" {
			missing = append(missing, k.label)
		}
	}
	if len(missing) > 0 {
		return TalkDetails{}, fmt.Errorf("не найдены следующие обязательные части: %s.\nПожалуйста, используйте формат:\n%s",
			strings.Join(missing, ", "), detailsFormat)
	}

	start, err := time.ParseInLocation(common.DateTimeLayout, fields[keyStart], loc)
	if err != nil {
		return TalkDetails{}, fmt.Errorf("не удалось разобрать начало «%s», ожидается ДД.ММ.ГГГГ ЧЧ:ММ", fields[keyStart])
	}
	end, err := time.ParseInLocation(common.DateTimeLayout, fields[keyEnd], loc)
	if err != nil {
		return TalkDetails{}, fmt.Errorf("не удалось разобрать окончание «%s», ожидается ДД.ММ.ГГГГ ЧЧ:ММ", fields[keyEnd])
	}
	if !start.Before(end) {
		return TalkDetails{}, fmt.Errorf("время начала должно быть раньше времени окончания")
	}

	return TalkDetails{
		Title: fields[keyTopic],
		Start: start,
		End:   end,
	}, nil
}
