package registration

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"pymeetup.ru/meetup-bot/internal/common"
)

// defaultRegion — регион для номеров без кода страны ("8 900 ...", "900 ...").
const defaultRegion = "RU"

// NormalizePhone проверяет номер и приводит его к E.164 (+79001234567).
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", common.ErrInvalidPhone
	}
	num, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil {
		return "", common.ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", common.ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
