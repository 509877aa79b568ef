package bot

import "strings"

// CommandParser разбирает команды вида "/cmd arg1 arg2" и "/cmd@bot_name ...".
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	// в группах Telegram дописывает имя бота: /start@meetup_bot
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	if command == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}

// normalizeButton приводит подпись кнопки к ключу таблицы кнопок.
func normalizeButton(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
