// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Репозитории оборачивают ошибки драйвера в эти значения, а обработчики
// по ним решают: переспросить, начать заново или извиниться.
package common

import "errors"

// Ошибки хранилища
var (
	// ErrNotFound — запись не найдена (удалена или не создавалась)
	ErrNotFound = errors.New("запись не найдена")
	// ErrAlreadyRegistered — пара (гость, мероприятие) уже есть
	ErrAlreadyRegistered = errors.New("вы уже зарегистрированы на это мероприятие")
	// ErrPhoneTaken — номер телефона уже привязан к другому профилю
	ErrPhoneTaken = errors.New("этот номер телефона уже используется")
	// ErrSpeakerExists — у пользователя уже есть профиль спикера
	ErrSpeakerExists = errors.New("заявка спикера уже существует")
)

// Ошибки диалогов
var (
	// ErrNoSession — нет активного диалога нужного типа
	ErrNoSession = errors.New("диалог не найден")
	// ErrInvalidPhone — номер не распознан
	ErrInvalidPhone = errors.New("некорректный номер телефона")
)

// Ошибки ролей и докладов
var (
	// ErrNotOrganizer — действие доступно только организаторам
	ErrNotOrganizer = errors.New("эта функция доступна только организаторам")
	// ErrNoTalks — у спикера нет незавершённых докладов
	ErrNoTalks = errors.New("у вас нет запланированных докладов")
)

// ErrTalkClosed — доклад завершён или его время вышло
var ErrTalkClosed = errors.New("доклад уже завершён")
