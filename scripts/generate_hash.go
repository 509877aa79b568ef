//go:build ignore

// generate_hash.go — утилита для генерации Argon2id хеша пароля организатора.
// Запуск: go run scripts/generate_hash.go ваш_пароль
//
// Результат вставьте в .env как ORGANIZER_PASSWORD.
package main

import (
	"fmt"
	"os"

	"pymeetup.ru/meetup-bot/internal/features/roles"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Использование: go run scripts/generate_hash.go <пароль>")
		os.Exit(1)
	}

	hash, err := roles.HashPassword(os.Args[1])
	if err != nil {
		fmt.Printf("Ошибка генерации хеша: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Хеш пароля (вставьте в .env как ORGANIZER_PASSWORD):")
	fmt.Println(hash)
}
