package app

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"pymeetup.ru/meetup-bot/internal/db/postgres"
)

// SQL-миграции встроены в бинарник: NNN_описание.sql, NNN — версия.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

// loadMigrations читает встроенные миграции и сортирует их по версии.
func loadMigrations(fsys fs.FS) ([]postgres.Migration, error) {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	out := make([]postgres.Migration, 0, len(names))
	seen := make(map[int]string, len(names))
	for _, name := range names {
		base := strings.TrimPrefix(name, "migrations/")
		prefix, _, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("миграция %s: имя должно начинаться с номера версии", base)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("миграция %s: некорректная версия %q", base, prefix)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("миграции %s и %s с одной версией %d", prev, base, version)
		}
		seen[version] = base

		sql, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		out = append(out, postgres.Migration{Version: version, SQL: string(sql)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
