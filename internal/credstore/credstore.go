// credstore хранит пару access/refresh, привязанную к origin API.
// Аналог localStorage браузера: переживает перезапуск процесса (file, redis)
// или живёт только в памяти (memory).
package credstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pribylovaa/metrics-tracker/internal/config"
)

// Ключи учётных данных.
const (
	KeyAccess  = "access"
	KeyRefresh = "refresh"
)

var (
	// ErrUnknownKind - в конфиге указан неизвестный вид хранилища.
	ErrUnknownKind = errors.New("unknown store kind")
	// ErrCorrupted - сохранённый документ не читается (битый JSON, неверная парольная фраза).
	ErrCorrupted = errors.New("credential store corrupted")
)

// Store - контракт хранилища. Отсутствующий ключ: "", false, nil.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete удаляет один ключ; отсутствие ключа не ошибка.
	Delete(ctx context.Context, key string) error
	// Clear удаляет access и refresh.
	Clear(ctx context.Context) error
}

// Closer - хранилище с внешними ресурсами (соединение с Redis).
type Closer interface {
	Close() error
}

// Open выбирает бэкенд по cfg.Kind.
func Open(ctx context.Context, cfg config.StoreConfig, origin string) (Store, error) {
	const op = "credstore.Open"

	switch cfg.Kind {
	case config.StoreMemory:
		return NewMemory(), nil
	case config.StoreFile, "":
		dir := cfg.Dir
		if dir == "" {
			d, err := DefaultDir()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			dir = d
		}

		st, err := NewFile(dir, origin, cfg.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return st, nil
	case config.StoreRedis:
		st, err := NewRedis(ctx, cfg.RedisURL, cfg.Prefix, origin)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownKind, cfg.Kind)
	}
}

// DefaultDir - $XDG_CONFIG_HOME/metrics-tracker (или аналог ОС).
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(base, "metrics-tracker"), nil
}

// Close закрывает хранилище, если у него есть внешние ресурсы.
func Close(st Store) error {
	if c, ok := st.(Closer); ok {
		return c.Close()
	}

	return nil
}

// PairSetter - хранилище, умеющее записать пару одной операцией.
type PairSetter interface {
	SetPair(ctx context.Context, access, refresh string) error
}

// SetPair сохраняет access и (если не пуст) refresh.
// Бэкенды с PairSetter пишут пару атомарно.
func SetPair(ctx context.Context, st Store, access, refresh string) error {
	if ps, ok := st.(PairSetter); ok {
		return ps.SetPair(ctx, access, refresh)
	}

	if err := st.Set(ctx, KeyAccess, access); err != nil {
		return err
	}

	if refresh == "" {
		return nil
	}

	return st.Set(ctx, KeyRefresh, refresh)
}
