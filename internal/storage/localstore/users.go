// users.go — хранилище учётных записей локального адаптера.
// Пользователи хранятся списком в users.json в директории данных;
// файл целиком переписывается атомарно при каждом изменении.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bigkaa/medstore/internal/domain/model"
	"github.com/bigkaa/medstore/internal/storage"
)

// usersFileName — имя файла учётных записей в директории данных.
const usersFileName = "users.json"

// Users — локальное хранилище учётных записей.
type Users struct {
	mu     sync.RWMutex
	path   string
	users  map[string]*model.User // username → user
	logger *slog.Logger
}

// NewUsers создаёт хранилище учётных записей и загружает users.json,
// если он существует.
func NewUsers(dataDir string, logger *slog.Logger) (*Users, error) {
	if err := ensureDir(dataDir); err != nil {
		return nil, err
	}

	u := &Users{
		path:   filepath.Join(dataDir, usersFileName),
		users:  make(map[string]*model.User),
		logger: logger.With(slog.String("component", "localstore_users")),
	}

	if err := u.load(); err != nil {
		return nil, err
	}

	return u, nil
}

// load читает users.json. Отсутствие файла — не ошибка.
func (u *Users) load() error {
	data, err := os.ReadFile(u.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("ошибка чтения %s: %w", u.path, err)
	}

	var list []*model.User
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("ошибка десериализации %s: %w", u.path, err)
	}

	for _, usr := range list {
		u.users[usr.Username] = usr
	}

	u.logger.Info("Учётные записи загружены", slog.Int("users", len(u.users)))
	return nil
}

// Create сохраняет нового пользователя.
// Возвращает storage.ErrUsernameTaken при дублировании имени.
// При ошибке записи файла изменение откатывается.
func (u *Users) Create(ctx context.Context, user *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.users[user.Username]; ok {
		return storage.ErrUsernameTaken
	}

	copied := *user
	u.users[user.Username] = &copied

	if err := u.flush(); err != nil {
		delete(u.users, user.Username)
		return storage.NewError("create_user", err)
	}

	u.logger.Info("Пользователь зарегистрирован", slog.String("username", user.Username))
	return nil
}

// GetByUsername возвращает пользователя по имени.
// Возвращает storage.ErrNotFound, если пользователь не существует.
func (u *Users) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	usr, ok := u.users[username]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copied := *usr
	return &copied, nil
}

// flush атомарно переписывает users.json.
// Вызывающий должен держать блокировку записи.
func (u *Users) flush() error {
	list := make([]*model.User, 0, len(u.users))
	for _, usr := range u.users {
		list = append(list, usr)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации учётных записей: %w", err)
	}

	return writeFileAtomic(u.path, data)
}
