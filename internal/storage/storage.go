// Пакет storage — коллаборатор персистентности портала.
// Определяет интерфейсы хранилищ записей и пользователей; конкретные
// адаптеры — localstore (диск) и pgstore (PostgreSQL + S3).
// Адаптер выбирается один раз при старте по наличию конфигурации БД.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bigkaa/medstore/internal/domain/model"
)

// Ошибки слоя хранилища.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrUsernameTaken — имя пользователя уже занято.
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
)

// Error — ошибка коллаборатора персистентности.
// Оборачивает причину и называет операцию, на которой произошёл сбой.
// На API-границе отображается в код STORAGE_ERROR.
type Error struct {
	// Op — операция хранилища (list, upload, fetch, delete)
	Op string
	// Err — исходная ошибка
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("хранилище: операция %s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError оборачивает ошибку операции хранилища.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// Store — хранилище записей каталога.
type Store interface {
	// List возвращает все записи каталога.
	List(ctx context.Context) ([]*model.FileRecord, error)
	// Upload сохраняет запись вместе с полезной нагрузкой.
	Upload(ctx context.Context, rec *model.FileRecord, payload io.Reader) error
	// Fetch возвращает поток полезной нагрузки и запись.
	// Возвращает ErrNotFound, если записи нет.
	Fetch(ctx context.Context, id string) (io.ReadCloser, *model.FileRecord, error)
	// Delete удаляет запись и её полезную нагрузку.
	// Возвращает ErrNotFound, если записи нет.
	Delete(ctx context.Context, id string) error
}

// URLSigner — опциональная способность хранилища выдавать временную
// ссылку на скачивание. Реализуется удалённым адаптером через S3 presign;
// обработчик скачивания проверяет её type assertion'ом.
type URLSigner interface {
	DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error)
}

// UserStore — хранилище учётных записей.
type UserStore interface {
	// Create сохраняет нового пользователя.
	// Возвращает ErrUsernameTaken при дублировании имени.
	Create(ctx context.Context, user *model.User) error
	// GetByUsername возвращает пользователя по имени.
	// Возвращает ErrNotFound, если пользователь не существует.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}
