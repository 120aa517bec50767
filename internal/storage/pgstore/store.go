// Пакет pgstore — удалённый адаптер персистентности портала.
// Метаданные записей и учётные записи хранятся в PostgreSQL
// (чистый SQL через pgx, без ORM), полезная нагрузка — в
// S3-совместимом объектном хранилище.
package pgstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ObjectStore — операции с объектным хранилищем полезной нагрузки.
// Боевая реализация — Payloads (S3); в тестах подменяется на in-memory.
type ObjectStore interface {
	// Put загружает объект и возвращает SHA-256 содержимого.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (checksum string, err error)
	// Get открывает поток чтения объекта.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete удаляет объект.
	Delete(ctx context.Context, key string) error
	// PresignGet выдаёт временную ссылку на скачивание объекта.
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

// Store — удалённое хранилище записей каталога.
type Store struct {
	db      DBTX
	objects ObjectStore
	logger  *slog.Logger
}

// New создаёт удалённое хранилище поверх пула PostgreSQL и
// объектного хранилища.
func New(db DBTX, objects ObjectStore, logger *slog.Logger) *Store {
	return &Store{
		db:      db,
		objects: objects,
		logger:  logger.With(slog.String("component", "pgstore")),
	}
}

// isUniqueViolation проверяет, является ли ошибка нарушением
// уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
