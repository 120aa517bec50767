package pgstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/medstore/internal/domain/model"
	"github.com/bigkaa/medstore/internal/storage"
)

const fileColumns = "id, name, mime_type, size, uploaded_at, category, uploaded_by, checksum, storage_key"

// List возвращает все записи каталога в порядке загрузки.
func (s *Store) List(ctx context.Context) ([]*model.FileRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM portal_files ORDER BY uploaded_at, id", fileColumns)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, storage.NewError("list", fmt.Errorf("запрос записей: %w", err))
	}
	defer rows.Close()

	var records []*model.FileRecord
	for rows.Next() {
		rec, err := scanFileRecord(rows)
		if err != nil {
			return nil, storage.NewError("list", fmt.Errorf("чтение строки: %w", err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewError("list", fmt.Errorf("обход строк: %w", err))
	}

	return records, nil
}

// Upload сохраняет полезную нагрузку в объектное хранилище и
// регистрирует запись в базе данных. Контрольная сумма вычисляется
// при загрузке объекта и заполняется в записи.
func (s *Store) Upload(ctx context.Context, rec *model.FileRecord, payload io.Reader) error {
	key := objectKey(rec)

	checksum, err := s.objects.Put(ctx, key, payload, rec.Size, rec.MimeType)
	if err != nil {
		return storage.NewError("upload", fmt.Errorf("загрузка объекта: %w", err))
	}
	rec.StorageKey = key
	rec.Checksum = checksum

	query := fmt.Sprintf(`
		INSERT INTO portal_files (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, fileColumns)

	_, err = s.db.Exec(ctx, query,
		rec.ID, rec.Name, rec.MimeType, rec.Size, rec.UploadedAt,
		rec.Category, rec.UploadedBy, rec.Checksum, rec.StorageKey)
	if err != nil {
		// Запись в БД не прошла, объект больше никому не нужен.
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Warn("Не удалось удалить объект после сбоя регистрации",
				slog.String("key", key),
				slog.String("error", delErr.Error()),
			)
		}
		return storage.NewError("upload", fmt.Errorf("регистрация записи: %w", err))
	}

	return nil
}

// Fetch открывает полезную нагрузку записи для чтения.
func (s *Store) Fetch(ctx context.Context, id string) (io.ReadCloser, *model.FileRecord, error) {
	rec, err := s.getByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, storage.ErrNotFound
		}
		return nil, nil, storage.NewError("fetch", err)
	}

	body, err := s.objects.Get(ctx, rec.StorageKey)
	if err != nil {
		return nil, nil, storage.NewError("fetch", fmt.Errorf("чтение объекта: %w", err))
	}

	return body, rec, nil
}

// Delete удаляет запись каталога и её полезную нагрузку.
// Сначала удаляется строка в БД: если объект не удалось убрать,
// осиротевший файл в хранилище безопаснее фантомной записи.
func (s *Store) Delete(ctx context.Context, id string) error {
	rec, err := s.getByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		return storage.NewError("delete", err)
	}

	tag, err := s.db.Exec(ctx, "DELETE FROM portal_files WHERE id = $1", id)
	if err != nil {
		return storage.NewError("delete", fmt.Errorf("удаление записи: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if err := s.objects.Delete(ctx, rec.StorageKey); err != nil {
		s.logger.Warn("Запись удалена, но объект остался в хранилище",
			slog.String("id", id),
			slog.String("key", rec.StorageKey),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// DownloadURL выдаёт временную подписанную ссылку на скачивание
// полезной нагрузки записи.
func (s *Store) DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	rec, err := s.getByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", storage.NewError("download_url", err)
	}

	url, err := s.objects.PresignGet(ctx, rec.StorageKey, rec.Name, ttl)
	if err != nil {
		return "", storage.NewError("download_url", fmt.Errorf("подпись ссылки: %w", err))
	}

	return url, nil
}

// getByID читает запись по идентификатору. Возвращает pgx.ErrNoRows,
// если записи нет; маппинг на доменную ошибку делает вызывающий.
func (s *Store) getByID(ctx context.Context, id string) (*model.FileRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM portal_files WHERE id = $1", fileColumns)
	return scanFileRecord(s.db.QueryRow(ctx, query, id))
}

// scanFileRecord читает одну запись из строки результата.
func scanFileRecord(row pgx.Row) (*model.FileRecord, error) {
	var rec model.FileRecord
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.MimeType, &rec.Size, &rec.UploadedAt,
		&rec.Category, &rec.UploadedBy, &rec.Checksum, &rec.StorageKey)
	if err != nil {
		return nil, err
	}
	rec.UploadedAt = rec.UploadedAt.UTC()
	return &rec, nil
}

// objectKey формирует ключ объекта в хранилище: файлы раскладываются
// по годам и месяцам загрузки.
func objectKey(rec *model.FileRecord) string {
	d := rec.UploadedAt.UTC()
	return fmt.Sprintf("files/%d/%02d/%s", d.Year(), int(d.Month()), rec.ID)
}
