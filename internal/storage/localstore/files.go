// Пакет localstore — локальный адаптер персистентности портала.
//
// Полезная нагрузка хранится файлами в директории данных, метаданные —
// в сопутствующих *.attr.json, учётные записи — в users.json.
// Все операции записи атомарные: temp файл → fsync → rename.
// Список каталога строится сканированием attr.json файлов.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/bigkaa/medstore/internal/domain/model"
	"github.com/bigkaa/medstore/internal/storage"
)

// Store — локальное хранилище записей каталога.
type Store struct {
	// dataDir — корневая директория хранения (PM_DATA_DIR)
	dataDir string
	logger  *slog.Logger
}

// New создаёт локальное хранилище. Создаёт директорию данных,
// если она не существует.
func New(dataDir string, logger *slog.Logger) (*Store, error) {
	if err := ensureDir(dataDir); err != nil {
		return nil, err
	}

	return &Store{
		dataDir: dataDir,
		logger:  logger.With(slog.String("component", "localstore")),
	}, nil
}

// List возвращает все записи каталога, отсортированные по времени
// загрузки (старые первые — порядок добавления).
func (s *Store) List(ctx context.Context) ([]*model.FileRecord, error) {
	records, err := s.scanAttrs()
	if err != nil {
		return nil, storage.NewError("list", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UploadedAt.Before(records[j].UploadedAt)
	})

	return records, nil
}

// Upload сохраняет полезную нагрузку и attr.json записи.
// При ошибке записи метаданных сохранённая полезная нагрузка удаляется.
func (s *Store) Upload(ctx context.Context, rec *model.FileRecord, payload io.Reader) error {
	saved, err := s.savePayload(payload, rec.Name, rec.UploadedBy)
	if err != nil {
		return storage.NewError("upload", err)
	}

	rec.StorageKey = saved.storageName
	rec.Checksum = saved.checksum
	rec.Size = saved.size

	if err := writeAttr(attrPath(s.fullPath(saved.storageName)), rec); err != nil {
		_ = s.deletePayload(saved.storageName)
		return storage.NewError("upload", err)
	}

	s.logger.Info("Файл сохранён в локальное хранилище",
		slog.String("id", rec.ID),
		slog.String("name", rec.Name),
		slog.String("storage_key", rec.StorageKey),
		slog.Int64("size", rec.Size),
	)

	return nil
}

// Fetch открывает поток полезной нагрузки записи.
// Вызывающий код обязан закрыть ReadCloser.
func (s *Store) Fetch(ctx context.Context, id string) (io.ReadCloser, *model.FileRecord, error) {
	rec, err := s.findByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, storage.NewError("fetch", err)
	}

	f, err := s.openPayload(rec.StorageKey)
	if err != nil {
		return nil, nil, storage.NewError("fetch", err)
	}

	return f, rec, nil
}

// Delete удаляет полезную нагрузку и attr.json записи.
func (s *Store) Delete(ctx context.Context, id string) error {
	rec, err := s.findByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return storage.NewError("delete", err)
	}

	if err := s.deletePayload(rec.StorageKey); err != nil {
		return storage.NewError("delete", err)
	}
	if err := deleteAttr(attrPath(s.fullPath(rec.StorageKey))); err != nil {
		return storage.NewError("delete", err)
	}

	s.logger.Info("Файл удалён из локального хранилища",
		slog.String("id", id),
		slog.String("storage_key", rec.StorageKey),
	)

	return nil
}

// CheckReady проверяет доступность директории данных.
// Возвращает статус ("ok", "fail") и сообщение.
func (s *Store) CheckReady() (status string, message string) {
	info, err := os.Stat(s.dataDir)
	if err != nil {
		return "fail", fmt.Sprintf("директория данных недоступна: %v", err)
	}
	if !info.IsDir() {
		return "fail", fmt.Sprintf("%s не является директорией", s.dataDir)
	}
	return "ok", "директория данных доступна"
}

// findByID ищет запись по ID сканированием attr.json файлов.
// Возвращает storage.ErrNotFound, если записи нет.
func (s *Store) findByID(id string) (*model.FileRecord, error) {
	records, err := s.scanAttrs()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, storage.ErrNotFound
}
