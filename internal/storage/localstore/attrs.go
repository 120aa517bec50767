// attrs.go — чтение и запись сопутствующих файлов метаданных.
// Каждый файл полезной нагрузки имеет сопутствующий *.attr.json —
// единственный источник истины для метаданных записи. Ссылка на
// полезную нагрузку не сериализуется: она выводится из имени самого
// attr-файла при чтении.
package localstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bigkaa/medstore/internal/domain/model"
)

// attrSuffix — суффикс файла метаданных.
const attrSuffix = ".attr.json"

// maxAttrSize — максимальный допустимый размер attr.json (4 КБ).
// Ограничение гарантирует атомарность записи.
const maxAttrSize = 4096

// attrPath возвращает путь к attr.json для данного файла данных.
// Пример: "/data/scan.pdf" → "/data/scan.pdf.attr.json"
func attrPath(payloadPath string) string {
	return payloadPath + attrSuffix
}

// payloadPathFromAttr возвращает путь к файлу данных из пути attr.json.
func payloadPathFromAttr(path string) string {
	return strings.TrimSuffix(path, attrSuffix)
}

// writeAttr атомарно записывает метаданные записи в attr.json.
// Возвращает ошибку, если сериализованные данные превышают 4 КБ.
func writeAttr(path string, rec *model.FileRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	if len(data) > maxAttrSize {
		return fmt.Errorf("размер attr.json (%d байт) превышает максимум (%d байт)", len(data), maxAttrSize)
	}

	return writeFileAtomic(path, data)
}

// readAttr читает и десериализует метаданные из attr.json.
// Ссылка на полезную нагрузку восстанавливается из имени attr-файла.
func readAttr(path string) (*model.FileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения attr.json %s: %w", path, err)
	}

	var rec model.FileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("ошибка десериализации attr.json %s: %w", path, err)
	}

	rec.StorageKey = filepath.Base(payloadPathFromAttr(path))
	return &rec, nil
}

// deleteAttr удаляет attr.json файл.
// Возвращает nil, если файл уже не существует.
func deleteAttr(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления attr.json %s: %w", path, err)
	}
	return nil
}

// scanAttrs сканирует директорию данных и возвращает все записи.
// Не рекурсивный. Невалидные attr.json пропускаются с предупреждением.
func (s *Store) scanAttrs() ([]*model.FileRecord, error) {
	pattern := filepath.Join(s.dataDir, "*"+attrSuffix)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования директории %s: %w", s.dataDir, err)
	}

	var result []*model.FileRecord
	for _, path := range matches {
		rec, err := readAttr(path)
		if err != nil {
			s.logger.Warn("Пропущен невалидный attr.json",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		result = append(result, rec)
	}

	return result, nil
}

// writeFileAtomic записывает данные по паттерну temp → fsync → rename.
func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}
