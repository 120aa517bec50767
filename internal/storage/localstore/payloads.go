// payloads.go — операции с полезной нагрузкой на диске.
// Streaming-запись с подсчётом SHA-256 на лету.
// Паттерн записи: temp файл → запись → fsync → atomic rename.
package localstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// saveResult — результат сохранения полезной нагрузки.
type saveResult struct {
	// storageName — имя файла в директории данных
	storageName string
	// size — размер записанных данных в байтах
	size int64
	// checksum — SHA-256 хэш содержимого
	checksum string
}

// ensureDir создаёт директорию данных, если она не существует.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию данных %s: %w", dir, err)
	}
	return nil
}

// savePayload записывает данные из reader на диск с подсчётом SHA-256
// на лету. При ошибке temp файл удаляется.
func (s *Store) savePayload(reader io.Reader, originalName, uploadedBy string) (*saveResult, error) {
	storageName := generateStorageName(originalName, uploadedBy)
	fullPath := filepath.Join(s.dataDir, storageName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256
	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &saveResult{
		storageName: storageName,
		size:        size,
		checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// openPayload открывает файл полезной нагрузки для чтения.
// Вызывающий код обязан закрыть файл.
func (s *Store) openPayload(storageName string) (*os.File, error) {
	f, err := os.Open(s.fullPath(storageName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл полезной нагрузки не найден: %s", storageName)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", storageName, err)
	}
	return f, nil
}

// deletePayload удаляет файл полезной нагрузки с диска.
// Возвращает nil, если файл уже не существует.
func (s *Store) deletePayload(storageName string) error {
	err := os.Remove(s.fullPath(storageName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", storageName, err)
	}
	return nil
}

// fullPath возвращает абсолютный путь файла в директории данных.
func (s *Store) fullPath(storageName string) string {
	return filepath.Join(s.dataDir, storageName)
}

// generateStorageName генерирует имя файла для хранения на диске.
// Формат: {name}_{user}_{timestamp}_{uuid}.{ext}
// Пример: cardiogram_ivanova_20260224150405_a1b2c3d4.pdf
func generateStorageName(originalName, uploadedBy string) string {
	ext := filepath.Ext(originalName)
	name := strings.TrimSuffix(originalName, ext)

	name = sanitize(name)
	user := sanitize(uploadedBy)

	// Ограничиваем длину имени для предотвращения проблем с FS
	if len(name) > 50 {
		name = name[:50]
	}
	if len(user) > 20 {
		user = user[:20]
	}

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8]

	if ext != "" {
		return fmt.Sprintf("%s_%s_%s_%s%s", name, user, ts, uid, ext)
	}
	return fmt.Sprintf("%s_%s_%s_%s", name, user, ts, uid)
}

// sanitize убирает небезопасные символы из строки для использования
// в имени файла. Оставляет буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' ||
			(r >= 0x0400 && r <= 0x04FF) { // Кириллица
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
