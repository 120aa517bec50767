// Пакет model — доменные модели Portal Module.
package model

import "time"

// FileRecord — запись документа в каталоге портала.
// Сериализуется в attrs-файл (локальный адаптер), в таблицу portal_files
// (удалённый адаптер) и в ответы API.
type FileRecord struct {
	// ID — UUID записи (задаётся при загрузке)
	ID string `json:"id"`
	// Name — отображаемое имя файла
	Name string `json:"name"`
	// MimeType — MIME-тип файла
	MimeType string `json:"mime_type"`
	// Size — размер файла в байтах
	Size int64 `json:"size"`
	// UploadedAt — время загрузки (UTC)
	UploadedAt time.Time `json:"uploaded_at"`
	// Category — категория документа из фиксированного набора
	Category Category `json:"category"`
	// UploadedBy — имя загрузившего пользователя
	UploadedBy string `json:"uploaded_by"`
	// Checksum — SHA-256 контрольная сумма полезной нагрузки
	Checksum string `json:"checksum,omitempty"`
	// StorageKey — ссылка адаптера на полезную нагрузку (путь на диске
	// или ключ объекта S3). Во внешние ответы не попадает.
	StorageKey string `json:"-"`
}
