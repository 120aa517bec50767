package model

// SortKey — ключ сортировки каталога.
type SortKey string

const (
	// SortByName — по отображаемому имени
	SortByName SortKey = "name"
	// SortByCategory — по категории
	SortByCategory SortKey = "category"
	// SortBySize — по размеру в байтах
	SortBySize SortKey = "size"
	// SortByUploadDate — по времени загрузки
	SortByUploadDate SortKey = "uploadDate"
)

// ParseSortKey проверяет, что строка является допустимым ключом сортировки.
func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(s) {
	case SortByName, SortByCategory, SortBySize, SortByUploadDate:
		return SortKey(s), true
	}
	return "", false
}

// SortDirection — направление сортировки.
type SortDirection string

const (
	// SortAsc — по возрастанию
	SortAsc SortDirection = "asc"
	// SortDesc — по убыванию
	SortDesc SortDirection = "desc"
)

// SortConfig — активная конфигурация сортировки каталога.
// Одновременно активен ровно один ключ.
type SortConfig struct {
	// Key — активный ключ сортировки
	Key SortKey `json:"key"`
	// Direction — направление сортировки
	Direction SortDirection `json:"direction"`
}
