// Пакет catalog — потокобезопасное in-memory состояние каталога портала.
//
// Каталог хранит записи документов в порядке добавления, глобальную
// строку поиска и активную конфигурацию сортировки. Видимые строки
// вычисляются по требованию: фильтр по подстроке, затем устойчивая
// сортировка по активному ключу.
//
// Не персистентный: при старте заполняется из коллаборатора
// персистентности (Load) и далее обновляется синхронно при операциях
// записи (Add, Remove).
package catalog

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/bigkaa/medstore/internal/domain/model"
)

// Catalog — состояние каталога документов.
// Использует sync.RWMutex для конкурентного чтения и эксклюзивной
// записи. Данные копируются на входе и выходе, чтобы исключить
// data race при внешних изменениях.
type Catalog struct {
	mu      sync.RWMutex
	records []*model.FileRecord // порядок добавления — он же порядок при равенстве ключей
	search  string
	sortCfg model.SortConfig
	ready   bool
	logger  *slog.Logger
}

// New создаёт пустой каталог с сортировкой по дате загрузки
// (новые первые). Для заполнения вызовите Load.
func New(logger *slog.Logger) *Catalog {
	return &Catalog{
		sortCfg: model.SortConfig{Key: model.SortByUploadDate, Direction: model.SortDesc},
		logger:  logger.With(slog.String("component", "catalog")),
	}
}

// Load заменяет содержимое каталога записями из хранилища.
// Вызывается при старте сервера. После загрузки каталог помечается
// как ready.
func (c *Catalog) Load(records []*model.FileRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = make([]*model.FileRecord, 0, len(records))
	for _, rec := range records {
		copied := *rec
		c.records = append(c.records, &copied)
	}
	c.ready = true

	c.logger.Info("Каталог заполнен из хранилища", slog.Int("records", len(c.records)))
}

// IsReady возвращает true, если каталог заполнен и готов к работе.
func (c *Catalog) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Add добавляет запись в конец каталога.
// Если запись с таким ID уже существует, она перезаписывается
// с сохранением позиции.
func (c *Catalog) Add(rec *model.FileRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *rec
	for i, existing := range c.records {
		if existing.ID == rec.ID {
			c.records[i] = &copied
			return
		}
	}
	c.records = append(c.records, &copied)
}

// Remove удаляет запись по ID.
// Возвращает true, если запись была найдена и удалена.
func (c *Catalog) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, rec := range c.records {
		if rec.ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return true
		}
	}
	return false
}

// Get возвращает копию записи по ID.
// Возвращает nil, если запись не найдена.
func (c *Catalog) Get(id string) *model.FileRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, rec := range c.records {
		if rec.ID == id {
			copied := *rec
			return &copied
		}
	}
	return nil
}

// Count возвращает общее количество записей в каталоге без учёта фильтра.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// SetSearch устанавливает глобальную строку поиска.
func (c *Catalog) SetSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = term
}

// Search возвращает текущую строку поиска.
func (c *Catalog) Search() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.search
}

// SetSort переключает сортировку: повторный выбор активного ключа
// меняет направление, выбор нового ключа сбрасывает направление
// на возрастающее. Возвращает новую конфигурацию.
func (c *Catalog) SetSort(key model.SortKey) model.SortConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sortCfg.Key == key {
		if c.sortCfg.Direction == model.SortAsc {
			c.sortCfg.Direction = model.SortDesc
		} else {
			c.sortCfg.Direction = model.SortAsc
		}
	} else {
		c.sortCfg = model.SortConfig{Key: key, Direction: model.SortAsc}
	}
	return c.sortCfg
}

// Sort возвращает активную конфигурацию сортировки.
func (c *Catalog) Sort() model.SortConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortCfg
}

// VisibleRows вычисляет видимые строки каталога: фильтр по подстроке
// в имени или категории (без учёта регистра), затем устойчивая
// сортировка по активному ключу. При равенстве ключей записи остаются
// в порядке добавления.
func (c *Catalog) VisibleRows() []*model.FileRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	term := strings.ToLower(c.search)

	rows := make([]*model.FileRecord, 0, len(c.records))
	for _, rec := range c.records {
		if !matches(rec, term) {
			continue
		}
		copied := *rec
		rows = append(rows, &copied)
	}

	cfg := c.sortCfg
	sort.SliceStable(rows, func(i, j int) bool {
		return compareRecords(rows[i], rows[j], cfg) < 0
	})

	return rows
}

// matches проверяет попадание записи под строку поиска.
// term должен быть приведён к нижнему регистру.
func matches(rec *model.FileRecord, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(rec.Name), term) ||
		strings.Contains(strings.ToLower(string(rec.Category)), term)
}

// compareRecords — трёхзначное сравнение записей по активному ключу:
// -1/+1 с учётом направления, 0 при равенстве.
func compareRecords(a, b *model.FileRecord, cfg model.SortConfig) int {
	var cmp int
	switch cfg.Key {
	case model.SortByName:
		cmp = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case model.SortByCategory:
		cmp = strings.Compare(string(a.Category), string(b.Category))
	case model.SortBySize:
		switch {
		case a.Size < b.Size:
			cmp = -1
		case a.Size > b.Size:
			cmp = 1
		}
	case model.SortByUploadDate:
		switch {
		case a.UploadedAt.Before(b.UploadedAt):
			cmp = -1
		case a.UploadedAt.After(b.UploadedAt):
			cmp = 1
		}
	}

	if cfg.Direction == model.SortDesc {
		cmp = -cmp
	}
	return cmp
}
