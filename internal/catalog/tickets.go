// tickets.go — видимый набор билетов загрузки.
//
// Набор хранит транзитные билеты в порядке создания. Продвижение
// прогресса и терминальные переходы выполняет сервис каталога; набор
// гарантирует монотонность прогресса и однократность терминального
// перехода: из success и error возврата нет.
package catalog

import (
	"sync"

	"github.com/bigkaa/medstore/internal/domain/model"
)

// TicketSet — потокобезопасный набор билетов загрузки.
type TicketSet struct {
	mu      sync.RWMutex
	tickets []*model.UploadTicket
}

// NewTicketSet создаёт пустой набор билетов.
func NewTicketSet() *TicketSet {
	return &TicketSet{}
}

// Add добавляет билет в набор.
func (ts *TicketSet) Add(t *model.UploadTicket) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	copied := *t
	ts.tickets = append(ts.tickets, &copied)
}

// Advance увеличивает прогресс билета на step, ограничивая его сотней.
// Возвращает true, когда прогресс впервые достиг 100.
// Билеты в терминальном статусе не продвигаются.
func (ts *TicketSet) Advance(id string, step int) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	t := ts.find(id)
	if t == nil || t.Status != model.TicketUploading || t.Progress >= 100 {
		return false
	}

	t.Progress += step
	if t.Progress >= 100 {
		t.Progress = 100
		return true
	}
	return false
}

// Succeed переводит билет в статус success.
// Игнорируется, если билет уже в терминальном статусе.
func (ts *TicketSet) Succeed(id string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	t := ts.find(id)
	if t == nil || t.Status != model.TicketUploading {
		return
	}
	t.Status = model.TicketSuccess
}

// Fail переводит билет в статус error с текстом ошибки.
// Игнорируется, если билет уже в терминальном статусе.
func (ts *TicketSet) Fail(id string, msg string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	t := ts.find(id)
	if t == nil || t.Status != model.TicketUploading {
		return
	}
	t.Status = model.TicketError
	t.Error = msg
}

// Remove удаляет билет из видимого набора.
// Возвращает true, если билет был найден и удалён.
func (ts *TicketSet) Remove(id string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for i, t := range ts.tickets {
		if t.ID == id {
			ts.tickets = append(ts.tickets[:i], ts.tickets[i+1:]...)
			return true
		}
	}
	return false
}

// Get возвращает копию билета по ID.
// Возвращает nil, если билет не найден.
func (ts *TicketSet) Get(id string) *model.UploadTicket {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	t := ts.find(id)
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

// List возвращает копии всех билетов в порядке создания.
func (ts *TicketSet) List() []*model.UploadTicket {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	out := make([]*model.UploadTicket, 0, len(ts.tickets))
	for _, t := range ts.tickets {
		copied := *t
		out = append(out, &copied)
	}
	return out
}

// Count возвращает количество билетов в видимом наборе.
func (ts *TicketSet) Count() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.tickets)
}

// find ищет билет по ID. Вызывающий должен держать блокировку.
func (ts *TicketSet) find(id string) *model.UploadTicket {
	for _, t := range ts.tickets {
		if t.ID == id {
			return t
		}
	}
	return nil
}
