// catalog.go — сервис каталога документов.
// Координирует in-memory каталог, набор тикетов имитации загрузки,
// классификацию и коллаборатор персистентности.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/medstore/internal/catalog"
	"github.com/bigkaa/medstore/internal/config"
	"github.com/bigkaa/medstore/internal/domain/model"
	"github.com/bigkaa/medstore/internal/storage"
)

// Границы случайного шага прогресса тикета.
const (
	minProgressStep = 5
	maxProgressStep = 20
)

// Prometheus-метрики каталога.
var (
	catalogRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pm_catalog_records",
		Help: "Текущее количество записей в каталоге.",
	})
	uploadTickets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pm_upload_tickets",
		Help: "Текущее количество тикетов загрузки в списке.",
	})
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pm_uploads_total",
		Help: "Общее количество завершённых загрузок по результату.",
	}, []string{"result"})
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pm_downloads_total",
		Help: "Общее количество скачиваний по способу выдачи.",
	}, []string{"mode"})
)

// UploadInput — один файл из формы загрузки.
// Полезная нагрузка уже принята обработчиком во временный файл.
type UploadInput struct {
	// Отображаемое имя файла
	Name string
	// MIME-тип файла
	MimeType string
	// Размер файла в байтах
	Size int64
	// Путь к временному файлу с полезной нагрузкой
	TempPath string
}

// CatalogView — представление каталога для ответа API.
type CatalogView struct {
	// Видимые строки: отфильтрованы и отсортированы
	Rows []*model.FileRecord
	// Общее количество записей каталога (до фильтра)
	Total int
	// Действующая поисковая строка
	Search string
	// Действующая конфигурация сортировки
	Sort model.SortConfig
}

// DownloadResult — результат запроса на скачивание.
// Заполнено либо URL (редирект на подписанную ссылку),
// либо Body+Record (прямая отдача потока).
type DownloadResult struct {
	URL    string
	Body   io.ReadCloser
	Record *model.FileRecord
}

// CatalogService — сервис каталога документов.
type CatalogService struct {
	cfg      *config.Config
	store    storage.Store
	catalog  *catalog.Catalog
	tickets  *catalog.TicketSet
	classify *ClassifyService
	logger   *slog.Logger
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(
	cfg *config.Config,
	store storage.Store,
	cat *catalog.Catalog,
	tickets *catalog.TicketSet,
	classify *ClassifyService,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		cfg:      cfg,
		store:    store,
		catalog:  cat,
		tickets:  tickets,
		classify: classify,
		logger:   logger.With(slog.String("component", "catalog_service")),
	}
}

// Load заполняет каталог из хранилища при старте.
// Сбой чтения не фатален: портал стартует с пустым каталогом,
// ошибка уходит в лог.
func (s *CatalogService) Load(ctx context.Context) {
	records, err := s.store.List(ctx)
	if err != nil {
		s.logger.Warn("Не удалось прочитать каталог из хранилища, старт с пустым списком",
			slog.String("error", err.Error()),
		)
		records = nil
	}

	s.catalog.Load(records)
	catalogRecords.Set(float64(s.catalog.Count()))
}

// CheckReady сообщает готовность каталога для readiness probe.
// Возвращает статус ("ok", "fail") и сообщение.
func (s *CatalogService) CheckReady() (status string, message string) {
	if !s.catalog.IsReady() {
		return "fail", "каталог ещё не загружен из хранилища"
	}
	return "ok", fmt.Sprintf("каталог загружен, записей: %d", s.catalog.Count())
}

// View возвращает текущее представление каталога.
func (s *CatalogService) View() CatalogView {
	return CatalogView{
		Rows:   s.catalog.VisibleRows(),
		Total:  s.catalog.Count(),
		Search: s.catalog.Search(),
		Sort:   s.catalog.Sort(),
	}
}

// SetSearch применяет поисковую строку и возвращает обновлённое
// представление.
func (s *CatalogService) SetSearch(term string) CatalogView {
	s.catalog.SetSearch(term)
	s.logger.Debug("Поисковая строка обновлена", slog.String("term", term))
	return s.View()
}

// ToggleSort применяет ключ сортировки: повторный выбор действующего
// ключа меняет направление, новый ключ начинает с возрастания.
func (s *CatalogService) ToggleSort(key string) (CatalogView, error) {
	sortKey, ok := model.ParseSortKey(key)
	if !ok {
		return CatalogView{}, &ValidationError{Field: "key", Message: "Unknown sort key"}
	}

	cfg := s.catalog.SetSort(sortKey)
	s.logger.Debug("Сортировка обновлена",
		slog.String("key", string(cfg.Key)),
		slog.String("direction", string(cfg.Direction)),
	)

	return s.View(), nil
}

// Submit принимает файлы формы загрузки: на каждый файл создаётся
// тикет, прогресс которого продвигает отдельная горутина. Ответ
// возвращается сразу, не дожидаясь завершения.
func (s *CatalogService) Submit(_ context.Context, uploadedBy string, inputs []UploadInput) ([]*model.UploadTicket, error) {
	if len(inputs) == 0 {
		return nil, &ValidationError{Field: "files", Message: "No files selected"}
	}

	tickets := make([]*model.UploadTicket, 0, len(inputs))
	for _, in := range inputs {
		t := &model.UploadTicket{
			ID:       uuid.New().String(),
			Name:     in.Name,
			Size:     in.Size,
			Progress: 0,
			Status:   model.TicketUploading,
		}
		s.tickets.Add(t)
		tickets = append(tickets, t)

		go s.runTicket(t.ID, in, uploadedBy)

		s.logger.Info("Загрузка принята",
			slog.String("ticket_id", t.ID),
			slog.String("filename", in.Name),
			slog.Int64("size", in.Size),
			slog.String("uploaded_by", uploadedBy),
		)
	}
	uploadTickets.Set(float64(s.tickets.Count()))

	return tickets, nil
}

// runTicket продвигает прогресс тикета на независимом таймере
// случайными шагами 5-20 и по достижении 100 передаёт файл
// хранилищу. Завершённый тикет ещё некоторое время остаётся в
// списке, затем удаляется.
func (s *CatalogService) runTicket(ticketID string, in UploadInput, uploadedBy string) {
	defer func() {
		if in.TempPath != "" {
			_ = os.Remove(in.TempPath)
		}
	}()

	ticker := time.NewTicker(s.cfg.UploadTickInterval)
	defer ticker.Stop()

	progress := 0
	for progress < 100 {
		<-ticker.C
		step := minProgressStep + rand.IntN(maxProgressStep-minProgressStep+1)
		progress += step
		if progress > 100 {
			progress = 100
		}
		if s.tickets.Advance(ticketID, step) {
			break
		}
	}

	s.persistUpload(ticketID, in, uploadedBy)

	time.AfterFunc(s.cfg.UploadLinger, func() {
		s.tickets.Remove(ticketID)
		uploadTickets.Set(float64(s.tickets.Count()))
	})
}

// persistUpload передаёт файл хранилищу и переводит тикет в
// терминальный статус. Вызывается ровно один раз на тикет.
func (s *CatalogService) persistUpload(ticketID string, in UploadInput, uploadedBy string) {
	ctx := context.Background()

	payload, err := os.Open(in.TempPath)
	if err != nil {
		s.failTicket(ticketID, in.Name, fmt.Errorf("открытие временного файла: %w", err))
		return
	}
	defer payload.Close()

	category := s.classify.Classify(ctx, in.Name, in.MimeType)

	rec := &model.FileRecord{
		// Тикет и запись каталога делят идентификатор
		ID:         ticketID,
		Name:       in.Name,
		MimeType:   in.MimeType,
		Size:       in.Size,
		UploadedAt: time.Now().UTC(),
		Category:   category,
		UploadedBy: uploadedBy,
	}

	if err := s.store.Upload(ctx, rec, payload); err != nil {
		s.failTicket(ticketID, in.Name, err)
		return
	}

	s.tickets.Succeed(ticketID)
	s.catalog.Add(rec)
	catalogRecords.Set(float64(s.catalog.Count()))
	uploadsTotal.WithLabelValues("success").Inc()

	s.logger.Info("Файл загружен",
		slog.String("id", rec.ID),
		slog.String("filename", rec.Name),
		slog.Int64("size", rec.Size),
		slog.String("category", string(rec.Category)),
		slog.String("checksum", rec.Checksum),
		slog.String("uploaded_by", rec.UploadedBy),
	)
}

// failTicket переводит тикет в статус error; запись в каталог не
// добавляется.
func (s *CatalogService) failTicket(ticketID, name string, err error) {
	s.tickets.Fail(ticketID, "Upload failed")
	uploadsTotal.WithLabelValues("error").Inc()
	s.logger.Error("Ошибка сохранения файла",
		slog.String("ticket_id", ticketID),
		slog.String("filename", name),
		slog.String("error", err.Error()),
	)
}

// Uploads возвращает текущий список тикетов загрузки.
func (s *CatalogService) Uploads() []*model.UploadTicket {
	return s.tickets.List()
}

// Remove удаляет запись: сначала подтверждение хранилища, затем
// каталог. При сбое хранилища каталог не меняется.
func (s *CatalogService) Remove(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление записи: %w", err)
	}

	s.catalog.Remove(id)
	catalogRecords.Set(float64(s.catalog.Count()))

	s.logger.Info("Запись удалена", slog.String("id", id))
	return nil
}

// Download выдаёт полезную нагрузку записи: подписанной ссылкой,
// если адаптер это умеет, иначе прямым потоком.
func (s *CatalogService) Download(ctx context.Context, id string) (*DownloadResult, error) {
	if signer, ok := s.store.(storage.URLSigner); ok {
		url, err := signer.DownloadURL(ctx, id, s.cfg.DownloadURLTTL)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("подпись ссылки: %w", err)
		}
		downloadsTotal.WithLabelValues("redirect").Inc()
		return &DownloadResult{URL: url}, nil
	}

	body, rec, err := s.store.Fetch(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("чтение полезной нагрузки: %w", err)
	}

	downloadsTotal.WithLabelValues("stream").Inc()
	return &DownloadResult{Body: body, Record: rec}, nil
}
