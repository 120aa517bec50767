package pgstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/medstore/internal/config"
	"github.com/bigkaa/medstore/internal/database"
	"github.com/bigkaa/medstore/internal/domain/model"
	"github.com/bigkaa/medstore/internal/storage"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool и функцию очистки.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("medstore_test"),
		postgres.WithUsername("medstore"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("PM_DB_HOST", host)
	os.Setenv("PM_DB_PORT", port.Port())
	os.Setenv("PM_DB_NAME", "medstore_test")
	os.Setenv("PM_DB_USER", "medstore")
	os.Setenv("PM_DB_PASSWORD", "test-password")
	os.Setenv("PM_DB_SSL_MODE", "disable")
	os.Setenv("PM_JWT_SECRET", "test-secret")
	os.Setenv("PM_S3_ENDPOINT", "http://localhost:9000")
	os.Setenv("PM_S3_ACCESS_KEY", "test")
	os.Setenv("PM_S3_SECRET_KEY", "test")
	os.Setenv("PM_S3_BUCKET", "test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// memObjects — in-memory реализация ObjectStore для тестов:
// реальное S3 в интеграционных тестах не поднимаем.
type memObjects struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemObjects() *memObjects {
	return &memObjects{data: make(map[string][]byte)}
}

func (m *memObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.data[key] = b
	m.mu.Unlock()
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("объект %s не найден", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *memObjects) PresignGet(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://s3.test/" + key, nil
}

func (m *memObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// --- Тесты Store ---

func TestStoreCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	objects := newMemObjects()
	store := New(pool, objects, testLogger())

	payload := []byte("результаты анализа крови")
	rec := &model.FileRecord{
		ID:         uuid.New().String(),
		Name:       "blood_test.pdf",
		MimeType:   "application/pdf",
		Size:       int64(len(payload)),
		UploadedAt: time.Now().UTC().Truncate(time.Microsecond),
		Category:   "Laboratory",
		UploadedBy: "drsmith",
	}

	// Upload
	if err := store.Upload(ctx, rec, bytes.NewReader(payload)); err != nil {
		t.Fatalf("Upload() ошибка: %v", err)
	}
	if rec.StorageKey == "" {
		t.Error("StorageKey не установлен после Upload")
	}
	if !strings.HasPrefix(rec.StorageKey, "files/") {
		t.Errorf("StorageKey = %q, ожидается префикс files/", rec.StorageKey)
	}
	wantSum := sha256.Sum256(payload)
	if rec.Checksum != hex.EncodeToString(wantSum[:]) {
		t.Errorf("Checksum = %q, ожидается %q", rec.Checksum, hex.EncodeToString(wantSum[:]))
	}

	// List
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List() вернул %d записей, хотели 1", len(list))
	}
	if list[0].Name != "blood_test.pdf" {
		t.Errorf("Name = %q, хотели %q", list[0].Name, "blood_test.pdf")
	}
	if list[0].Category != "Laboratory" {
		t.Errorf("Category = %q, хотели %q", list[0].Category, "Laboratory")
	}
	if !list[0].UploadedAt.Equal(rec.UploadedAt) {
		t.Errorf("UploadedAt = %v, хотели %v", list[0].UploadedAt, rec.UploadedAt)
	}

	// Fetch
	body, got, err := store.Fetch(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Fetch() ошибка: %v", err)
	}
	fetched, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		t.Fatalf("Чтение полезной нагрузки: %v", err)
	}
	if !bytes.Equal(fetched, payload) {
		t.Error("Полезная нагрузка после Fetch не совпадает с загруженной")
	}
	if got.Checksum != rec.Checksum {
		t.Errorf("Checksum = %q, хотели %q", got.Checksum, rec.Checksum)
	}

	// DownloadURL
	url, err := store.DownloadURL(ctx, rec.ID, time.Minute)
	if err != nil {
		t.Fatalf("DownloadURL() ошибка: %v", err)
	}
	if url != "https://s3.test/"+rec.StorageKey {
		t.Errorf("DownloadURL = %q, хотели %q", url, "https://s3.test/"+rec.StorageKey)
	}

	// Delete
	if err := store.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if objects.count() != 0 {
		t.Errorf("После Delete в объектном хранилище осталось %d объектов", objects.count())
	}
	if _, _, err := store.Fetch(ctx, rec.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("После Delete ожидали ErrNotFound, получили: %v", err)
	}
}

func TestStoreListOrder(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	store := New(pool, newMemObjects(), testLogger())

	base := time.Now().UTC().Truncate(time.Microsecond)
	names := []string{"first.pdf", "second.pdf", "third.pdf"}
	for i, name := range names {
		payload := []byte(name)
		rec := &model.FileRecord{
			ID:         uuid.New().String(),
			Name:       name,
			MimeType:   "application/pdf",
			Size:       int64(len(payload)),
			UploadedAt: base.Add(time.Duration(i) * time.Second),
			Category:   "General Medicine",
			UploadedBy: "drsmith",
		}
		if err := store.Upload(ctx, rec, bytes.NewReader(payload)); err != nil {
			t.Fatalf("Upload(%s) ошибка: %v", name, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != len(names) {
		t.Fatalf("List() вернул %d записей, хотели %d", len(list), len(names))
	}
	for i, name := range names {
		if list[i].Name != name {
			t.Errorf("list[%d].Name = %q, хотели %q (порядок по времени загрузки)", i, list[i].Name, name)
		}
	}
}

func TestStoreNotFound(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	store := New(pool, newMemObjects(), testLogger())

	id := uuid.New().String()

	if _, _, err := store.Fetch(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Fetch() неизвестного id: ожидали ErrNotFound, получили: %v", err)
	}
	if err := store.Delete(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete() неизвестного id: ожидали ErrNotFound, получили: %v", err)
	}
	if _, err := store.DownloadURL(ctx, id, time.Minute); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DownloadURL() неизвестного id: ожидали ErrNotFound, получили: %v", err)
	}
}

// --- Тесты Users ---

func TestUsersCreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	users := NewUsers(pool, testLogger())

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     "drsmith",
		Email:        "drsmith@clinic.example",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	got, err := users.GetByUsername(ctx, "drsmith")
	if err != nil {
		t.Fatalf("GetByUsername() ошибка: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ID = %q, хотели %q", got.ID, user.ID)
	}
	if got.Email != user.Email {
		t.Errorf("Email = %q, хотели %q", got.Email, user.Email)
	}
	if got.PasswordHash != user.PasswordHash {
		t.Errorf("PasswordHash = %q, хотели %q", got.PasswordHash, user.PasswordHash)
	}
	if !got.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("CreatedAt = %v, хотели %v", got.CreatedAt, user.CreatedAt)
	}
}

func TestUsersDuplicate(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	users := NewUsers(pool, testLogger())

	first := &model.User{
		ID:           uuid.New().String(),
		Username:     "drsmith",
		Email:        "drsmith@clinic.example",
		PasswordHash: "hash-1",
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, first); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	second := &model.User{
		ID:           uuid.New().String(),
		Username:     "drsmith",
		Email:        "other@clinic.example",
		PasswordHash: "hash-2",
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, second); !errors.Is(err, storage.ErrUsernameTaken) {
		t.Errorf("Create() дубликата: ожидали ErrUsernameTaken, получили: %v", err)
	}

	// Исходная запись не изменилась
	got, err := users.GetByUsername(ctx, "drsmith")
	if err != nil {
		t.Fatalf("GetByUsername() ошибка: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("После дубликата ID = %q, хотели %q", got.ID, first.ID)
	}
}

func TestUsersGetNotFound(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	users := NewUsers(pool, testLogger())

	if _, err := users.GetByUsername(ctx, "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByUsername() неизвестного имени: ожидали ErrNotFound, получили: %v", err)
	}
}
