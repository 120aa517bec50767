package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/medstore/internal/domain/model"
	"github.com/bigkaa/medstore/internal/storage"
)

const userColumns = "id, username, email, password_hash, created_at"

// Users — хранилище учётных записей в PostgreSQL.
type Users struct {
	db     DBTX
	logger *slog.Logger
}

// NewUsers создаёт хранилище учётных записей.
func NewUsers(db DBTX, logger *slog.Logger) *Users {
	return &Users{
		db:     db,
		logger: logger.With(slog.String("component", "pgstore_users")),
	}
}

// Create регистрирует нового пользователя. Уникальность имени
// гарантирует ограничение в базе данных.
func (u *Users) Create(ctx context.Context, user *model.User) error {
	query := fmt.Sprintf(`
		INSERT INTO portal_users (%s)
		VALUES ($1, $2, $3, $4, $5)`, userColumns)

	_, err := u.db.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUsernameTaken
		}
		return storage.NewError("create_user", fmt.Errorf("вставка пользователя: %w", err))
	}

	return nil
}

// GetByUsername возвращает пользователя по имени.
func (u *Users) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := fmt.Sprintf("SELECT %s FROM portal_users WHERE username = $1", userColumns)

	var user model.User
	err := u.db.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.NewError("get_user", fmt.Errorf("чтение пользователя: %w", err))
	}
	user.CreatedAt = user.CreatedAt.UTC()

	return &user, nil
}
