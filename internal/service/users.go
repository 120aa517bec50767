// users.go — учётный сервис: регистрация и вход пользователей.
// Пароли хранятся bcrypt-хэшами; сессия — JWT (HS256).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/medstore/internal/domain/model"
	"github.com/bigkaa/medstore/internal/storage"
)

// Минимальная длина пароля.
const minPasswordLength = 6

// Prometheus-метрики учётного сервиса.
var (
	authRegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pm_auth_registrations_total",
		Help: "Общее количество попыток регистрации по результату.",
	}, []string{"result"})
	authLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pm_auth_logins_total",
		Help: "Общее количество попыток входа по результату.",
	}, []string{"result"})
)

// RegisterParams — данные формы регистрации.
type RegisterParams struct {
	// Имя пользователя
	Username string
	// Адрес электронной почты
	Email string
	// Пароль
	Password string
	// Подтверждение пароля
	PasswordConfirm string
}

// LoginResult — результат успешного входа.
type LoginResult struct {
	// Токен сессии
	Token string
	// Профиль пользователя
	Profile model.Profile
}

// UserService — учётный сервис портала.
type UserService struct {
	users  storage.UserStore
	tokens *TokenManager
	logger *slog.Logger
}

// NewUserService создаёт учётный сервис.
func NewUserService(users storage.UserStore, tokens *TokenManager, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// Register регистрирует нового пользователя.
//
// Проверки формы (каждая — AuthError с кодом 400):
//   - все поля заполнены;
//   - пароль не короче minPasswordLength;
//   - пароль и подтверждение совпадают.
//
// Занятое имя пользователя — AuthError с кодом 409; хранилище при
// этом не меняется.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (model.Profile, error) {
	username := strings.TrimSpace(params.Username)
	email := strings.TrimSpace(params.Email)

	if username == "" {
		authRegistrationsTotal.WithLabelValues("invalid").Inc()
		return model.Profile{}, &AuthError{StatusCode: http.StatusBadRequest, Message: "Username is required"}
	}
	if email == "" {
		authRegistrationsTotal.WithLabelValues("invalid").Inc()
		return model.Profile{}, &AuthError{StatusCode: http.StatusBadRequest, Message: "Email is required"}
	}
	if params.Password == "" {
		authRegistrationsTotal.WithLabelValues("invalid").Inc()
		return model.Profile{}, &AuthError{StatusCode: http.StatusBadRequest, Message: "Password is required"}
	}
	if len(params.Password) < minPasswordLength {
		authRegistrationsTotal.WithLabelValues("invalid").Inc()
		return model.Profile{}, &AuthError{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("Password must be at least %d characters", minPasswordLength),
		}
	}
	if params.Password != params.PasswordConfirm {
		authRegistrationsTotal.WithLabelValues("invalid").Inc()
		return model.Profile{}, &AuthError{StatusCode: http.StatusBadRequest, Message: "Passwords do not match"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		authRegistrationsTotal.WithLabelValues("error").Inc()
		return model.Profile{}, fmt.Errorf("хэширование пароля: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			authRegistrationsTotal.WithLabelValues("duplicate").Inc()
			return model.Profile{}, &AuthError{StatusCode: http.StatusConflict, Message: "Username is already taken"}
		}
		authRegistrationsTotal.WithLabelValues("error").Inc()
		return model.Profile{}, fmt.Errorf("создание пользователя: %w", err)
	}

	authRegistrationsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Пользователь зарегистрирован",
		slog.String("username", username),
	)

	return user.Profile(), nil
}

// Login проверяет учётные данные и выпускает токен сессии.
// Неизвестное имя и неверный пароль дают одинаковый ответ:
// по сообщению нельзя установить, существует ли пользователь.
func (s *UserService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		authLoginsTotal.WithLabelValues("invalid").Inc()
		return LoginResult{}, &AuthError{StatusCode: http.StatusBadRequest, Message: "Username and password are required"}
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			authLoginsTotal.WithLabelValues("rejected").Inc()
			return LoginResult{}, &AuthError{StatusCode: http.StatusUnauthorized, Message: "Invalid username or password"}
		}
		authLoginsTotal.WithLabelValues("error").Inc()
		return LoginResult{}, fmt.Errorf("чтение пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		authLoginsTotal.WithLabelValues("rejected").Inc()
		return LoginResult{}, &AuthError{StatusCode: http.StatusUnauthorized, Message: "Invalid username or password"}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		authLoginsTotal.WithLabelValues("error").Inc()
		return LoginResult{}, fmt.Errorf("выпуск токена: %w", err)
	}

	authLoginsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Пользователь вошёл в систему",
		slog.String("username", username),
	)

	return LoginResult{Token: token, Profile: user.Profile()}, nil
}

// Profile возвращает профиль пользователя по имени.
func (s *UserService) Profile(ctx context.Context, username string) (model.Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("чтение пользователя: %w", err)
	}
	return user.Profile(), nil
}
