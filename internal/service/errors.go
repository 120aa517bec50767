// errors.go — ошибки бизнес-логики сервисного слоя.
//
// Сообщения в ValidationError и AuthError показываются пользователю
// в формах портала, поэтому написаны по-английски.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — запись каталога не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrCatalogNotReady — каталог ещё не загружен из хранилища.
	ErrCatalogNotReady = errors.New("каталог ещё не загружен")
)

// ValidationError — ошибка валидации входных данных запроса.
// Обнаруживается до обращения к хранилищу, отдаётся с кодом 400.
type ValidationError struct {
	// Поле формы, к которому относится ошибка (опционально)
	Field string
	// Сообщение для пользователя
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// AuthError — отказ учётного сервиса: неверные учётные данные,
// занятое имя пользователя, незаполненные поля формы.
type AuthError struct {
	// HTTP-код ответа
	StatusCode int
	// Сообщение для пользователя
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
