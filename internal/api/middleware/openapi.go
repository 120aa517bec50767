// openapi.go — middleware валидации входящих запросов по OpenAPI контракту.
// Контракт проверяет структуру запроса: путь, типы полей, содержимое JSON.
// Семантическая валидация (занятое имя, неизвестный ключ сортировки)
// остаётся за сервисным слоем.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	apierrors "github.com/bigkaa/medstore/internal/api/errors"
	"github.com/bigkaa/medstore/internal/api/openapi"
)

// OpenAPIValidator создаёт middleware валидации запросов по встроенному
// контракту. Возвращает ошибку, если контракт не разбирается.
func OpenAPIValidator(logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	ctx := context.Background()
	loader := &openapi3.Loader{Context: ctx}

	doc, err := loader.LoadFromData(openapi.Spec)
	if err != nil {
		return nil, fmt.Errorf("разбор OpenAPI контракта: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("проверка OpenAPI контракта: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("маршрутизатор OpenAPI контракта: %w", err)
	}

	log := logger.With(slog.String("component", "openapi_validator"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				// Путь вне контракта (health, metrics) — без валидации.
				next.ServeHTTP(w, r)
				return
			}

			opts := &openapi3filter.Options{
				// JWT проверяет отдельный middleware.
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			}
			// Multipart не буферизуем: содержимое разбирает обработчик.
			if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				opts.ExcludeRequestBody = true
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    opts,
			}

			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				log.Debug("Запрос не прошёл валидацию по контракту",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeContractError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// writeContractError формирует ответ 400 по ошибке валидации контракта.
func writeContractError(w http.ResponseWriter, err error) {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Reason != "" {
		apierrors.ValidationError(w, reqErr.Reason)
		return
	}
	apierrors.ValidationError(w, "Request does not match API contract")
}
