// client.go — HTTP-клиент к OpenAI-совместимому text-generation API.
// Единственная операция — Classify: подобрать категорию документа по
// имени файла и MIME-типу. Ответ модели никак не интерпретируется
// сверх обрезки пробелов; валидация категории — забота вызывающего.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client — HTTP-клиент к OpenAI-совместимому API.
type Client struct {
	baseURL string // Базовый URL API (без trailing slash)
	apiKey  string // API-ключ (Bearer)
	model   string // Имя модели

	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент text-generation API.
// baseURL — базовый URL API (например, https://api.openai.com/v1).
// apiKey — ключ авторизации, model — имя модели.
// httpClient — HTTP-клиент (таймаут задаёт вызывающий).
func New(baseURL, apiKey, model string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "ai_client")),
	}
}

// Classify запрашивает у модели категорию документа.
// categories — список допустимых меток; модель просят ответить одной
// из них без пояснений. Возвращается сырой ответ модели.
func (c *Client) Classify(ctx context.Context, name, mimeType string, categories []string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "system",
				Content: "You are a medical document classifier. " +
					"Reply with exactly one category name from the provided list and nothing else.",
			},
			{
				Role: "user",
				Content: fmt.Sprintf("File name: %s\nMIME type: %s\nCategories: %s",
					name, mimeType, strings.Join(categories, ", ")),
			},
		},
		MaxTokens:   16,
		Temperature: 0,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("сериализация запроса классификации: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("создание запроса классификации: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("запрос к AI-сервису: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("AI-сервис вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("декодирование ответа AI-сервиса: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("пустой ответ AI-сервиса")
	}

	label := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	c.logger.Debug("Ответ AI-классификатора",
		slog.String("file", name),
		slog.String("label", label),
	)

	return label, nil
}

// CheckReady проверяет доступность AI-сервиса через список моделей.
// Реализует handlers.ReadinessChecker.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return "fail", fmt.Sprintf("AI-сервис: %v", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("AI-сервис недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "fail", fmt.Sprintf("AI-сервис вернул статус %d", resp.StatusCode)
	}

	return "ok", "AI-сервис доступен"
}
