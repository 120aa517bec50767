package aiclient

// chatRequest — запрос к chat completions endpoint.
type chatRequest struct {
	// Имя модели
	Model string `json:"model"`
	// Сообщения диалога
	Messages []chatMessage `json:"messages"`
	// Ограничение длины ответа в токенах
	MaxTokens int `json:"max_tokens,omitempty"`
	// Температура сэмплирования (0 — детерминированный ответ)
	Temperature float64 `json:"temperature"`
}

// chatMessage — одно сообщение диалога.
type chatMessage struct {
	// Роль: system, user, assistant
	Role string `json:"role"`
	// Текст сообщения
	Content string `json:"content"`
}

// chatResponse — ответ chat completions endpoint.
type chatResponse struct {
	// Варианты ответа модели
	Choices []chatChoice `json:"choices"`
}

// chatChoice — один вариант ответа.
type chatChoice struct {
	// Сообщение модели
	Message chatMessage `json:"message"`
}
