package aiclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockAI создаёт mock HTTP-сервер AI-сервиса.
// chatHandler обрабатывает запросы chat completions.
func setupMockAI(t *testing.T, chatHandler http.HandlerFunc) *Client {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if chatHandler != nil {
			chatHandler(w, r)
			return
		}
		// Дефолтный ответ: категория Cardiology
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{
				{Message: chatMessage{Role: "assistant", Content: "Cardiology"}},
			},
		})
	})

	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return New(server.URL, "test-key", "test-model", server.Client(), testLogger())
}

var testCategories = []string{
	"Cardiology", "Pediatrics", "Neurology", "Oncology",
	"Radiology", "Orthopedics", "Laboratory", "General Medicine",
}

// TestClassify проверяет успешную классификацию.
func TestClassify(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq chatRequest

	client := setupMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("Декодирование тела запроса: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{
				{Message: chatMessage{Role: "assistant", Content: "Cardiology"}},
			},
		})
	})

	label, err := client.Classify(context.Background(), "heart_scan.pdf", "application/pdf", testCategories)
	if err != nil {
		t.Fatalf("Classify() вернул ошибку: %v", err)
	}
	if label != "Cardiology" {
		t.Errorf("label = %q, ожидалось Cardiology", label)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, ожидалось Bearer test-key", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q, ожидалось /chat/completions", gotPath)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("model = %q, ожидалось test-model", gotReq.Model)
	}
	if gotReq.Temperature != 0 {
		t.Errorf("temperature = %v, ожидалось 0", gotReq.Temperature)
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("messages: %d, ожидалось 2", len(gotReq.Messages))
	}
	if !strings.Contains(gotReq.Messages[1].Content, "heart_scan.pdf") {
		t.Errorf("запрос не содержит имени файла: %q", gotReq.Messages[1].Content)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "General Medicine") {
		t.Errorf("запрос не содержит списка категорий: %q", gotReq.Messages[1].Content)
	}
}

// TestClassify_TrimsWhitespace проверяет обрезку пробелов в ответе модели.
func TestClassify_TrimsWhitespace(t *testing.T) {
	client := setupMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{
				{Message: chatMessage{Role: "assistant", Content: "  Pediatrics\n"}},
			},
		})
	})

	label, err := client.Classify(context.Background(), "growth_chart.png", "image/png", testCategories)
	if err != nil {
		t.Fatalf("Classify() вернул ошибку: %v", err)
	}
	if label != "Pediatrics" {
		t.Errorf("label = %q, ожидалось Pediatrics", label)
	}
}

// TestClassify_ServerError проверяет обработку ошибки сервиса.
func TestClassify_ServerError(t *testing.T) {
	client := setupMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	})

	_, err := client.Classify(context.Background(), "scan.pdf", "application/pdf", testCategories)
	if err == nil {
		t.Fatal("Classify() не вернул ошибку при статусе 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("ошибка не содержит статуса: %v", err)
	}
}

// TestClassify_MalformedResponse проверяет обработку некорректного JSON.
func TestClassify_MalformedResponse(t *testing.T) {
	client := setupMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not json`))
	})

	_, err := client.Classify(context.Background(), "scan.pdf", "application/pdf", testCategories)
	if err == nil {
		t.Fatal("Classify() не вернул ошибку при некорректном JSON")
	}
}

// TestClassify_EmptyChoices проверяет обработку пустого ответа.
func TestClassify_EmptyChoices(t *testing.T) {
	client := setupMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{})
	})

	_, err := client.Classify(context.Background(), "scan.pdf", "application/pdf", testCategories)
	if err == nil {
		t.Fatal("Classify() не вернул ошибку при пустом choices")
	}
}

// TestClassify_Unreachable проверяет обработку сетевой ошибки.
func TestClassify_Unreachable(t *testing.T) {
	client := New("http://127.0.0.1:1", "key", "model", nil, testLogger())

	_, err := client.Classify(context.Background(), "scan.pdf", "application/pdf", testCategories)
	if err == nil {
		t.Fatal("Classify() не вернул ошибку при недоступном сервисе")
	}
}

// TestCheckReady проверяет проверку готовности AI-сервиса.
func TestCheckReady(t *testing.T) {
	client := setupMockAI(t, nil)

	status, msg := client.CheckReady()
	if status != "ok" {
		t.Errorf("CheckReady() status = %q, message = %q; ожидалось ok", status, msg)
	}
}

// TestCheckReady_Unreachable проверяет статус fail при недоступном сервисе.
func TestCheckReady_Unreachable(t *testing.T) {
	client := New("http://127.0.0.1:1", "key", "model", nil, testLogger())

	status, _ := client.CheckReady()
	if status != "fail" {
		t.Errorf("CheckReady() status = %q, ожидалось fail", status)
	}
}
