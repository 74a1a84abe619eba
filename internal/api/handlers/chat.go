// chat.go — обработчик POST /api/v1/chat/.
// Однораундовый диалог с моделью Qwen; дневной счётчик обращений в Redis.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/animenative/file-service/internal/api/middleware"
	"github.com/animenative/file-service/internal/api/response"
	"github.com/animenative/file-service/internal/llm"
)

// defaultSystemPrompt — системный промпт по умолчанию.
const defaultSystemPrompt = "Ты — полезный ассистент."

// usageCounterTTL — время жизни дневного счётчика обращений.
const usageCounterTTL = 24 * time.Hour

// ChatModel — интерфейс LLM-клиента, потребляемый обработчиком.
type ChatModel interface {
	Chat(ctx context.Context, systemPrompt, userMessage string, opts llm.ChatOptions) (string, error)
}

// UsageCounter — интерфейс счётчика обращений (реализуется cache.Client).
type UsageCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// ChatHandler — обработчик диалога с LLM.
type ChatHandler struct {
	model   ChatModel
	counter UsageCounter
	logger  *slog.Logger
}

// NewChatHandler создаёт обработчик диалога.
// counter может быть nil — счётчик обращений отключён.
func NewChatHandler(model ChatModel, counter UsageCounter, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		model:   model,
		counter: counter,
		logger:  logger.With(slog.String("component", "chat_handler")),
	}
}

// chatRequest — тело запроса диалога.
type chatRequest struct {
	// Message — сообщение пользователя (обязательно)
	Message string `json:"message"`
	// SystemPrompt — системный промпт (опционально)
	SystemPrompt string `json:"system_prompt"`
	// Model — имя модели (опционально, из списка поддерживаемых)
	Model string `json:"model"`
	// Temperature — температура генерации (опционально)
	Temperature float64 `json:"temperature"`
	// TopP — nucleus sampling (опционально)
	TopP float64 `json:"top_p"`
	// MaxTokens — максимум токенов ответа (опционально)
	MaxTokens int `json:"max_tokens"`
}

// chatData — данные ответа диалога.
type chatData struct {
	Reply      string `json:"reply"`
	Model      string `json:"model"`
	UsageToday int64  `json:"usage_today,omitempty"`
}

// HandleChat — POST /api/v1/chat/.
// При незаданном API Key провайдера обработчик не создаётся — роут отвечает 503.
func (h *APIHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil {
		response.Error(w, http.StatusServiceUnavailable, "LLM-интеграция не настроена")
		return
	}
	h.chat.Handle(w, r)
}

// Handle обрабатывает запрос диалога.
func (c *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, "Некорректное тело запроса: ожидается JSON с полем message")
		return
	}
	if req.Message == "" {
		response.ValidationError(w, "Поле message обязательно")
		return
	}
	if req.Model != "" && !llm.IsSupportedModel(req.Model) {
		response.ValidationError(w, fmt.Sprintf("Модель %s не поддерживается", req.Model))
		return
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	ownerID := middleware.OwnerFromContext(r.Context())

	reply, err := c.model.Chat(r.Context(), systemPrompt, req.Message, llm.ChatOptions{
		Model:       req.Model,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		c.logger.Error("Ошибка запроса к LLM",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		response.InternalError(w, "Ошибка обращения к модели")
		return
	}

	// Считаются только успешные обращения к модели
	usage := c.countUsage(r.Context(), ownerID)

	model := req.Model
	if model == "" {
		model = "default"
	}

	response.Success(w, chatData{
		Reply:      reply,
		Model:      model,
		UsageToday: usage,
	}, "OK")
}

// countUsage инкрементирует дневной счётчик обращений владельца в Redis.
// Ошибки счётчика не прерывают запрос — логируются на уровне WARN.
func (c *ChatHandler) countUsage(ctx context.Context, ownerID string) int64 {
	if c.counter == nil {
		return 0
	}

	key := fmt.Sprintf("chat:usage:%s:%s", ownerID, time.Now().UTC().Format("20060102"))
	n, err := c.counter.Incr(ctx, key)
	if err != nil {
		c.logger.Warn("Не удалось обновить счётчик обращений",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return 0
	}

	// TTL выставляется при первом обращении за день
	if n == 1 {
		if err := c.counter.Expire(ctx, key, usageCounterTTL); err != nil {
			c.logger.Warn("Не удалось установить TTL счётчика",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	return n
}
