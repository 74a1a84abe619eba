// Пакет llm — клиент моделей Qwen через OpenAI-совместимый API DashScope.
// Параметры генерации перечислены явной структурой ChatOptions с дефолтами
// из конфигурации — никакого open-ended passthrough произвольных параметров.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/animenative/file-service/internal/config"
)

// ErrUnsupportedModel — запрошена модель вне списка поддерживаемых.
var ErrUnsupportedModel = errors.New("модель не поддерживается")

// supportedModels — список поддерживаемых моделей Qwen.
var supportedModels = map[string]bool{
	// Текстовые
	"qwen-turbo": true,
	"qwen-plus":  true,
	"qwen-max":   true,
	"qwen-long":  true,
	// Мультимодальные
	"qwen-vl-plus": true,
	"qwen-vl-max":  true,
}

// ChatOptions — параметры одного запроса генерации.
// Нулевые значения заменяются дефолтами из конфигурации.
type ChatOptions struct {
	// Model — имя модели (должна входить в список поддерживаемых)
	Model string
	// Temperature — температура генерации
	Temperature float64
	// TopP — nucleus sampling
	TopP float64
	// MaxTokens — максимум токенов ответа
	MaxTokens int
}

// Client — клиент Qwen.
type Client struct {
	llm      *openai.LLM
	defaults ChatOptions
	logger   *slog.Logger
}

// New создаёт клиент Qwen из конфигурации.
// Возвращает ошибку, если API Key не задан или модель по умолчанию не поддерживается.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg.LLMAPIKey == "" {
		return nil, errors.New("API Key не задан (FS_LLM_API_KEY)")
	}
	if !supportedModels[cfg.LLMModel] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, cfg.LLMModel)
	}

	client, err := openai.New(
		openai.WithToken(cfg.LLMAPIKey),
		openai.WithBaseURL(cfg.LLMBaseURL),
		openai.WithModel(cfg.LLMModel),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания LLM-клиента: %w", err)
	}

	return &Client{
		llm: client,
		defaults: ChatOptions{
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			TopP:        cfg.LLMTopP,
			MaxTokens:   cfg.LLMMaxTokens,
		},
		logger: logger.With(slog.String("component", "llm_client")),
	}, nil
}

// Chat выполняет однораундовый диалог: системный промпт + сообщение пользователя.
// Возвращает текст ответа модели.
func (c *Client) Chat(ctx context.Context, systemPrompt, userMessage string, opts ChatOptions) (string, error) {
	opts = c.applyDefaults(opts)
	if !supportedModels[opts.Model] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedModel, opts.Model)
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userMessage),
	}

	resp, err := c.llm.GenerateContent(ctx, content,
		llms.WithModel(opts.Model),
		llms.WithTemperature(opts.Temperature),
		llms.WithTopP(opts.TopP),
		llms.WithMaxTokens(opts.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("ошибка запроса к модели %s: %w", opts.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("модель %s вернула пустой ответ", opts.Model)
	}

	c.logger.Debug("Ответ модели получен",
		slog.String("model", opts.Model),
		slog.Int("content_len", len(resp.Choices[0].Content)),
	)

	return resp.Choices[0].Content, nil
}

// applyDefaults заменяет нулевые поля opts дефолтами клиента.
func (c *Client) applyDefaults(opts ChatOptions) ChatOptions {
	if opts.Model == "" {
		opts.Model = c.defaults.Model
	}
	if opts.Temperature == 0 {
		opts.Temperature = c.defaults.Temperature
	}
	if opts.TopP == 0 {
		opts.TopP = c.defaults.TopP
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = c.defaults.MaxTokens
	}
	return opts
}

// IsSupportedModel сообщает, входит ли модель в список поддерживаемых.
func IsSupportedModel(model string) bool {
	return supportedModels[model]
}
