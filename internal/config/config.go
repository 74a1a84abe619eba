// Пакет config — загрузка и валидация конфигурации File Service
// из переменных окружения.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации File Service.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration
	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL (по умолчанию 5432)
	DBPort int
	// Имя базы данных
	DBName string
	// Пользователь БД
	DBUser string
	// Пароль пользователя БД
	DBPassword string
	// Режим SSL (disable, require, verify-ca, verify-full)
	DBSSLMode string

	// --- JWT / JWKS ---

	// URL JWKS endpoint провайдера идентичности
	JWKSURL string
	// Ожидаемый issuer JWT (пусто — не проверяется)
	JWTIssuer string
	// Путь к CA-сертификату для TLS при обращении к JWKS (опционально)
	JWKSCACertPath string
	// Таймаут HTTP-клиента JWKS (по умолчанию 10s)
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей (по умолчанию 5m)
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT (по умолчанию 30s)
	JWTLeeway time.Duration

	// --- Объектное хранилище (S3-совместимое: Cloudflare R2 / MinIO) ---

	// Endpoint хранилища (host:port, без схемы)
	S3Endpoint string
	// Access Key
	S3AccessKey string
	// Secret Key
	S3SecretKey string
	// Имя бакета
	S3Bucket string
	// Регион (для R2 — "auto")
	S3Region string
	// Использовать TLS при подключении к хранилищу
	S3UseSSL bool
	// Базовый публичный URL бакета (для формирования file_url)
	S3PublicURL string

	// --- Redis ---

	// Адрес Redis (host:port)
	RedisAddr string
	// Пароль Redis (пусто — без аутентификации)
	RedisPassword string
	// Номер базы Redis (по умолчанию 0)
	RedisDB int

	// --- LLM (Qwen через OpenAI-совместимый API) ---

	// API Key провайдера LLM; пусто — /chat отключён
	LLMAPIKey string
	// Базовый URL OpenAI-совместимого API
	LLMBaseURL string
	// Модель по умолчанию
	LLMModel string
	// Температура генерации по умолчанию
	LLMTemperature float64
	// Top-p по умолчанию
	LLMTopP float64
	// Максимум токенов ответа по умолчанию
	LLMMaxTokens int

	// --- Политика загрузки файлов ---

	// Максимальный размер одного файла в байтах (по умолчанию 10 MiB)
	MaxFileSize int64
	// Максимальное количество файлов в batch-запросе (по умолчанию 10)
	MaxBatchCount int
	// Количество воркеров batch-загрузки (по умолчанию 4)
	UploadWorkers int
	// Разрешённые MIME-типы по категориям (категория -> список типов)
	AllowedMIMETypes map[string][]string
	// Разрешённые расширения по категориям (категория -> список расширений с точкой)
	AllowedExtensions map[string][]string

	// --- Списки и кэш ---

	// Размер страницы по умолчанию (по умолчанию 20)
	DefaultPageSize int
	// Максимальный размер страницы (по умолчанию 100)
	MaxPageSize int
	// Максимальное количество записей в LRU-кэше метаданных (по умолчанию 1000)
	CacheSize int
	// TTL записи в LRU-кэше (по умолчанию 5m)
	CacheTTL time.Duration
}

// Разрешённые MIME-типы по умолчанию (категория -> список).
// Совпадает со списком расширений defaultAllowedExtensions.
var defaultAllowedMIMETypes = map[string][]string{
	"images":    {"image/jpeg", "image/png", "image/gif", "image/webp"},
	"documents": {"application/pdf", "application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "text/plain"},
	"audio":     {"audio/mpeg", "audio/wav"},
	"video":     {"video/mp4", "video/quicktime"},
}

// Разрешённые расширения по умолчанию (категория -> список, в нижнем регистре).
var defaultAllowedExtensions = map[string][]string{
	"images":    {".jpg", ".jpeg", ".png", ".gif", ".webp"},
	"documents": {".pdf", ".doc", ".docx", ".txt"},
	"audio":     {".mp3", ".wav"},
	"video":     {".mp4", ".mov"},
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны. Ошибка конфигурации фатальна при старте.
//
//nolint:cyclop // линейная последовательность чтения переменных
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// FS_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("FS_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("FS_PORT: %w", err)
	}

	// FS_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("FS_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("FS_LOG_LEVEL: %w", err)
	}

	// FS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FS_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.HTTPReadTimeout, err = getEnvDuration("FS_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("FS_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("FS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("FS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("FS_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("FS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("FS_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("FS_DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.DBUser, err = getEnvRequired("FS_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("FS_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("FS_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("FS_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- JWT / JWKS ---

	cfg.JWKSURL, err = getEnvRequired("FS_JWKS_URL")
	if err != nil {
		return nil, err
	}
	cfg.JWTIssuer = getEnvDefault("FS_JWT_ISSUER", "")
	cfg.JWKSCACertPath = getEnvDefault("FS_JWKS_CA_CERT_PATH", "")
	cfg.JWKSClientTimeout, err = getEnvDuration("FS_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("FS_JWKS_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FS_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWTLeeway, err = getEnvDuration("FS_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_JWT_LEEWAY: %w", err)
	}

	// --- Объектное хранилище ---

	cfg.S3Endpoint, err = getEnvRequired("FS_S3_ENDPOINT")
	if err != nil {
		return nil, err
	}
	cfg.S3AccessKey, err = getEnvRequired("FS_S3_ACCESS_KEY")
	if err != nil {
		return nil, err
	}
	cfg.S3SecretKey, err = getEnvRequired("FS_S3_SECRET_KEY")
	if err != nil {
		return nil, err
	}
	cfg.S3Bucket, err = getEnvRequired("FS_S3_BUCKET")
	if err != nil {
		return nil, err
	}
	cfg.S3Region = getEnvDefault("FS_S3_REGION", "auto")
	cfg.S3UseSSL, err = getEnvBool("FS_S3_USE_SSL", true)
	if err != nil {
		return nil, fmt.Errorf("FS_S3_USE_SSL: %w", err)
	}
	cfg.S3PublicURL, err = getEnvRequired("FS_S3_PUBLIC_URL")
	if err != nil {
		return nil, err
	}

	// --- Redis ---

	cfg.RedisAddr = getEnvDefault("FS_REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnvDefault("FS_REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvInt("FS_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("FS_REDIS_DB: %w", err)
	}

	// --- LLM ---

	cfg.LLMAPIKey = getEnvDefault("FS_LLM_API_KEY", "")
	cfg.LLMBaseURL = getEnvDefault("FS_LLM_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	cfg.LLMModel = getEnvDefault("FS_LLM_MODEL", "qwen-plus")
	cfg.LLMTemperature, err = getEnvFloat("FS_LLM_TEMPERATURE", 0.7)
	if err != nil {
		return nil, fmt.Errorf("FS_LLM_TEMPERATURE: %w", err)
	}
	cfg.LLMTopP, err = getEnvFloat("FS_LLM_TOP_P", 0.9)
	if err != nil {
		return nil, fmt.Errorf("FS_LLM_TOP_P: %w", err)
	}
	cfg.LLMMaxTokens, err = getEnvInt("FS_LLM_MAX_TOKENS", 1024)
	if err != nil {
		return nil, fmt.Errorf("FS_LLM_MAX_TOKENS: %w", err)
	}

	// --- Политика загрузки ---

	cfg.MaxFileSize, err = getEnvInt64("FS_MAX_FILE_SIZE", 10*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("FS_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("FS_MAX_FILE_SIZE: значение должно быть > 0")
	}
	cfg.MaxBatchCount, err = getEnvInt("FS_MAX_BATCH_COUNT", 10)
	if err != nil {
		return nil, fmt.Errorf("FS_MAX_BATCH_COUNT: %w", err)
	}
	if cfg.MaxBatchCount <= 0 {
		return nil, fmt.Errorf("FS_MAX_BATCH_COUNT: значение должно быть > 0")
	}
	cfg.UploadWorkers, err = getEnvInt("FS_UPLOAD_WORKERS", 4)
	if err != nil {
		return nil, fmt.Errorf("FS_UPLOAD_WORKERS: %w", err)
	}
	if cfg.UploadWorkers <= 0 {
		return nil, fmt.Errorf("FS_UPLOAD_WORKERS: значение должно быть > 0")
	}
	cfg.AllowedMIMETypes, err = getEnvCategoryMap("FS_ALLOWED_MIME_TYPES", defaultAllowedMIMETypes)
	if err != nil {
		return nil, fmt.Errorf("FS_ALLOWED_MIME_TYPES: %w", err)
	}
	cfg.AllowedExtensions, err = getEnvCategoryMap("FS_ALLOWED_EXTENSIONS", defaultAllowedExtensions)
	if err != nil {
		return nil, fmt.Errorf("FS_ALLOWED_EXTENSIONS: %w", err)
	}

	// --- Списки и кэш ---

	cfg.DefaultPageSize, err = getEnvInt("FS_DEFAULT_PAGE_SIZE", 20)
	if err != nil {
		return nil, fmt.Errorf("FS_DEFAULT_PAGE_SIZE: %w", err)
	}
	cfg.MaxPageSize, err = getEnvInt("FS_MAX_PAGE_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("FS_MAX_PAGE_SIZE: %w", err)
	}
	cfg.CacheSize, err = getEnvInt("FS_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("FS_CACHE_SIZE: %w", err)
	}
	cfg.CacheTTL, err = getEnvDuration("FS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FS_CACHE_TTL: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64-значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvFloat возвращает float64-значение переменной окружения или значение по умолчанию.
func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное число: %q", val)
	}
	return f, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// getEnvCategoryMap возвращает отображение категория -> список из JSON-значения
// переменной окружения или значение по умолчанию.
// Пример значения: {"images": ["image/jpeg", "image/png"]}.
func getEnvCategoryMap(key string, defaultVal map[string][]string) (map[string][]string, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	var m map[string][]string
	if err := json.Unmarshal([]byte(val), &m); err != nil {
		return nil, fmt.Errorf("некорректный JSON: %w", err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("пустое отображение категорий")
	}
	return m, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
