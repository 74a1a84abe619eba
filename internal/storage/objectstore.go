// Пакет storage — клиент S3-совместимого объектного хранилища (Cloudflare R2 / MinIO).
// Тонкая обёртка над minio-go: запись объекта с метаданными, удаление,
// формирование публичного URL. Конструируется один раз в main и передаётся
// по ссылке — никакого глобального состояния.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/animenative/file-service/internal/config"
)

// Client — клиент объектного хранилища.
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
	logger    *slog.Logger
}

// New создаёт клиент объектного хранилища из конфигурации.
// Соединение ленивое — ошибки доступности проявляются при первой операции
// (и в readiness probe).
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	mc, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента хранилища: %w", err)
	}

	return &Client{
		mc:        mc,
		bucket:    cfg.S3Bucket,
		publicURL: strings.TrimRight(cfg.S3PublicURL, "/"),
		logger:    logger.With(slog.String("component", "object_store")),
	}, nil
}

// Put записывает объект по ключу key с указанным Content-Type и набором
// пользовательских метаданных. Возвращает публичный URL объекта.
func (c *Client) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, tags map[string]string) (string, error) {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: tags,
	}

	info, err := c.mc.PutObject(ctx, c.bucket, key, reader, size, opts)
	if err != nil {
		return "", fmt.Errorf("ошибка записи объекта %s: %w", key, err)
	}

	c.logger.Debug("Объект записан в хранилище",
		slog.String("key", key),
		slog.Int64("size", info.Size),
	)

	return c.PublicURL(key), nil
}

// Delete удаляет объект по ключу.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("ошибка удаления объекта %s: %w", key, err)
	}

	c.logger.Debug("Объект удалён из хранилища", slog.String("key", key))
	return nil
}

// PublicURL возвращает публичный URL объекта по ключу.
func (c *Client) PublicURL(key string) string {
	return c.publicURL + "/" + key
}

// CheckReady проверяет доступность хранилища (существование бакета).
// Реализует интерфейс handlers.ReadinessChecker.
func (c *Client) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return "fail", fmt.Sprintf("хранилище недоступно: %v", err)
	}
	if !exists {
		return "fail", fmt.Sprintf("бакет %s не существует", c.bucket)
	}
	return "ok", "бакет доступен"
}
