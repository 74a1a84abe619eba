// handler.go — основной обработчик API File Service.
// Объединяет health и бизнес-обработчики, делегируя запросы в сервисный слой.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/animenative/file-service/internal/api/response"
	"github.com/animenative/file-service/internal/domain/model"
	"github.com/animenative/file-service/internal/service"
)

// APIHandler — основной обработчик API File Service.
type APIHandler struct {
	uploadService *service.UploadService
	deleteService *service.DeleteService
	listService   *service.ListService
	chat          *ChatHandler
	health        *HealthHandler
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// chat может быть nil — тогда /api/v1/chat/ возвращает 503.
func NewAPIHandler(
	uploadService *service.UploadService,
	deleteService *service.DeleteService,
	listService *service.ListService,
	chat *ChatHandler,
	health *HealthHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		uploadService: uploadService,
		deleteService: deleteService,
		listService:   listService,
		chat:          chat,
		health:        health,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
// ValidationError — 400, ErrNotFound — 404, остальное — 500 с логированием.
// Текст внутренней ошибки включается в конверт для диагностики.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, logMessage string) {
	var vErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(w, "Файл не найден")
	case errors.As(err, &vErr):
		response.ValidationError(w, vErr.Reason)
	default:
		h.logger.Error(logMessage, slog.String("error", err.Error()))
		response.InternalError(w, "Внутренняя ошибка сервиса: "+err.Error())
	}
}

// fileData — представление записи файла в ответах upload/get.
type fileData struct {
	ID          int64             `json:"id"`
	FileName    string            `json:"file_name"`
	FilePath    string            `json:"file_path"`
	FileURL     string            `json:"file_url"`
	FileSize    int64             `json:"file_size"`
	FileSizeMB  float64           `json:"file_size_mb"`
	ContentType string            `json:"content_type"`
	ProjectName string            `json:"project_name"`
	FileType    string            `json:"file_type"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	IsPublic    bool              `json:"is_public"`
	UploadedAt  time.Time         `json:"uploaded_at"`
	IsExpired   bool              `json:"is_expired"`
}

// toFileData конвертирует domain-модель в представление ответа.
func toFileData(rec *model.FileRecord) fileData {
	return fileData{
		ID:          rec.ID,
		FileName:    rec.FileName,
		FilePath:    rec.FilePath,
		FileURL:     rec.FileURL,
		FileSize:    rec.FileSize,
		FileSizeMB:  rec.SizeMB(),
		ContentType: rec.ContentType,
		ProjectName: rec.ProjectName,
		FileType:    rec.FileType,
		Description: rec.Description,
		Metadata:    rec.Metadata,
		IsPublic:    rec.IsPublic,
		UploadedAt:  rec.UploadedAt,
		IsExpired:   rec.IsExpired(time.Now()),
	}
}
