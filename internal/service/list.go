// list.go — сервис выборки файлов владельца с фильтрацией и пагинацией.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/animenative/file-service/internal/config"
	"github.com/animenative/file-service/internal/domain/model"
	"github.com/animenative/file-service/internal/repository"
)

// ListQuery — параметры запроса списка файлов.
type ListQuery struct {
	// OwnerID — владелец (обязателен)
	OwnerID string
	// ProjectName — фильтр по проекту (опционально)
	ProjectName *string
	// FileType — фильтр по категории (опционально)
	FileType *string
	// Page — номер страницы, начиная с 1
	Page int
	// PageSize — размер страницы (ограничивается конфигурацией)
	PageSize int
}

// FileView — представление записи файла для ответа API,
// с производными полями file_size_mb и is_expired.
type FileView struct {
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

// Page — страница результатов выборки.
type Page struct {
	Items      []FileView `json:"files"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}

// ListService — сервис выборки файлов и получения отдельных записей.
type ListService struct {
	repo   repository.FileRepository
	cache  *CacheService
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time
}

// NewListService создаёт сервис выборки.
func NewListService(
	repo repository.FileRepository,
	cache *CacheService,
	cfg *config.Config,
	logger *slog.Logger,
) *ListService {
	return &ListService{
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "list_service")),
		now:    time.Now,
	}
}

// List возвращает страницу файлов владельца.
// Фильтры конъюнктивны; сортировка — uploaded_at DESC; пагинация 1-индексная;
// page_size ограничивается максимумом из конфигурации.
func (s *ListService) List(ctx context.Context, q ListQuery) (*Page, error) {
	page, pageSize := s.normalizePagination(q.Page, q.PageSize)

	items, total, err := s.repo.List(ctx, repository.ListParams{
		OwnerID:     q.OwnerID,
		ProjectName: q.ProjectName,
		FileType:    q.FileType,
		Limit:       pageSize,
		Offset:      (page - 1) * pageSize,
	})
	if err != nil {
		return nil, &LedgerError{Op: "list", Err: err}
	}

	now := s.now()
	views := make([]FileView, 0, len(items))
	for _, rec := range items {
		views = append(views, toFileView(rec, now))
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	// Пустая выборка — одна пустая страница, а не ноль страниц
	if totalPages == 0 {
		totalPages = 1
	}

	s.logger.Debug("Выборка файлов выполнена",
		slog.String("owner_id", q.OwnerID),
		slog.Int("total", total),
		slog.Int("returned", len(views)),
	)

	return &Page{
		Items:      views,
		Total:      total,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// GetRecord возвращает запись файла владельца по id.
// Сначала проверяется LRU-кэш; при промахе — запрос к реестру
// с последующим кэшированием.
func (s *ListService) GetRecord(ctx context.Context, id int64, ownerID string) (*model.FileRecord, error) {
	if rec, ok := s.cache.Get(id); ok {
		// Кэш общий для всех владельцев — принадлежность проверяется здесь
		if rec.OwnerID != ownerID {
			return nil, ErrNotFound
		}
		return rec, nil
	}

	rec, err := s.repo.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &LedgerError{Op: "get", Err: err}
	}

	s.cache.Set(id, rec)
	return rec, nil
}

// normalizePagination приводит номер страницы и размер к допустимым значениям.
func (s *ListService) normalizePagination(page, pageSize int) (normPage, normSize int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize
}

// toFileView строит представление записи с производными полями.
func toFileView(rec *model.FileRecord, now time.Time) FileView {
	return FileView{
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
		IsExpired:   rec.IsExpired(now),
	}
}
