package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/animenative/file-service/internal/api/middleware"
	"github.com/animenative/file-service/internal/config"
	"github.com/animenative/file-service/internal/domain/model"
	"github.com/animenative/file-service/internal/repository"
	"github.com/animenative/file-service/internal/service"
)

// --- Mock repository ---

// mockFileRepo — мок repository.FileRepository для тестов обработчиков.
type mockFileRepo struct {
	createFn     func(ctx context.Context, rec *model.FileRecord) error
	getByIDFn    func(ctx context.Context, id int64, ownerID string) (*model.FileRecord, error)
	listFn       func(ctx context.Context, params repository.ListParams) ([]*model.FileRecord, int, error)
	softDeleteFn func(ctx context.Context, id int64, ownerID string) error
}

func (m *mockFileRepo) Create(ctx context.Context, rec *model.FileRecord) error {
	if m.createFn != nil {
		return m.createFn(ctx, rec)
	}
	rec.ID = 1
	rec.UploadedAt = time.Now()
	return nil
}

func (m *mockFileRepo) GetByIDForOwner(ctx context.Context, id int64, ownerID string) (*model.FileRecord, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id, ownerID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockFileRepo) List(ctx context.Context, params repository.ListParams) ([]*model.FileRecord, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (m *mockFileRepo) SoftDelete(ctx context.Context, id int64, ownerID string) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id, ownerID)
	}
	return nil
}

func (m *mockFileRepo) Restore(_ context.Context, _ int64, _ string) error {
	return nil
}

// --- Mock object store ---

// mockObjectStore — мок service.ObjectStore для тестов обработчиков.
type mockObjectStore struct {
	putFn    func(ctx context.Context, key string, reader io.Reader, size int64, contentType string, tags map[string]string) (string, error)
	deleteFn func(ctx context.Context, key string) error

	putCalls    atomic.Int32
	deleteCalls atomic.Int32
}

func (m *mockObjectStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, tags map[string]string) (string, error) {
	m.putCalls.Add(1)
	if m.putFn != nil {
		return m.putFn(ctx, key, reader, size, contentType, tags)
	}
	return "https://files.example.com/" + key, nil
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	m.deleteCalls.Add(1)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

// --- Вспомогательные функции ---

// newTestConfig создаёт конфигурацию с политикой по умолчанию для тестов.
func newTestConfig() *config.Config {
	return &config.Config{
		MaxFileSize:   10 * 1024 * 1024,
		MaxBatchCount: 10,
		UploadWorkers: 4,
		AllowedMIMETypes: map[string][]string{
			"documents": {"application/pdf", "text/plain"},
		},
		AllowedExtensions: map[string][]string{
			"documents": {".pdf", ".txt"},
		},
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

// newTestAPIHandler создаёт APIHandler с моками репозитория и хранилища.
// chat может быть nil — роут /api/v1/chat/ вернёт 503.
func newTestAPIHandler(t *testing.T, repo *mockFileRepo, store *mockObjectStore, chat *ChatHandler) *APIHandler {
	t.Helper()

	cfg := newTestConfig()
	logger := slog.Default()
	cacheService := service.NewCacheService(100, 5*time.Minute)

	uploadService := service.NewUploadService(
		cfg,
		service.NewValidator(cfg),
		service.NewKeyNamer(),
		store,
		repo,
		logger,
	)
	deleteService := service.NewDeleteService(repo, store, cacheService, logger)
	listService := service.NewListService(repo, cacheService, cfg, logger)

	health := NewHealthHandler(
		stubChecker{status: "ok"},
		stubChecker{status: "ok"},
		stubChecker{status: "ok"},
		stubChecker{status: "ok"},
	)

	return NewAPIHandler(uploadService, deleteService, listService, chat, health, logger)
}

// stubChecker — ReadinessChecker с фиксированным статусом.
type stubChecker struct {
	status  string
	message string
}

func (s stubChecker) CheckReady() (string, string) {
	return s.status, s.message
}

// authedRequest добавляет claims владельца в контекст запроса.
func authedRequest(r *http.Request, ownerID string) *http.Request {
	claims := &middleware.AuthClaims{Subject: ownerID}
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyClaims, claims))
}

// doRequest выполняет запрос через httptest.ResponseRecorder.
func doRequest(handler http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, r)
	return rec
}
