package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/animenative/file-service/internal/config"
	"github.com/animenative/file-service/internal/domain/model"
	"github.com/animenative/file-service/internal/repository"
)

// --- Mock repository ---

// mockFileRepo — мок FileRepository для unit-тестов.
type mockFileRepo struct {
	createFn     func(ctx context.Context, rec *model.FileRecord) error
	getByIDFn    func(ctx context.Context, id int64, ownerID string) (*model.FileRecord, error)
	listFn       func(ctx context.Context, params repository.ListParams) ([]*model.FileRecord, int, error)
	softDeleteFn func(ctx context.Context, id int64, ownerID string) error
	restoreFn    func(ctx context.Context, id int64, ownerID string) error
}

func (m *mockFileRepo) Create(ctx context.Context, rec *model.FileRecord) error {
	if m.createFn != nil {
		return m.createFn(ctx, rec)
	}
	rec.ID = 1
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

func (m *mockFileRepo) Restore(ctx context.Context, id int64, ownerID string) error {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, id, ownerID)
	}
	return nil
}

// --- Mock object store ---

// mockObjectStore — мок ObjectStore для unit-тестов.
// Счётчики атомарны: batch-загрузка вызывает Put из нескольких горутин.
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
			"images":    {"image/jpeg", "image/png"},
			"documents": {"application/pdf", "text/plain"},
		},
		AllowedExtensions: map[string][]string{
			"images":    {".jpg", ".jpeg", ".png"},
			"documents": {".pdf", ".txt"},
		},
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

// newTestUploadService создаёт UploadService с моками для тестов.
func newTestUploadService(cfg *config.Config, store *mockObjectStore, repo *mockFileRepo) *UploadService {
	return NewUploadService(
		cfg,
		NewValidator(cfg),
		NewKeyNamer(),
		store,
		repo,
		slog.Default(),
	)
}

// textParams возвращает параметры загрузки текстового файла.
func textParams(name, content string) UploadParams {
	return UploadParams{
		Reader:           strings.NewReader(content),
		OriginalFilename: name,
		ContentType:      "text/plain",
		Size:             int64(len(content)),
		ProjectName:      "proj",
		FileType:         "documents",
		OwnerID:          "user-1",
	}
}

// --- Тесты UploadService.UploadOne ---

// TestUploadService_UploadOne_Success проверяет успешную загрузку:
// запись объекта, вставку в реестр и поля результирующей записи.
func TestUploadService_UploadOne_Success(t *testing.T) {
	store := &mockObjectStore{}
	repo := &mockFileRepo{
		createFn: func(_ context.Context, rec *model.FileRecord) error {
			rec.ID = 42
			return nil
		},
	}
	svc := newTestUploadService(newTestConfig(), store, repo)

	rec, err := svc.UploadOne(context.Background(), textParams("notes.txt", "hello world"))
	if err != nil {
		t.Fatalf("UploadOne ошибка: %v", err)
	}

	if rec.ID != 42 {
		t.Errorf("ID = %d, ожидался 42", rec.ID)
	}
	if rec.FileName != "notes.txt" {
		t.Errorf("FileName = %q, ожидался %q", rec.FileName, "notes.txt")
	}
	if rec.FileSize != 11 {
		t.Errorf("FileSize = %d, ожидался 11 (фактический размер)", rec.FileSize)
	}
	if rec.OwnerID != "user-1" {
		t.Errorf("OwnerID = %q, ожидался %q", rec.OwnerID, "user-1")
	}
	if !strings.HasPrefix(rec.FilePath, "proj/documents/") {
		t.Errorf("FilePath = %q, ожидался префикс proj/documents/", rec.FilePath)
	}
	if !strings.HasPrefix(rec.FileURL, "https://files.example.com/") {
		t.Errorf("FileURL = %q, ожидался публичный URL", rec.FileURL)
	}
	if got := store.putCalls.Load(); got != 1 {
		t.Errorf("store.Put вызван %d раз, ожидался 1", got)
	}
}

// TestUploadService_UploadOne_CustomName проверяет использование
// пользовательского имени в отображаемом имени и ключе объекта.
func TestUploadService_UploadOne_CustomName(t *testing.T) {
	store := &mockObjectStore{}
	svc := newTestUploadService(newTestConfig(), store, &mockFileRepo{})

	params := textParams("original.txt", "data")
	params.CustomName = "renamed.txt"

	rec, err := svc.UploadOne(context.Background(), params)
	if err != nil {
		t.Fatalf("UploadOne ошибка: %v", err)
	}
	if rec.FileName != "renamed.txt" {
		t.Errorf("FileName = %q, ожидался %q", rec.FileName, "renamed.txt")
	}
	if !strings.HasSuffix(rec.FilePath, "_renamed.txt") {
		t.Errorf("FilePath = %q, ожидалось пользовательское имя в ключе", rec.FilePath)
	}
}

// TestUploadService_UploadOne_SizeRejected проверяет отказ по заявленному
// размеру до каких-либо обращений к хранилищу и реестру.
func TestUploadService_UploadOne_SizeRejected(t *testing.T) {
	store := &mockObjectStore{}
	repo := &mockFileRepo{
		createFn: func(_ context.Context, _ *model.FileRecord) error {
			t.Error("repo.Create не должен вызываться при отказе валидации")
			return nil
		},
	}
	svc := newTestUploadService(newTestConfig(), store, repo)

	params := textParams("big.txt", "data")
	params.Size = 20 * 1024 * 1024

	_, err := svc.UploadOne(context.Background(), params)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("тип ошибки %T, ожидался *ValidationError", err)
	}
	if got := store.putCalls.Load(); got != 0 {
		t.Errorf("store.Put вызван %d раз, ожидался 0", got)
	}
}

// TestUploadService_UploadOne_SniffContentType проверяет определение
// MIME-типа по содержимому при пустом заявленном типе.
func TestUploadService_UploadOne_SniffContentType(t *testing.T) {
	store := &mockObjectStore{}
	svc := newTestUploadService(newTestConfig(), store, &mockFileRepo{})

	params := textParams("notes.txt", "plain text content here")
	params.ContentType = ""

	rec, err := svc.UploadOne(context.Background(), params)
	if err != nil {
		t.Fatalf("UploadOne ошибка: %v", err)
	}
	if rec.ContentType != "text/plain" {
		t.Errorf("ContentType = %q, ожидался %q (определён по содержимому)", rec.ContentType, "text/plain")
	}
}

// TestUploadService_UploadOne_CollisionRetry проверяет один повтор
// со свежим ключом при коллизии file_path в реестре.
func TestUploadService_UploadOne_CollisionRetry(t *testing.T) {
	var keys []string
	store := &mockObjectStore{
		putFn: func(_ context.Context, key string, _ io.Reader, _ int64, _ string, _ map[string]string) (string, error) {
			keys = append(keys, key)
			return "https://files.example.com/" + key, nil
		},
	}

	createCalls := 0
	repo := &mockFileRepo{
		createFn: func(_ context.Context, rec *model.FileRecord) error {
			createCalls++
			if createCalls == 1 {
				return repository.ErrDuplicatePath
			}
			rec.ID = 7
			return nil
		},
	}
	svc := newTestUploadService(newTestConfig(), store, repo)

	rec, err := svc.UploadOne(context.Background(), textParams("notes.txt", "data"))
	if err != nil {
		t.Fatalf("UploadOne ошибка: %v", err)
	}
	if rec.ID != 7 {
		t.Errorf("ID = %d, ожидался 7", rec.ID)
	}
	if createCalls != 2 {
		t.Errorf("repo.Create вызван %d раз, ожидался 2 (повтор после коллизии)", createCalls)
	}
	if len(keys) != 2 {
		t.Fatalf("store.Put вызван %d раз, ожидался 2 (повторная запись со свежим ключом)", len(keys))
	}
	if keys[0] == keys[1] {
		t.Errorf("ключи повторов совпали: %q", keys[0])
	}
}

// TestUploadService_UploadOne_LedgerFailure проверяет, что при отказе реестра
// после успешной записи в хранилище возвращается *LedgerError,
// а объект остаётся (осиротевший, логируется для ручной очистки).
func TestUploadService_UploadOne_LedgerFailure(t *testing.T) {
	store := &mockObjectStore{}
	repo := &mockFileRepo{
		createFn: func(_ context.Context, _ *model.FileRecord) error {
			return errors.New("connection refused")
		},
	}
	svc := newTestUploadService(newTestConfig(), store, repo)

	_, err := svc.UploadOne(context.Background(), textParams("notes.txt", "data"))
	var lErr *LedgerError
	if !errors.As(err, &lErr) {
		t.Fatalf("тип ошибки %T, ожидался *LedgerError", err)
	}
	if got := store.putCalls.Load(); got != 1 {
		t.Errorf("store.Put вызван %d раз, ожидался 1", got)
	}
	if got := store.deleteCalls.Load(); got != 0 {
		t.Errorf("store.Delete вызван %d раз, ожидался 0 (компенсация не выполняется)", got)
	}
}

// TestUploadService_UploadOne_StorageFailure проверяет, что при отказе
// хранилища возвращается *StorageError и запись в реестр не выполняется.
func TestUploadService_UploadOne_StorageFailure(t *testing.T) {
	store := &mockObjectStore{
		putFn: func(_ context.Context, _ string, _ io.Reader, _ int64, _ string, _ map[string]string) (string, error) {
			return "", errors.New("bucket unavailable")
		},
	}
	repo := &mockFileRepo{
		createFn: func(_ context.Context, _ *model.FileRecord) error {
			t.Error("repo.Create не должен вызываться при отказе хранилища")
			return nil
		},
	}
	svc := newTestUploadService(newTestConfig(), store, repo)

	_, err := svc.UploadOne(context.Background(), textParams("notes.txt", "data"))
	var sErr *StorageError
	if !errors.As(err, &sErr) {
		t.Fatalf("тип ошибки %T, ожидался *StorageError", err)
	}
}

// --- Тесты UploadService.UploadBatch ---

// TestUploadService_UploadBatch_Success проверяет успешную batch-загрузку
// и инвариант SuccessCount + FailedCount == Total.
func TestUploadService_UploadBatch_Success(t *testing.T) {
	store := &mockObjectStore{}
	svc := newTestUploadService(newTestConfig(), store, &mockFileRepo{})

	files := []UploadParams{
		textParams("a.txt", "aaa"),
		textParams("b.txt", "bbb"),
		textParams("c.txt", "ccc"),
	}

	result, err := svc.UploadBatch(context.Background(), files)
	if err != nil {
		t.Fatalf("UploadBatch ошибка: %v", err)
	}

	if result.Total != 3 {
		t.Errorf("Total = %d, ожидался 3", result.Total)
	}
	if result.SuccessCount != 3 {
		t.Errorf("SuccessCount = %d, ожидался 3", result.SuccessCount)
	}
	if result.FailedCount != 0 {
		t.Errorf("FailedCount = %d, ожидался 0", result.FailedCount)
	}
	if result.SuccessCount+result.FailedCount != result.Total {
		t.Errorf("нарушен инвариант: %d + %d != %d",
			result.SuccessCount, result.FailedCount, result.Total)
	}
}

// TestUploadService_UploadBatch_TooMany проверяет отклонение batch целиком
// при превышении лимита количества — без обращений к хранилищу.
func TestUploadService_UploadBatch_TooMany(t *testing.T) {
	cfg := newTestConfig()
	cfg.MaxBatchCount = 2

	store := &mockObjectStore{}
	svc := newTestUploadService(cfg, store, &mockFileRepo{})

	files := []UploadParams{
		textParams("a.txt", "aaa"),
		textParams("b.txt", "bbb"),
		textParams("c.txt", "ccc"),
	}

	_, err := svc.UploadBatch(context.Background(), files)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("тип ошибки %T, ожидался *ValidationError", err)
	}
	if got := store.putCalls.Load(); got != 0 {
		t.Errorf("store.Put вызван %d раз, ожидался 0 (batch отклонён целиком)", got)
	}
}

// TestUploadService_UploadBatch_PartialFailure проверяет изоляцию отказа
// одного файла: остальные загружаются, отказ фиксируется в Failures.
func TestUploadService_UploadBatch_PartialFailure(t *testing.T) {
	store := &mockObjectStore{}
	svc := newTestUploadService(newTestConfig(), store, &mockFileRepo{})

	bad := UploadParams{
		Reader:           strings.NewReader("MZ..."),
		OriginalFilename: "app.exe",
		ContentType:      "application/x-msdownload",
		Size:             5,
		ProjectName:      "proj",
		FileType:         "documents",
		OwnerID:          "user-1",
	}

	files := []UploadParams{
		textParams("a.txt", "aaa"),
		bad,
		textParams("c.txt", "ccc"),
	}

	result, err := svc.UploadBatch(context.Background(), files)
	if err != nil {
		t.Fatalf("UploadBatch ошибка: %v", err)
	}

	if result.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, ожидался 2", result.SuccessCount)
	}
	if result.FailedCount != 1 {
		t.Errorf("FailedCount = %d, ожидался 1", result.FailedCount)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures count = %d, ожидался 1", len(result.Failures))
	}
	if result.Failures[0].FileName != "app.exe" {
		t.Errorf("Failures[0].FileName = %q, ожидался %q", result.Failures[0].FileName, "app.exe")
	}
	if result.Failures[0].Error == "" {
		t.Error("Failures[0].Error пуст, ожидалась причина отказа")
	}
}
