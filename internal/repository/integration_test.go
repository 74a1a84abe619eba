package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/animenative/file-service/internal/config"
	"github.com/animenative/file-service/internal/database"
	"github.com/animenative/file-service/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool; контейнер и pool закрываются через t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("files_test"),
		postgres.WithUsername("files"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	t.Setenv("FS_DB_HOST", host)
	t.Setenv("FS_DB_PORT", port.Port())
	t.Setenv("FS_DB_NAME", "files_test")
	t.Setenv("FS_DB_USER", "files")
	t.Setenv("FS_DB_PASSWORD", "test-password")
	t.Setenv("FS_DB_SSL_MODE", "disable")
	t.Setenv("FS_JWKS_URL", "https://idp.test/jwks")
	t.Setenv("FS_S3_ENDPOINT", "r2.test")
	t.Setenv("FS_S3_ACCESS_KEY", "test")
	t.Setenv("FS_S3_SECRET_KEY", "test")
	t.Setenv("FS_S3_BUCKET", "user-files")
	t.Setenv("FS_S3_PUBLIC_URL", "https://files.test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// newDBFileRecord — запись файла для интеграционных тестов.
func newDBFileRecord(ownerID, filePath string) *model.FileRecord {
	return &model.FileRecord{
		OwnerID:     ownerID,
		FileName:    "report.pdf",
		FilePath:    filePath,
		FileURL:     "https://files.test/" + filePath,
		FileSize:    2048,
		ContentType: "application/pdf",
		ProjectName: "reports",
		FileType:    "documents",
		Description: "интеграционный тест",
		Metadata:    map[string]string{"source": "test"},
	}
}

// --- Тесты FileRepository на живой БД ---

func TestFileRepositoryCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileRepository(pool)

	rec := newDBFileRecord("user-1", "reports/documents/20260315_103045_aaaa1111_report.pdf")

	// Create
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if rec.ID == 0 {
		t.Error("ID не установлен после Create")
	}
	if rec.UploadedAt.IsZero() {
		t.Error("UploadedAt не установлен после Create")
	}

	// GetByIDForOwner
	got, err := repo.GetByIDForOwner(ctx, rec.ID, "user-1")
	if err != nil {
		t.Fatalf("GetByIDForOwner() ошибка: %v", err)
	}
	if got.FileName != "report.pdf" {
		t.Errorf("FileName = %q, хотели %q", got.FileName, "report.pdf")
	}
	if got.Metadata["source"] != "test" {
		t.Errorf("Metadata = %v, хотели source=test", got.Metadata)
	}

	// Чужой владелец — ErrNotFound
	if _, err := repo.GetByIDForOwner(ctx, rec.ID, "intruder"); !errors.Is(err, ErrNotFound) {
		t.Errorf("чужой владелец: ошибка = %v, ожидался ErrNotFound", err)
	}

	// List
	list, total, err := repo.List(ctx, ListParams{OwnerID: "user-1", Limit: 10})
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Errorf("List() вернул %d записей (total=%d), хотели 1", len(list), total)
	}

	// SoftDelete
	if err := repo.SoftDelete(ctx, rec.ID, "user-1"); err != nil {
		t.Fatalf("SoftDelete() ошибка: %v", err)
	}
	if _, err := repo.GetByIDForOwner(ctx, rec.ID, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("после SoftDelete ожидали ErrNotFound, получили: %v", err)
	}

	// Повторный SoftDelete — запись уже помечена
	if err := repo.SoftDelete(ctx, rec.ID, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный SoftDelete: ошибка = %v, ожидался ErrNotFound", err)
	}

	// Выборка по умолчанию не видит удалённые; IncludeDeleted — видит
	_, total, err = repo.List(ctx, ListParams{OwnerID: "user-1", Limit: 10})
	if err != nil {
		t.Fatalf("List() после SoftDelete ошибка: %v", err)
	}
	if total != 0 {
		t.Errorf("после SoftDelete total = %d, хотели 0", total)
	}
	deleted, total, err := repo.List(ctx, ListParams{OwnerID: "user-1", IncludeDeleted: true, Limit: 10})
	if err != nil {
		t.Fatalf("List(IncludeDeleted) ошибка: %v", err)
	}
	if total != 1 || !deleted[0].IsDeleted || deleted[0].DeletedAt == nil {
		t.Errorf("List(IncludeDeleted): total=%d, IsDeleted=%v, DeletedAt=%v",
			total, deleted[0].IsDeleted, deleted[0].DeletedAt)
	}

	// Restore — запись снова видна владельцу
	if err := repo.Restore(ctx, rec.ID, "user-1"); err != nil {
		t.Fatalf("Restore() ошибка: %v", err)
	}
	if _, err := repo.GetByIDForOwner(ctx, rec.ID, "user-1"); err != nil {
		t.Errorf("после Restore запись недоступна: %v", err)
	}
}

func TestFileRepository_DuplicatePath(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileRepository(pool)

	path := "reports/documents/20260315_103045_bbbb2222_report.pdf"
	if err := repo.Create(ctx, newDBFileRecord("user-1", path)); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// Повторная вставка того же file_path — нарушение уникальности
	err := repo.Create(ctx, newDBFileRecord("user-2", path))
	if !errors.Is(err, ErrDuplicatePath) {
		t.Errorf("повторный Create: ошибка = %v, ожидался ErrDuplicatePath", err)
	}
}

// TestFileRepository_DeletedPathStaysReserved проверяет, что file_path
// soft-deleted записи остаётся занятым: уникальный индекс не исключает
// удалённые строки.
func TestFileRepository_DeletedPathStaysReserved(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileRepository(pool)

	path := "reports/documents/20260315_103045_cccc3333_report.pdf"
	rec := newDBFileRecord("user-1", path)
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if err := repo.SoftDelete(ctx, rec.ID, "user-1"); err != nil {
		t.Fatalf("SoftDelete() ошибка: %v", err)
	}

	err := repo.Create(ctx, newDBFileRecord("user-1", path))
	if !errors.Is(err, ErrDuplicatePath) {
		t.Errorf("Create() на путь удалённой записи: ошибка = %v, ожидался ErrDuplicatePath", err)
	}
}

// TestFileRepository_ListFilters проверяет конъюнктивные фильтры
// и сортировку uploaded_at DESC на живой БД.
func TestFileRepository_ListFilters(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileRepository(pool)

	mk := func(path, project, fileType string) {
		rec := newDBFileRecord("user-1", path)
		rec.ProjectName = project
		rec.FileType = fileType
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create(%s) ошибка: %v", path, err)
		}
	}
	mk("p1/documents/f1.pdf", "p1", "documents")
	mk("p1/images/f2.png", "p1", "images")
	mk("p2/documents/f3.pdf", "p2", "documents")

	project := "p1"
	fileType := "documents"
	list, total, err := repo.List(ctx, ListParams{
		OwnerID:     "user-1",
		ProjectName: &project,
		FileType:    &fileType,
		Limit:       10,
	})
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("List(p1, documents) вернул %d записей (total=%d), хотели 1", len(list), total)
	}
	if list[0].FilePath != "p1/documents/f1.pdf" {
		t.Errorf("FilePath = %q, хотели p1/documents/f1.pdf", list[0].FilePath)
	}

	// Без фильтров — все три, новые первыми
	all, total, err := repo.List(ctx, ListParams{OwnerID: "user-1", Limit: 10})
	if err != nil {
		t.Fatalf("List() без фильтров ошибка: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, хотели 3", total)
	}
	for i := 1; i < len(all); i++ {
		if all[i].UploadedAt.After(all[i-1].UploadedAt) {
			t.Errorf("нарушен порядок uploaded_at DESC: %v после %v",
				all[i].UploadedAt, all[i-1].UploadedAt)
		}
	}
}
