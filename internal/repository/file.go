package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/animenative/file-service/internal/domain/model"
)

// fileColumns — список столбцов таблицы user_file_record для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const fileColumns = `id, owner_id, file_name, file_path, file_url, file_size,
	content_type, project_name, file_type, description, metadata, is_public,
	expires_at, is_deleted, deleted_at, uploaded_at, updated_at`

// uniqueViolation — код SQLSTATE нарушения уникального ограничения.
const uniqueViolation = "23505"

// ListParams — параметры выборки файлов владельца.
// Указатели — nil означает, что фильтр не применяется.
type ListParams struct {
	// OwnerID — владелец записей (обязателен, выборка всегда scoped)
	OwnerID string
	// ProjectName — фильтр по имени проекта (exact match)
	ProjectName *string
	// FileType — фильтр по категории файла (exact match)
	FileType *string
	// IncludeDeleted — включать soft-deleted записи (административный вариант)
	IncludeDeleted bool
	// Limit — количество результатов
	Limit int
	// Offset — смещение
	Offset int
}

// FileRepository — интерфейс доступа к записям user_file_record.
type FileRepository interface {
	// Create вставляет новую запись. Заполняет ID, UploadedAt, UpdatedAt.
	// При нарушении уникальности file_path возвращает ErrDuplicatePath.
	Create(ctx context.Context, rec *model.FileRecord) error
	// GetByIDForOwner возвращает неудалённую запись по id, принадлежащую владельцу.
	// Отсутствие и чужая запись неразличимы — обе дают ErrNotFound.
	GetByIDForOwner(ctx context.Context, id int64, ownerID string) (*model.FileRecord, error)
	// List возвращает страницу записей владельца и общее количество совпадений.
	// Сортировка — uploaded_at DESC.
	List(ctx context.Context, params ListParams) ([]*model.FileRecord, int, error)
	// SoftDelete помечает запись удалённой (is_deleted = true, deleted_at = now()).
	SoftDelete(ctx context.Context, id int64, ownerID string) error
	// Restore снимает пометку удаления (административная операция).
	Restore(ctx context.Context, id int64, ownerID string) error
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// Create вставляет запись в user_file_record.
// uploaded_at и updated_at задаёт БД; id возвращается через RETURNING.
func (r *fileRepo) Create(ctx context.Context, rec *model.FileRecord) error {
	query := `
		INSERT INTO user_file_record (
			owner_id, file_name, file_path, file_url, file_size,
			content_type, project_name, file_type, description, metadata,
			is_public, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, uploaded_at, updated_at`

	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	err := r.db.QueryRow(ctx, query,
		rec.OwnerID, rec.FileName, rec.FilePath, rec.FileURL, rec.FileSize,
		rec.ContentType, rec.ProjectName, rec.FileType, rec.Description, metadata,
		rec.IsPublic, rec.ExpiresAt,
	).Scan(&rec.ID, &rec.UploadedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicatePath
		}
		return fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return nil
}

// GetByIDForOwner возвращает запись по id, ограниченную владельцем
// и is_deleted = false, или ErrNotFound.
func (r *fileRepo) GetByIDForOwner(ctx context.Context, id int64, ownerID string) (*model.FileRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM user_file_record WHERE id = $1 AND owner_id = $2 AND is_deleted = false`,
		fileColumns,
	)

	rec, err := scanFileRecord(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи файла: %w", err)
	}
	return rec, nil
}

// List возвращает страницу записей владельца с конъюнктивными фильтрами
// и общее количество совпадений. Возвращает (результаты, total, ошибка).
func (r *fileRepo) List(ctx context.Context, params ListParams) ([]*model.FileRecord, int, error) {
	where, args := buildListWhere(params, 1)
	argNum := len(args) + 1

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM user_file_record %s ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d`,
		fileColumns, where, argNum, argNum+1,
	)
	dataArgs := append(append([]any{}, args...), params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка выборки файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		rec, err := scanFileRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования записи файла: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	// Запрос общего количества (те же фильтры, без LIMIT/OFFSET)
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM user_file_record %s`, where)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}

	return result, total, nil
}

// SoftDelete помечает запись удалённой. Затрагивает только записи владельца,
// ещё не помеченные удалёнными. 0 затронутых строк — ErrNotFound.
func (r *fileRepo) SoftDelete(ctx context.Context, id int64, ownerID string) error {
	query := `
		UPDATE user_file_record
		SET is_deleted = true, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND is_deleted = false`

	tag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("ошибка пометки файла как удалённого: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Restore снимает пометку удаления с записи владельца.
func (r *fileRepo) Restore(ctx context.Context, id int64, ownerID string) error {
	query := `
		UPDATE user_file_record
		SET is_deleted = false, deleted_at = NULL, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND is_deleted = true`

	tag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("ошибка восстановления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanFileRecord сканирует одну строку user_file_record в модель.
func scanFileRecord(row pgx.Row) (*model.FileRecord, error) {
	rec := &model.FileRecord{}
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.FileName, &rec.FilePath, &rec.FileURL, &rec.FileSize,
		&rec.ContentType, &rec.ProjectName, &rec.FileType, &rec.Description, &rec.Metadata,
		&rec.IsPublic, &rec.ExpiresAt, &rec.IsDeleted, &rec.DeletedAt,
		&rec.UploadedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// buildListWhere строит WHERE-условие и аргументы для выборки файлов.
// startArg — номер первого $-параметра (для корректной нумерации).
func buildListWhere(params ListParams, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	// Выборка всегда ограничена владельцем
	conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argNum))
	args = append(args, params.OwnerID)
	argNum++

	// Предикат soft delete по умолчанию
	if !params.IncludeDeleted {
		conditions = append(conditions, "is_deleted = false")
	}

	// Фильтр по имени проекта (exact match)
	if params.ProjectName != nil && *params.ProjectName != "" {
		conditions = append(conditions, fmt.Sprintf("project_name = $%d", argNum))
		args = append(args, *params.ProjectName)
		argNum++
	}

	// Фильтр по категории файла (exact match)
	if params.FileType != nil && *params.FileType != "" {
		conditions = append(conditions, fmt.Sprintf("file_type = $%d", argNum))
		args = append(args, *params.FileType)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
