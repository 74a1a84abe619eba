// Пакет repository — слой доступа к данным PostgreSQL для File Service.
// Владеет таблицей user_file_record — реестром загруженных файлов.
// Все read-пути по умолчанию фильтруют is_deleted = false (soft delete
// как предикат слоя репозитория). Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена (или не принадлежит запрашивающему).
	ErrNotFound = errors.New("запись не найдена")
	// ErrDuplicatePath — нарушение уникальности file_path при вставке.
	// Сигнал для повторной генерации ключа объекта.
	ErrDuplicatePath = errors.New("file_path уже существует")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
