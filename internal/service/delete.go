// delete.go — оркестратор удаления файлов.
// Порядок жёсткий: удаление объекта из хранилища предшествует soft delete
// записи — неудачное удаление объекта никогда не оставляет "удалённую"
// запись с живыми байтами.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/animenative/file-service/internal/repository"
)

// Prometheus-метрики удаления.
var deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fs_deletes_total",
	Help: "Общее количество удалений файлов по результату.",
}, []string{"status"})

// DeleteService — оркестратор удаления файлов.
type DeleteService struct {
	repo   repository.FileRepository
	store  ObjectStore
	cache  *CacheService
	logger *slog.Logger
}

// NewDeleteService создаёт оркестратор удаления.
func NewDeleteService(
	repo repository.FileRepository,
	store ObjectStore,
	cache *CacheService,
	logger *slog.Logger,
) *DeleteService {
	return &DeleteService{
		repo:   repo,
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "delete_service")),
	}
}

// Delete удаляет файл записи recordID от имени requesterID.
//
// Поток:
//  1. Поиск записи, ограниченный владельцем и is_deleted = false.
//     Отсутствие и чужая запись дают одинаковый ErrNotFound — существование
//     чужих файлов не раскрывается, хранилище не затрагивается.
//  2. Удаление объекта из хранилища. При ошибке — StorageError,
//     запись реестра не трогается.
//  3. Soft delete записи реестра и инвалидация кэша.
func (s *DeleteService) Delete(ctx context.Context, recordID int64, requesterID string) error {
	// 1. Запись должна существовать и принадлежать запрашивающему
	rec, err := s.repo.GetByIDForOwner(ctx, recordID, requesterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			deletesTotal.WithLabelValues("not_found").Inc()
			return ErrNotFound
		}
		deletesTotal.WithLabelValues("error").Inc()
		return &LedgerError{Op: "get", Err: err}
	}

	// 2. Сначала удаляем объект из хранилища
	if err := s.store.Delete(ctx, rec.FilePath); err != nil {
		deletesTotal.WithLabelValues("error").Inc()
		return &StorageError{Op: "delete", Key: rec.FilePath, Err: err}
	}

	// 3. Затем помечаем запись удалённой
	if err := s.repo.SoftDelete(ctx, recordID, requesterID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Запись исчезла между шагами 1 и 3 — объект уже удалён,
			// итог для вызывающего тот же
			deletesTotal.WithLabelValues("not_found").Inc()
			return ErrNotFound
		}
		deletesTotal.WithLabelValues("error").Inc()
		return &LedgerError{Op: "soft_delete", Err: err}
	}

	s.cache.Delete(recordID)
	deletesTotal.WithLabelValues("success").Inc()

	s.logger.Info("Файл удалён",
		slog.Int64("record_id", recordID),
		slog.String("object_key", rec.FilePath),
		slog.String("owner_id", requesterID),
	)

	return nil
}
