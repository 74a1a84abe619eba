// upload.go — оркестратор загрузки файлов: Validator -> хранилище -> реестр.
// Одиночная загрузка атомарна с точки зрения вызывающего; batch-загрузка
// изолирует ошибки отдельных файлов ("continue on partial failure").
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/animenative/file-service/internal/config"
	"github.com/animenative/file-service/internal/domain/model"
	"github.com/animenative/file-service/internal/repository"
)

// Prometheus-метрики загрузки.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_uploads_total",
		Help: "Общее количество загрузок файлов по результату.",
	}, []string{"status"})
	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_upload_bytes_total",
		Help: "Суммарный объём успешно загруженных байт.",
	})
)

// ObjectStore — интерфейс объектного хранилища, потребляемый сервисами.
// Реализуется storage.Client (Cloudflare R2 / MinIO).
type ObjectStore interface {
	// Put записывает объект и возвращает его публичный URL.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, tags map[string]string) (string, error)
	// Delete удаляет объект по ключу.
	Delete(ctx context.Context, key string) error
}

// UploadParams — параметры загрузки одного файла.
type UploadParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// OriginalFilename — оригинальное имя файла
	OriginalFilename string
	// ContentType — заявленный MIME-тип (пусто — определяется по содержимому)
	ContentType string
	// Size — заявленный размер файла в байтах
	Size int64
	// ProjectName — имя проекта
	ProjectName string
	// FileType — категория файла
	FileType string
	// CustomName — пользовательское имя файла (опционально)
	CustomName string
	// Description — описание файла (опционально)
	Description string
	// OwnerID — идентификатор владельца (sub из JWT)
	OwnerID string
}

// BatchFailure — ошибка загрузки одного файла в batch-запросе.
type BatchFailure struct {
	// FileName — имя файла, который не удалось загрузить
	FileName string `json:"file_name"`
	// Error — причина отказа
	Error string `json:"error"`
}

// BatchResult — агрегированный результат batch-загрузки.
// Инвариант: SuccessCount + FailedCount == Total.
type BatchResult struct {
	Total        int
	SuccessCount int
	FailedCount  int
	Successes    []*model.FileRecord
	Failures     []BatchFailure
}

// UploadService — оркестратор загрузки файлов.
type UploadService struct {
	cfg       *config.Config
	validator *Validator
	namer     *KeyNamer
	store     ObjectStore
	repo      repository.FileRepository
	logger    *slog.Logger
}

// NewUploadService создаёт оркестратор загрузки.
func NewUploadService(
	cfg *config.Config,
	validator *Validator,
	namer *KeyNamer,
	store ObjectStore,
	repo repository.FileRepository,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		cfg:       cfg,
		validator: validator,
		namer:     namer,
		store:     store,
		repo:      repo,
		logger:    logger.With(slog.String("component", "upload_service")),
	}
}

// UploadOne загружает один файл.
//
// Поток:
//  1. Валидация (размер, MIME, расширение) — до любых сетевых вызовов.
//  2. Чтение содержимого в буфер (размер ограничен политикой) и определение
//     MIME-типа по содержимому, если заявленный отсутствует.
//  3. Генерация ключа объекта.
//  4. Запись в хранилище с метаданными (project, type, upload_time).
//  5. Вставка записи в реестр. При коллизии file_path — один повтор
//     со свежим ключом (запись объекта повторяется из буфера, чтобы
//     не перезаписать чужой объект). Если вставка не удалась после
//     успешной записи в хранилище, объект остаётся осиротевшим —
//     принятое ограничение, логируется на уровне ERROR с ключом
//     для ручной очистки.
func (s *UploadService) UploadOne(ctx context.Context, params UploadParams) (*model.FileRecord, error) {
	// 1. Fail fast по заявленному размеру — до чтения содержимого
	if err := s.validator.ValidateSize(params.OriginalFilename, params.Size); err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	// 2. Буферизуем содержимое. LimitReader страхует от занижения
	// заявленного размера.
	data, err := io.ReadAll(io.LimitReader(params.Reader, s.cfg.MaxFileSize+1))
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, &StorageError{Op: "read", Key: params.OriginalFilename, Err: err}
	}
	size := int64(len(data))

	// Заявленный тип отсутствует или непрозрачен — определяем по содержимому
	contentType := normalizeContentType(params.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = normalizeContentType(mimetype.Detect(data).String())
	}

	// Полная валидация фактических метаданных — до любых обращений
	// к хранилищу и реестру
	if err := s.validator.Validate(FileInfo{
		Name:        params.OriginalFilename,
		Size:        size,
		ContentType: contentType,
	}); err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	// 3-5. Запись в хранилище и реестр; при коллизии ключа — один повтор
	rec, err := s.putAndRecord(ctx, params, data, size, contentType)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	uploadsTotal.WithLabelValues("success").Inc()
	uploadBytesTotal.Add(float64(size))

	s.logger.Info("Файл загружен",
		slog.Int64("record_id", rec.ID),
		slog.String("object_key", rec.FilePath),
		slog.Int64("size", rec.FileSize),
		slog.String("owner_id", rec.OwnerID),
		slog.String("project", rec.ProjectName),
	)

	return rec, nil
}

// putAndRecord записывает объект в хранилище и создаёт запись в реестре.
// При ErrDuplicatePath выполняется один повтор со свежим ключом.
func (s *UploadService) putAndRecord(ctx context.Context, params UploadParams, data []byte, size int64, contentType string) (*model.FileRecord, error) {
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		objectKey, storedName := s.namer.MakeKey(
			params.ProjectName, params.FileType, params.OriginalFilename, params.CustomName,
		)

		tags := map[string]string{
			"project":     params.ProjectName,
			"type":        params.FileType,
			"upload_time": storedName[:len(keyTimestampLayout)],
		}

		fileURL, err := s.store.Put(ctx, objectKey, bytes.NewReader(data), size, contentType, tags)
		if err != nil {
			return nil, &StorageError{Op: "put", Key: objectKey, Err: err}
		}

		rec := &model.FileRecord{
			OwnerID:     params.OwnerID,
			FileName:    displayName(params),
			FilePath:    objectKey,
			FileURL:     fileURL,
			FileSize:    size,
			ContentType: contentType,
			ProjectName: params.ProjectName,
			FileType:    params.FileType,
			Description: params.Description,
			IsPublic:    true,
		}

		err = s.repo.Create(ctx, rec)
		if err == nil {
			return rec, nil
		}

		if errors.Is(err, repository.ErrDuplicatePath) && attempt < maxAttempts {
			// Страховка реестра сработала: ключ занят. Повторяем со свежим.
			s.logger.Warn("Коллизия ключа объекта, повтор со свежим ключом",
				slog.String("object_key", objectKey),
			)
			lastErr = err
			continue
		}

		s.logger.Error("Запись в реестр не удалась, объект осиротел",
			slog.String("object_key", objectKey),
			slog.String("owner_id", params.OwnerID),
			slog.String("error", err.Error()),
		)
		return nil, &LedgerError{Op: "create", Err: err}
	}

	return nil, &LedgerError{Op: "create", Err: lastErr}
}

// UploadBatch загружает группу файлов с допуском частичных отказов.
//
// Политика:
//   - batch целиком отклоняется до каких-либо обращений к хранилищу,
//     если файлов больше max_batch_count;
//   - файлы обрабатываются независимо пулом воркеров; ошибка одного файла
//     фиксируется в Failures и не прерывает остальные;
//   - всегда SuccessCount + FailedCount == Total.
func (s *UploadService) UploadBatch(ctx context.Context, files []UploadParams) (*BatchResult, error) {
	if len(files) > s.cfg.MaxBatchCount {
		return nil, &ValidationError{Reason: fmt.Sprintf(
			"количество файлов превышает лимит: максимум %d, получено %d",
			s.cfg.MaxBatchCount, len(files),
		)}
	}

	result := &BatchResult{Total: len(files)}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.cfg.UploadWorkers)
	)

	for _, params := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(p UploadParams) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, err := s.UploadOne(ctx, p)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.FailedCount++
				result.Failures = append(result.Failures, BatchFailure{
					FileName: p.OriginalFilename,
					Error:    err.Error(),
				})
				return
			}
			result.SuccessCount++
			result.Successes = append(result.Successes, rec)
		}(params)
	}

	wg.Wait()

	s.logger.Info("Batch-загрузка завершена",
		slog.Int("total", result.Total),
		slog.Int("success", result.SuccessCount),
		slog.Int("failed", result.FailedCount),
	)

	return result, nil
}

// displayName возвращает отображаемое имя файла (custom_name или оригинал).
func displayName(params UploadParams) string {
	if params.CustomName != "" {
		return params.CustomName
	}
	return params.OriginalFilename
}
