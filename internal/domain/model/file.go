// Пакет model — доменные модели File Service.
// FileRecord — маппинг таблицы user_file_record (реестр загруженных файлов).
package model

import (
	"math"
	"time"
)

// FileRecord — запись о файле, загруженном пользователем в объектное хранилище.
// Запись создаётся после успешной записи объекта в хранилище и никогда
// не удаляется физически через публичный API — только soft delete.
type FileRecord struct {
	// ID — идентификатор записи (задаётся БД при создании)
	ID int64
	// OwnerID — идентификатор владельца (sub из JWT), неизменяемый
	OwnerID string
	// FileName — отображаемое имя файла (оригинальное или custom_name)
	FileName string
	// FilePath — ключ объекта в хранилище; глобально уникален, неизменяем
	FilePath string
	// FileURL — публичный URL, производный от FilePath
	FileURL string
	// FileSize — размер файла в байтах (фактически записанных в хранилище)
	FileSize int64
	// ContentType — MIME-тип файла
	ContentType string
	// ProjectName — имя проекта (ai_memo, user_avatar и т.д.), индексируется
	ProjectName string
	// FileType — категория файла (images, documents и т.д.), индексируется
	FileType string
	// Description — описание файла (опционально)
	Description string
	// Metadata — произвольные метаданные (JSONB)
	Metadata map[string]string
	// IsPublic — разрешён ли публичный доступ
	IsPublic bool
	// ExpiresAt — время истечения файла; nil — не истекает
	ExpiresAt *time.Time
	// IsDeleted — маркер soft delete
	IsDeleted bool
	// DeletedAt — время soft delete
	DeletedAt *time.Time
	// UploadedAt — время загрузки
	UploadedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// SizeMB возвращает размер файла в мегабайтах с округлением до 2 знаков.
func (r *FileRecord) SizeMB() float64 {
	return RoundMB(r.FileSize)
}

// IsExpired сообщает, истёк ли файл на момент now.
// Файл без ExpiresAt не истекает никогда.
func (r *FileRecord) IsExpired(now time.Time) bool {
	if r.ExpiresAt == nil {
		return false
	}
	return now.After(*r.ExpiresAt)
}

// RoundMB переводит байты в мегабайты с округлением до 2 знаков.
func RoundMB(sizeBytes int64) float64 {
	mb := float64(sizeBytes) / (1024 * 1024)
	return math.Round(mb*100) / 100
}
