// validate.go — проверка загружаемого файла против политики загрузки.
// Чистая функция от метаданных файла и статической конфигурации,
// никаких побочных эффектов и сетевых вызовов.
package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/animenative/file-service/internal/config"
	"github.com/animenative/file-service/internal/domain/model"
)

// FileInfo — метаданные файла, достаточные для валидации.
type FileInfo struct {
	// Name — оригинальное имя файла
	Name string
	// Size — заявленный размер в байтах
	Size int64
	// ContentType — заявленный MIME-тип
	ContentType string
}

// Validator — проверка файлов против политики размера/типа/расширения.
// Списки разрешённых типов и расширений (категория -> список) сплющиваются
// в множества при создании — одна проверка на lookup.
type Validator struct {
	maxFileSize int64
	allowedMIME map[string]bool
	allowedExt  map[string]bool
}

// NewValidator создаёт валидатор из конфигурации.
func NewValidator(cfg *config.Config) *Validator {
	return &Validator{
		maxFileSize: cfg.MaxFileSize,
		allowedMIME: flatten(cfg.AllowedMIMETypes),
		allowedExt:  flatten(cfg.AllowedExtensions),
	}
}

// Validate проверяет файл. Проверки по порядку, с остановкой на первой ошибке:
//  1. размер не превышает лимит;
//  2. MIME-тип входит в разрешённые;
//  3. расширение (в нижнем регистре) входит в разрешённые —
//     проверяется только если расширение присутствует.
//
// Возвращает nil либо *ValidationError с причиной отказа.
func (v *Validator) Validate(info FileInfo) error {
	// 1. Размер
	if err := v.ValidateSize(info.Name, info.Size); err != nil {
		return err
	}

	// 2. MIME-тип
	contentType := normalizeContentType(info.ContentType)
	if !v.allowedMIME[contentType] {
		return &ValidationError{Reason: fmt.Sprintf(
			"файл %s: тип %s не разрешён", info.Name, contentType,
		)}
	}

	// 3. Расширение (двойная проверка; только если присутствует)
	ext := strings.ToLower(filepath.Ext(info.Name))
	if ext != "" && !v.allowedExt[ext] {
		return &ValidationError{Reason: fmt.Sprintf(
			"файл %s: расширение %s не разрешено", info.Name, ext,
		)}
	}

	return nil
}

// ValidateSize проверяет только размер файла против лимита.
// Используется для fail fast до чтения содержимого.
func (v *Validator) ValidateSize(name string, size int64) error {
	if size > v.maxFileSize {
		return &ValidationError{Reason: fmt.Sprintf(
			"файл %s: размер %.2fMB превышает лимит %.2fMB",
			name, model.RoundMB(size), model.RoundMB(v.maxFileSize),
		)}
	}
	return nil
}

// normalizeContentType отбрасывает параметры MIME-типа (charset и т.д.).
func normalizeContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType)
}

// flatten сплющивает отображение категория -> список в множество значений.
func flatten(byCategory map[string][]string) map[string]bool {
	set := make(map[string]bool)
	for _, values := range byCategory {
		for _, v := range values {
			set[v] = true
		}
	}
	return set
}
