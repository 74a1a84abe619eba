// upload.go — обработчики POST /api/v1/upload/ и POST /api/v1/upload/batch/.
// Приём multipart/form-data, делегирование в UploadService.
package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/animenative/file-service/internal/api/middleware"
	"github.com/animenative/file-service/internal/api/response"
	"github.com/animenative/file-service/internal/service"
)

// multipartMemory — порог буферизации multipart-формы в памяти (32 MiB);
// части больше порога net/http сбрасывает во временные файлы.
const multipartMemory = 32 << 20

// HandleUpload — POST /api/v1/upload/.
//
// Поля формы:
//   - file — содержимое файла (ровно одна часть)
//   - project_name — имя проекта (обязательно)
//   - file_type — категория файла (обязательно)
//   - custom_name — пользовательское имя (опционально)
//   - description — описание (опционально)
func (h *APIHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		response.ValidationError(w, "Некорректная multipart-форма: "+err.Error())
		return
	}
	defer cleanupMultipart(r)

	parts := r.MultipartForm.File["file"]
	switch {
	case len(parts) == 0:
		response.ValidationError(w, "Поле file не передано")
		return
	case len(parts) > 1:
		// Для нескольких файлов есть /api/v1/upload/batch/
		response.ValidationError(w, fmt.Sprintf(
			"Ожидался один файл в поле file, получено %d", len(parts),
		))
		return
	}

	projectName := r.FormValue("project_name")
	fileType := r.FormValue("file_type")
	if projectName == "" || fileType == "" {
		response.ValidationError(w, "Поля project_name и file_type обязательны")
		return
	}

	fh := parts[0]
	file, err := fh.Open()
	if err != nil {
		response.ValidationError(w, "Не удалось прочитать файл: "+err.Error())
		return
	}
	defer file.Close()

	rec, err := h.uploadService.UploadOne(r.Context(), service.UploadParams{
		Reader:           file,
		OriginalFilename: fh.Filename,
		ContentType:      fh.Header.Get("Content-Type"),
		Size:             fh.Size,
		ProjectName:      projectName,
		FileType:         fileType,
		CustomName:       r.FormValue("custom_name"),
		Description:      r.FormValue("description"),
		OwnerID:          middleware.OwnerFromContext(r.Context()),
	})
	if err != nil {
		h.writeServiceError(w, err, "Ошибка загрузки файла")
		return
	}

	response.Created(w, toFileData(rec), "Файл загружен")
}

// batchData — данные ответа batch-загрузки.
type batchData struct {
	Total        int                    `json:"total"`
	SuccessCount int                    `json:"success_count"`
	FailedCount  int                    `json:"failed_count"`
	Files        []fileData             `json:"files"`
	Failures     []service.BatchFailure `json:"failures"`
}

// HandleUploadBatch — POST /api/v1/upload/batch/.
//
// Поля формы:
//   - files — содержимое файлов (одна или несколько частей)
//   - project_name, file_type — общие для всех файлов (обязательны)
//   - description — общее описание (опционально)
//
// Отказ отдельного файла не прерывает загрузку остальных; превышение
// лимита количества отклоняет batch целиком.
func (h *APIHandler) HandleUploadBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		response.ValidationError(w, "Некорректная multipart-форма: "+err.Error())
		return
	}
	defer cleanupMultipart(r)

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		response.ValidationError(w, "Поле files не передано")
		return
	}

	projectName := r.FormValue("project_name")
	fileType := r.FormValue("file_type")
	if projectName == "" || fileType == "" {
		response.ValidationError(w, "Поля project_name и file_type обязательны")
		return
	}

	ownerID := middleware.OwnerFromContext(r.Context())
	description := r.FormValue("description")

	files := make([]service.UploadParams, 0, len(parts))
	opened := make([]multipart.File, 0, len(parts))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for _, fh := range parts {
		file, err := fh.Open()
		if err != nil {
			response.ValidationError(w, fmt.Sprintf(
				"Не удалось прочитать файл %s: %v", fh.Filename, err,
			))
			return
		}
		opened = append(opened, file)

		files = append(files, service.UploadParams{
			Reader:           file,
			OriginalFilename: fh.Filename,
			ContentType:      fh.Header.Get("Content-Type"),
			Size:             fh.Size,
			ProjectName:      projectName,
			FileType:         fileType,
			Description:      description,
			OwnerID:          ownerID,
		})
	}

	result, err := h.uploadService.UploadBatch(r.Context(), files)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка batch-загрузки")
		return
	}

	data := batchData{
		Total:        result.Total,
		SuccessCount: result.SuccessCount,
		FailedCount:  result.FailedCount,
		Files:        make([]fileData, 0, len(result.Successes)),
		Failures:     result.Failures,
	}
	if data.Failures == nil {
		data.Failures = []service.BatchFailure{}
	}
	for _, rec := range result.Successes {
		data.Files = append(data.Files, toFileData(rec))
	}

	response.Success(w, data, fmt.Sprintf(
		"Загружено %d из %d файлов", result.SuccessCount, result.Total,
	))
}

// cleanupMultipart удаляет временные файлы multipart-формы.
func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
