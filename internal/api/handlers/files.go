// files.go — обработчики GET /api/v1/files/ и GET /api/v1/files/{id}.
// Выборка файлов владельца с фильтрацией/пагинацией и получение одной записи.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/animenative/file-service/internal/api/middleware"
	"github.com/animenative/file-service/internal/api/response"
	"github.com/animenative/file-service/internal/service"
)

// HandleListFiles — GET /api/v1/files/.
//
// Query-параметры:
//   - page — номер страницы, начиная с 1
//   - page_size — размер страницы (ограничивается максимумом)
//   - project_name — фильтр по проекту (exact match)
//   - file_type — фильтр по категории (exact match)
//
// Выборка всегда ограничена владельцем (sub из JWT).
func (h *APIHandler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	query := ListQueryFromRequest(r)

	page, err := h.listService.List(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка выборки файлов")
		return
	}

	response.Success(w, page, "OK")
}

// HandleGetFile — GET /api/v1/files/{id}.
// Возвращает одну запись файла владельца.
func (h *APIHandler) HandleGetFile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(w, "Некорректный id записи")
		return
	}

	rec, err := h.listService.GetRecord(r.Context(), id, middleware.OwnerFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения записи файла")
		return
	}

	response.Success(w, toFileData(rec), "OK")
}

// ListQueryFromRequest собирает ListQuery из query-параметров запроса.
// Некорректные числовые значения игнорируются (нормализация в сервисе).
func ListQueryFromRequest(r *http.Request) service.ListQuery {
	q := service.ListQuery{
		OwnerID: middleware.OwnerFromContext(r.Context()),
	}

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.PageSize = n
		}
	}
	if v := r.URL.Query().Get("project_name"); v != "" {
		q.ProjectName = &v
	}
	if v := r.URL.Query().Get("file_type"); v != "" {
		q.FileType = &v
	}

	return q
}
