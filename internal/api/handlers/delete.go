// delete.go — обработчик DELETE /api/v1/delete/.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/animenative/file-service/internal/api/middleware"
	"github.com/animenative/file-service/internal/api/response"
)

// deleteRequest — тело запроса удаления файла.
type deleteRequest struct {
	// ID — идентификатор записи файла
	ID int64 `json:"id"`
}

// HandleDelete — DELETE /api/v1/delete/.
// Удаляет объект из хранилища и помечает запись реестра удалённой.
// Чужая и отсутствующая запись неразличимы — обе дают 404.
func (h *APIHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, "Некорректное тело запроса: ожидается JSON с полем id")
		return
	}
	if req.ID <= 0 {
		response.ValidationError(w, "Поле id обязательно и должно быть положительным")
		return
	}

	err := h.deleteService.Delete(r.Context(), req.ID, middleware.OwnerFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка удаления файла")
		return
	}

	response.Success(w, nil, "Файл удалён")
}
